// Package cache provides the live intraday-price cache the rule
// evaluator consults for a ticker's current price, backed by Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// PriceEntry is what gets stored per ticker: the raw price alongside
// when it was cached, so a read past TTL is treated as a miss rather
// than trusting Redis's own expiry timing alone.
type PriceEntry struct {
	Ticker   string          `json:"ticker"`
	Price    decimal.Decimal `json:"price"`
	CachedAt time.Time       `json:"cached_at"`
	Source   string          `json:"source"`
}

// PriceCacheStats tracks cumulative hit/miss/set counters.
type PriceCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	mu     sync.RWMutex
}

// PriceCache is a ticker-keyed, TTL-bounded cache of live intraday
// prices. Concurrent writers are tolerated: the last Set wins, and a
// stale read (past ttl) is a miss rather than an error.
type PriceCache struct {
	redis     *redis.Client
	ttl       time.Duration
	stats     *PriceCacheStats
	prefix    string
	enableLog bool
}

// NewPriceCache builds a PriceCache with the given default TTL (spec
// default is 60s, see RuleEngineConfig.DefaultPriceCacheTTL).
func NewPriceCache(redisClient *redis.Client, ttl time.Duration) *PriceCache {
	if redisClient == nil {
		return nil
	}
	return &PriceCache{
		redis:     redisClient,
		ttl:       ttl,
		stats:     &PriceCacheStats{},
		prefix:    "price_cache:",
		enableLog: true,
	}
}

func (c *PriceCache) key(ticker string) string {
	return c.prefix + ticker
}

// Get returns the cached price for ticker, or (zero, false) on a miss
// (absent, expired, or a Redis/decode error).
func (c *PriceCache) Get(ctx context.Context, ticker string) (PriceEntry, bool) {
	data, err := c.redis.Get(ctx, c.key(ticker)).Result()
	if err == redis.Nil {
		c.recordMiss()
		return PriceEntry{}, false
	}
	if err != nil {
		if c.enableLog {
			log.Printf("PriceCache redis error for %s: %v", ticker, err)
		}
		c.recordMiss()
		return PriceEntry{}, false
	}

	var entry PriceEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		if c.enableLog {
			log.Printf("PriceCache unmarshal error for %s: %v", ticker, err)
		}
		c.recordMiss()
		return PriceEntry{}, false
	}

	if time.Since(entry.CachedAt) > c.ttl {
		c.recordMiss()
		return PriceEntry{}, false
	}

	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()
	return entry, true
}

func (c *PriceCache) recordMiss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
}

// Set stores ticker's current price, stamped with the cache time.
func (c *PriceCache) Set(ctx context.Context, ticker string, price decimal.Decimal, source string) error {
	entry := PriceEntry{
		Ticker:   ticker,
		Price:    price,
		CachedAt: time.Now(),
		Source:   source,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal price cache entry: %w", err)
	}

	if err := c.redis.Set(ctx, c.key(ticker), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set price cache: %w", err)
	}

	c.stats.mu.Lock()
	c.stats.Sets++
	c.stats.mu.Unlock()

	if c.enableLog {
		log.Printf("cached price for %s: %s (source: %s, ttl: %v)", ticker, price.String(), source, c.ttl)
	}
	return nil
}

// Invalidate removes the cached price for a single ticker.
func (c *PriceCache) Invalidate(ctx context.Context, ticker string) error {
	if err := c.redis.Del(ctx, c.key(ticker)).Err(); err != nil {
		return fmt.Errorf("invalidate price cache for %s: %w", ticker, err)
	}
	return nil
}

// Clear removes every cached price.
func (c *PriceCache) Clear(ctx context.Context) error {
	pattern := c.prefix + "*"

	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan price cache keys: %w", err)
	}

	if len(keys) > 0 {
		if err := c.redis.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("clear price cache: %w", err)
		}
		if c.enableLog {
			log.Printf("cleared %d cached prices", len(keys))
		}
	}
	return nil
}

// Stats returns a snapshot of the cumulative counters.
func (c *PriceCache) Stats() PriceCacheStats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()
	return PriceCacheStats{Hits: c.stats.Hits, Misses: c.stats.Misses, Sets: c.stats.Sets}
}

// HitRate returns the hit percentage across Get calls so far, or 0
// when no Get has been made yet.
func (c *PriceCache) HitRate() float64 {
	stats := c.Stats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0
	}
	return float64(stats.Hits) / float64(total) * 100
}
