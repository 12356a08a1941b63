package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPriceCache(t *testing.T, ttl time.Duration) (*PriceCache, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		server.Close()
	})

	return NewPriceCache(rdb, ttl), server
}

func TestPriceCache_SetThenGetIsHit(t *testing.T) {
	c, _ := newTestPriceCache(t, time.Minute)
	ctx := context.Background()

	err := c.Set(ctx, "AAPL", decimal.NewFromFloat(189.32), "polygon")
	require.NoError(t, err)

	entry, ok := c.Get(ctx, "AAPL")
	require.True(t, ok)
	assert.True(t, decimal.NewFromFloat(189.32).Equal(entry.Price))
	assert.Equal(t, "polygon", entry.Source)
}

func TestPriceCache_UnknownTickerIsMiss(t *testing.T) {
	c, _ := newTestPriceCache(t, time.Minute)
	_, ok := c.Get(context.Background(), "MSFT")
	assert.False(t, ok)
}

func TestPriceCache_ExpiredEntryIsMiss(t *testing.T) {
	c, server := newTestPriceCache(t, 50*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "AAPL", decimal.NewFromInt(100), "feed"))

	server.FastForward(100 * time.Millisecond)

	_, ok := c.Get(ctx, "AAPL")
	assert.False(t, ok)
}

func TestPriceCache_InvalidateRemovesEntry(t *testing.T) {
	c, _ := newTestPriceCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "AAPL", decimal.NewFromInt(100), "feed"))
	require.NoError(t, c.Invalidate(ctx, "AAPL"))

	_, ok := c.Get(ctx, "AAPL")
	assert.False(t, ok)
}

func TestPriceCache_ClearRemovesAllEntries(t *testing.T) {
	c, _ := newTestPriceCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "AAPL", decimal.NewFromInt(100), "feed"))
	require.NoError(t, c.Set(ctx, "MSFT", decimal.NewFromInt(200), "feed"))

	require.NoError(t, c.Clear(ctx))

	_, ok := c.Get(ctx, "AAPL")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "MSFT")
	assert.False(t, ok)
}

func TestPriceCache_StatsAndHitRate(t *testing.T) {
	c, _ := newTestPriceCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "AAPL", decimal.NewFromInt(100), "feed"))

	_, _ = c.Get(ctx, "AAPL")
	_, _ = c.Get(ctx, "AAPL")
	_, _ = c.Get(ctx, "MSFT")

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 66.66, c.HitRate(), 0.1)
}

func TestPriceCache_NilRedisClientReturnsNil(t *testing.T) {
	c := NewPriceCache(nil, time.Minute)
	assert.Nil(t, c)
}
