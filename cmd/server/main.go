package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/irfndi/neuratrade/internal/api"
	"github.com/irfndi/neuratrade/internal/api/handlers"
	"github.com/irfndi/neuratrade/internal/cache"
	"github.com/irfndi/neuratrade/internal/config"
	"github.com/irfndi/neuratrade/internal/database"
	"github.com/irfndi/neuratrade/internal/logging"
	"github.com/irfndi/neuratrade/internal/middleware"
	"github.com/irfndi/neuratrade/internal/store"
)

const serviceVersion = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server failed: %v\n", err)
		os.Exit(1)
	}
}

// run orchestrates the startup sequence: load configuration, connect
// to storage, register routes, then serve until a termination signal
// arrives, following the teacher's graceful-shutdown shape.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	stdLogger := logging.NewStandardLogger(cfg.LogLevel, cfg.Environment)
	zapLog := stdLogger.Logger()
	if zapLog != nil {
		defer zapLog.Sync() //nolint:errcheck
	}

	summary := make(map[string]interface{}, 8)
	for key, value := range cfg.RedactedSummary() {
		summary[key] = value
	}
	stdLogger.WithFields(summary).Info("loaded configuration")
	stdLogger.LogStartup("neuratrade-rule-engine", serviceVersion, cfg.Server.Port)

	ctx := context.Background()
	db, err := database.NewDatabaseConnectionWithContext(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database (%s): %w", cfg.Database.Driver, err)
	}
	defer db.Close()

	if err := store.Migrate(ctx, db, cfg.Database.Driver); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	ruleStore := store.New(db, cfg.Database.Driver)

	redisClient, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		stdLogger.WithError(err).Warn("redis unavailable, continuing without live-price cache or rate limiting")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	var priceCache *cache.PriceCache
	var rateLimiter *middleware.RateLimiter
	var redisHealth handlers.RedisHealthChecker
	if redisClient != nil {
		ttl, err := time.ParseDuration(cfg.RuleEngine.DefaultPriceCacheTTL)
		if err != nil {
			ttl = 60 * time.Second
		}
		priceCache = cache.NewPriceCache(redisClient.Client, ttl)
		rateLimiter = middleware.NewRateLimiter(middleware.DefaultRateLimitConfig(), redisClient.Client, zapLog)
		redisHealth = redisClient
	}

	var priceLookup handlers.PriceLookup
	if priceCache != nil {
		priceLookup = priceCache
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	if os.Getenv("SENTRY_DSN") != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}

	jwtSecret := []byte(cfg.Auth.JWTSecret)

	api.SetupRoutes(router, api.Dependencies{
		DB:          db,
		Redis:       redisHealth,
		Store:       ruleStore,
		Prices:      priceLookup,
		Version:     serviceVersion,
		Auth:        middleware.AuthConfig{Secret: jwtSecret},
		RequireAuth: len(jwtSecret) > 0,
		RateLimiter: rateLimiter,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       15 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			stdLogger.WithError(err).Error("server stopped unexpectedly")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stdLogger.LogShutdown("neuratrade-rule-engine", "signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
