// Package api wires the HTTP surface from spec.md §6 onto a Gin
// engine: plan validation, decision evaluation, and health reporting.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/irfndi/neuratrade/internal/api/handlers"
	"github.com/irfndi/neuratrade/internal/middleware"
)

// Dependencies bundles everything SetupRoutes needs to construct
// handlers, so cmd/server/main.go doesn't have to know the internal
// handler constructors.
type Dependencies struct {
	DB          handlers.DatabaseHealthChecker
	Redis       handlers.RedisHealthChecker
	Store       handlers.DecisionStore
	Prices      handlers.PriceLookup
	Version     string
	Auth        middleware.AuthConfig
	RequireAuth bool
	RateLimiter *middleware.RateLimiter
}

// SetupRoutes registers the health check and v1 API routes on router.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Redis, deps.Version)
	router.GET("/healthz", middleware.HealthCheckTelemetryMiddleware(), healthHandler.Check)

	evaluateHandler := handlers.NewEvaluateHandler(deps.Store, deps.Prices)
	rulePlanHandler := handlers.NewRulePlanHandler()

	v1 := router.Group("/v1")
	v1.Use(middleware.TelemetryMiddleware())
	if deps.RateLimiter != nil {
		v1.Use(deps.RateLimiter.Middleware())
	}

	authCfg := deps.Auth
	if !deps.RequireAuth {
		authCfg.SkipFunc = func(*gin.Context) bool { return true }
	}
	v1.Use(middleware.AuthMiddleware(authCfg))

	stocks := v1.Group("/stocks")
	{
		stocks.POST("/:id/evaluate", evaluateHandler.Evaluate)
	}

	rulePlans := v1.Group("/rule-plans")
	{
		rulePlans.POST("/validate", rulePlanHandler.Validate)
	}
}
