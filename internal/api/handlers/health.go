// Package handlers implements the HTTP surface of the rule evaluation
// core: plan validation, decision evaluation, and health reporting.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// DatabaseHealthChecker is the subset of internal/database.Database a
// health check needs.
type DatabaseHealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RedisHealthChecker is the subset of internal/database.RedisClient a
// health check needs.
type RedisHealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler reports liveness of the service and its dependencies.
type HealthHandler struct {
	db      DatabaseHealthChecker
	redis   RedisHealthChecker
	version string
}

// NewHealthHandler constructs a HealthHandler. redis may be nil when
// the service is running without a live-price cache.
func NewHealthHandler(db DatabaseHealthChecker, redis RedisHealthChecker, version string) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, version: version}
}

// ResourceStats reports host-wide memory and CPU usage, gathered
// via gopsutil so operators see the same numbers a host-level `top`
// would without needing shell access to the container.
type ResourceStats struct {
	MemoryUsedPercent float64 `json:"memory_used_percent"`
	CPUUsedPercent    float64 `json:"cpu_used_percent"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services"`
	Resources *ResourceStats    `json:"resources,omitempty"`
}

// Check reports dependency reachability and host resource usage.
// Status is "healthy" when every configured dependency responds,
// "degraded" otherwise; it never returns a 5xx for a degraded
// dependency so load balancers don't cycle healthy instances out over
// a transient Redis blip.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	services := make(map[string]string)
	healthy := true

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			services["database"] = "unhealthy: " + err.Error()
			healthy = false
		} else {
			services["database"] = "healthy"
		}
	} else {
		services["database"] = "not_configured"
	}

	if h.redis != nil {
		if err := h.redis.HealthCheck(ctx); err != nil {
			services["redis"] = "unhealthy: " + err.Error()
			healthy = false
		} else {
			services["redis"] = "healthy"
		}
	} else {
		services["redis"] = "not_configured"
	}

	status := "healthy"
	if !healthy {
		status = "degraded"
	}

	resp := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Version:   h.version,
		Services:  services,
		Resources: resourceStats(),
	}
	c.JSON(http.StatusOK, resp)
}

// resourceStats samples host memory/CPU via gopsutil; nil when the
// sample itself fails (a transient proc-fs read error should not make
// /healthz itself unhealthy).
func resourceStats() *ResourceStats {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil
	}
	cpuPercents, err := cpu.Percent(0, false)
	if err != nil || len(cpuPercents) == 0 {
		return &ResourceStats{MemoryUsedPercent: vm.UsedPercent}
	}
	return &ResourceStats{MemoryUsedPercent: vm.UsedPercent, CPUUsedPercent: cpuPercents[0]}
}
