package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHealthChecker struct{ err error }

func (s stubHealthChecker) HealthCheck(ctx context.Context) error { return s.err }

func runHealthCheck(t *testing.T, db DatabaseHealthChecker, redis RedisHealthChecker) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewHealthHandler(db, redis, "test-version")
	router := gin.New()
	router.GET("/healthz", h.Check)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthHandler_AllDependenciesHealthy(t *testing.T) {
	rec := runHealthCheck(t, stubHealthChecker{}, stubHealthChecker{})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	assert.Contains(t, rec.Body.String(), `"database":"healthy"`)
	assert.Contains(t, rec.Body.String(), `"redis":"healthy"`)
}

func TestHealthHandler_DatabaseUnhealthyReportsDegradedNot5xx(t *testing.T) {
	rec := runHealthCheck(t, stubHealthChecker{err: errors.New("connection refused")}, stubHealthChecker{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestHealthHandler_NilRedisReportsNotConfigured(t *testing.T) {
	rec := runHealthCheck(t, stubHealthChecker{}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"not_configured"`)
}
