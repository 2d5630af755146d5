package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/buzzexport/config"
	"github.com/use-agent/buzzexport/models"
)

func TestRateLimit_SweepersStopWithContext(t *testing.T) {
	cfg := config.RateLimitConfig{RequestsPerSecond: 1, Burst: 1, SweepInterval: time.Hour}
	before := runtime.NumGoroutine()

	ctx, cancel := context.WithCancel(context.Background())
	for range 50 {
		RateLimit(ctx, cfg)
	}
	assert.GreaterOrEqual(t, runtime.NumGoroutine(), before+50)

	cancel()
	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClientLimiter_SweepEvictsIdleClients(t *testing.T) {
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	l := NewClientLimiter(config.RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Hour})
	l.now = func() time.Time { return now }

	require.True(t, l.Allow("10.0.0.1"))
	now = now.Add(45 * time.Minute)
	require.True(t, l.Allow("10.0.0.2"))
	assert.Equal(t, 2, l.Len())

	now = now.Add(30 * time.Minute)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())
}

func TestClientLimiter_PerClientBuckets(t *testing.T) {
	l := NewClientLimiter(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})

	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"))
}

func TestClientLimiter_Handler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := NewClientLimiter(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})
	r := gin.New()
	r.GET("/", l.Handler(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrCodeRateLimited)
}
