package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/buzzexport/config"
	"github.com/use-agent/buzzexport/models"
	"golang.org/x/time/rate"
)

// ClientLimiter holds one token bucket per client IP. Every limited request
// serializes the live page, so the limit bounds how often that happens.
type ClientLimiter struct {
	rps   rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu      sync.Mutex
	clients map[string]*client
}

type client struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// NewClientLimiter returns a limiter for cfg. Nothing runs in the
// background until Run is called.
func NewClientLimiter(cfg config.RateLimitConfig) *ClientLimiter {
	idle := cfg.IdleTTL
	if idle <= 0 {
		idle = time.Hour
	}
	return &ClientLimiter{
		rps:     rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		idle:    idle,
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

// Allow takes one token from ip's bucket.
func (l *ClientLimiter) Allow(ip string) bool {
	l.mu.Lock()
	c, ok := l.clients[ip]
	if !ok {
		c = &client{bucket: rate.NewLimiter(l.rps, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = l.now()
	l.mu.Unlock()
	return c.bucket.Allow()
}

// Sweep forgets clients idle for longer than the TTL and returns how many
// were removed.
func (l *ClientLimiter) Sweep() int {
	cutoff := l.now().Add(-l.idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for ip, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, ip)
			n++
		}
	}
	return n
}

// Len reports the number of tracked clients.
func (l *ClientLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Run sweeps every interval until ctx is done.
func (l *ClientLimiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Sweep()
		}
	}
}

// Handler rejects over-limit requests with 429 RATE_LIMITED.
func (l *ClientLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeRateLimited,
					Message: "too many scrapes, please slow down",
				},
			})
			return
		}
		c.Next()
	}
}

// RateLimit returns per-client middleware whose sweeper lives as long as
// ctx.
func RateLimit(ctx context.Context, cfg config.RateLimitConfig) gin.HandlerFunc {
	l := NewClientLimiter(cfg)
	go l.Run(ctx, cfg.SweepInterval)
	return l.Handler()
}
