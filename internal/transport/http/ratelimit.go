package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// authRatePerMinute caps register/login attempts per client per minute.
const authRatePerMinute = 30

// rateLimiter is a fixed-window per-key counter. Windows reset lazily on the
// next request after they expire, so idle keys cost nothing.
type rateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	counts map[string]*windowCount
}

type windowCount struct {
	count   int
	resetAt time.Time
}

func newRateLimiter(limit int) *rateLimiter {
	return &rateLimiter{
		limit:  limit,
		window: time.Minute,
		counts: make(map[string]*windowCount),
	}
}

func (r *rateLimiter) allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	wc, ok := r.counts[key]
	if !ok || now.After(wc.resetAt) {
		r.counts[key] = &windowCount{count: 1, resetAt: now.Add(r.window)}
		return true
	}
	if wc.count >= r.limit {
		return false
	}
	wc.count++
	return true
}

// RateLimitMiddleware rejects requests over the per-IP limit with 429.
func RateLimitMiddleware(limiter *rateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
