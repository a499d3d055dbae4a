package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
	// IdleTTL evicts limiters of callers not seen for this long
	IdleTTL time.Duration
}

// DefaultRateLimitConfig returns production-ready rate limit configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		Burst:             200,
		IdleTTL:           10 * time.Minute,
	}
}

// RateLimit gives every caller its own token bucket. Callers are keyed by
// account when Account has run, otherwise by client IP, so one account
// cannot dodge the limit by spreading requests across addresses.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	type bucket struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu        sync.Mutex
		buckets   = make(map[string]*bucket)
		lastSweep = time.Now()
	)

	retryAfter := "1"
	if cfg.RequestsPerSecond > 0 {
		retryAfter = strconv.Itoa(int(math.Ceil(1 / float64(cfg.RequestsPerSecond))))
	}

	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if account, ok := Caller(c); ok {
			key = "account:" + string(account)
		}
		now := time.Now()

		mu.Lock()
		if cfg.IdleTTL > 0 && now.Sub(lastSweep) > cfg.IdleTTL {
			for k, b := range buckets {
				if now.Sub(b.lastSeen) > cfg.IdleTTL {
					delete(buckets, k)
				}
			}
			lastSweep = now
		}
		b, exists := buckets[key]
		if !exists {
			b = &bucket{limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)}
			buckets[key] = b
		}
		b.lastSeen = now
		limiter := b.limiter
		mu.Unlock()

		if !limiter.Allow() {
			c.Header("Retry-After", retryAfter)
			abort(c, http.StatusTooManyRequests, "RateLimited", "rate limit exceeded")
			return
		}

		c.Next()
	}
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   message,
		"code":    code,
	})
}
