package mw

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(c *gin.Context) string

// ClientIP buckets requests by the caller's address.
func ClientIP(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// KeyedRateLimiter stores a token bucket per key. Buckets that see no
// traffic for idleTTL are evicted.
type KeyedRateLimiter struct {
	limiters *cache.Cache
	r        rate.Limit
	b        int
}

const idleTTL = 10 * time.Minute

// NewKeyedRateLimiter creates a new KeyedRateLimiter.
func NewKeyedRateLimiter(r rate.Limit, b int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		limiters: cache.New(idleTTL, 2*idleTTL),
		r:        r,
		b:        b,
	}
}

// GetLimiter returns the rate limiter for key, creating it on first use.
func (k *KeyedRateLimiter) GetLimiter(key string) *rate.Limiter {
	if l, ok := k.limiters.Get(key); ok {
		k.limiters.SetDefault(key, l)
		return l.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(k.r, k.b)
	if err := k.limiters.Add(key, limiter, cache.DefaultExpiration); err != nil {
		// Lost the race; use the bucket that won.
		if l, ok := k.limiters.Get(key); ok {
			return l.(*rate.Limiter)
		}
	}
	return limiter
}

// RateLimit rejects requests beyond the bucket's rate with 429.
func (k *KeyedRateLimiter) RateLimit(key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !k.GetLimiter(key(c)).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests", "kind": "rate_limited"})
			return
		}
		c.Next()
	}
}
