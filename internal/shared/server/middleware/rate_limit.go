package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"cv-analyzer/internal/shared/server/respond"
)

// RateLimitRule is a token bucket: Rate tokens per second, up to Burst.
type RateLimitRule struct {
	Rate  float64
	Burst int
}

// Buckets untouched for limiterIdleTTL are dropped; a sweep runs at most once
// per limiterSweepEvery.
const (
	limiterIdleTTL    = 10 * time.Minute
	limiterSweepEvery = time.Minute
)

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key.
type RateLimiter struct {
	mu        sync.Mutex
	rule      RateLimitRule
	limiters  map[string]*bucket
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter builds a limiter; now may be nil.
func NewRateLimiter(rule RateLimitRule, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	ttl := limiterIdleTTL
	// an evicted bucket comes back full, so never drop one that is still refilling
	if rule.Rate > 0 {
		if refill := time.Duration(float64(rule.Burst) / rule.Rate * float64(time.Second)); refill > ttl {
			ttl = refill
		}
	}
	return &RateLimiter{
		rule:      rule,
		limiters:  make(map[string]*bucket),
		idleTTL:   ttl,
		lastSweep: now(),
		now:       now,
	}
}

// Len reports how many client buckets are tracked.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// sweep drops idle buckets. Callers hold l.mu.
func (l *RateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < limiterSweepEvery {
		return
	}
	l.lastSweep = now
	for key, b := range l.limiters {
		if now.Sub(b.lastSeen) >= l.idleTTL {
			delete(l.limiters, key)
		}
	}
}

// Allow reports whether key may proceed and, if not, how long to wait.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	if l == nil || l.rule.Rate <= 0 || l.rule.Burst <= 0 {
		return true, 0
	}
	now := l.now()
	l.mu.Lock()
	l.sweep(now)
	b, ok := l.limiters[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(l.rule.Rate), l.rule.Burst)}
		l.limiters[key] = b
	}
	b.lastSeen = now
	lim := b.lim
	l.mu.Unlock()

	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	delay := res.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}
	res.CancelAt(now)
	return false, delay
}

// RateLimit rejects clients, keyed by IP, that exceed the limiter's rule.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := limiter.Allow(c.ClientIP())
		if allowed {
			c.Next()
			return
		}
		seconds := int(math.Ceil(retryAfter.Seconds()))
		if seconds <= 0 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(seconds))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "Too many requests, please retry later.", map[string]int{
			"retryAfterSeconds": seconds,
		})
	}
}
