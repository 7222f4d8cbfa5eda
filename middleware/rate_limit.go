package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cppla/socialbbs/utils"
)

const limiterIdleTTL = 5 * time.Minute

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// ipLimiters holds one token bucket per client IP for a single route group.
type ipLimiters struct {
	mu      sync.Mutex
	entries map[string]*rateLimiter
	limit   rate.Limit
	burst   int
}

// RateLimit applies a per client IP token bucket allowing perMinute requests.
func RateLimit(perMinute int) gin.HandlerFunc {
	l := &ipLimiters{
		entries: map[string]*rateLimiter{},
		limit:   rate.Every(time.Minute / time.Duration(maxInt(perMinute, 1))),
		burst:   maxInt(perMinute/2, 1),
	}

	return func(ctx *gin.Context) {
		if !l.allow(ctx.ClientIP(), time.Now()) {
			utils.Error(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func (l *ipLimiters) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for k, e := range l.entries {
		if now.After(e.expires) {
			delete(l.entries, k)
		}
	}

	e, ok := l.entries[key]
	if !ok {
		e = &rateLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.expires = now.Add(limiterIdleTTL)
	return e.limiter.AllowN(now, 1)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
