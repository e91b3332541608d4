package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	appErrors "github.com/parkops/parkops-api/pkg/errors"
	"github.com/parkops/parkops-api/pkg/response"
)

// ActorRateLimiter keeps one token bucket per actor. Idle buckets are evicted so the
// map does not grow with every actor ever seen.
type ActorRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*actorLimiter
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

type actorLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewActorRateLimiter allows perSecond sustained transitions with the given burst.
func NewActorRateLimiter(perSecond float64, burst int) *ActorRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &ActorRateLimiter{
		limiters: make(map[string]*actorLimiter),
		limit:    limit,
		burst:    burst,
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

// Limiter returns the bucket for key, creating it on first use.
func (l *ActorRateLimiter) Limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	entry, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) > 1024 {
			l.evict(now)
		}
		entry = &actorLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

func (l *ActorRateLimiter) evict(now time.Time) {
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > l.idle {
			delete(l.limiters, key)
		}
	}
}

// RateLimit throttles requests per authenticated actor, falling back to the client IP.
func RateLimit(limiter *ActorRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		key := c.ClientIP()
		if actor := Actor(c); actor != nil {
			key = actor.UserID
		}
		bucket := limiter.Limiter(key)
		reservation := bucket.Reserve()
		if !reservation.OK() {
			response.Error(c, appErrors.ErrTooManyRequests)
			c.Abort()
			return
		}
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			response.Error(c, appErrors.ErrTooManyRequests)
			c.Abort()
			return
		}
		c.Next()
	}
}
