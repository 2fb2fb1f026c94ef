package ginserver

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	gin "github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"wanderlust/internal/domain/shared/failure"
)

const limiterIdleTTL = 10 * time.Minute

// RateLimiter keeps one token bucket per client: the signed-in user when known,
// the client IP otherwise.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*clientLimiter
	now     func() time.Time
	sweepAt time.Time
}

type clientLimiter struct {
	limiter *rate.Limiter
	seen    time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		clients: make(map[string]*clientLimiter),
		now:     time.Now,
	}
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if p, ok := currentPrincipal(c); ok {
			key = "user:" + p.ID
		}
		lim := l.limiterFor(key)
		if !lim.Allow() {
			retry := 1
			if l.limit > 0 {
				retry = int(math.Ceil(1 / float64(l.limit)))
			}
			c.Header("Retry-After", strconv.Itoa(max(retry, 1)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: "too many requests", Kind: string(failure.KindUnavailable)})
			return
		}
		c.Next()
	}
}

func (l *RateLimiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.After(l.sweepAt) {
		for k, cl := range l.clients {
			if now.Sub(cl.seen) > limiterIdleTTL {
				delete(l.clients, k)
			}
		}
		l.sweepAt = now.Add(limiterIdleTTL)
	}
	cl, ok := l.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = cl
	}
	cl.seen = now
	return cl.limiter
}
