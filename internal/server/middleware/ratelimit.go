package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/kwenta-ph/kwenta/backend/internal/server/util"
)

const (
	maxClients = 10_000
	clientIdle = 10 * time.Minute
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key. A bucket holds a full
// minute of requests and refills evenly over the minute.
type RateLimiter struct {
	mu      sync.RWMutex
	clients map[string]*client
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &RateLimiter{
		clients: make(map[string]*client),
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		now:     time.Now,
	}
}

// Allow takes a token from key's bucket.
func (l *RateLimiter) Allow(key string) bool {
	return l.get(key).AllowN(l.now(), 1)
}

func (l *RateLimiter) get(key string) *rate.Limiter {
	now := l.now()

	l.mu.RLock()
	c, ok := l.clients[key]
	l.mu.RUnlock()
	if ok {
		l.mu.Lock()
		c.lastSeen = now
		l.mu.Unlock()
		return c.limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if c, ok := l.clients[key]; ok {
		c.lastSeen = now
		return c.limiter
	}
	if len(l.clients) >= maxClients {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) > clientIdle {
				delete(l.clients, k)
			}
		}
	}
	c = &client{limiter: rate.NewLimiter(l.limit, l.burst), lastSeen: now}
	l.clients[key] = c
	return c.limiter
}

// retryAfter is the wait in whole seconds until key's next token.
func (l *RateLimiter) retryAfter(key string) int {
	r := l.get(key).ReserveN(l.now(), 1)
	defer r.CancelAt(l.now())
	return int(math.Ceil(r.DelayFrom(l.now()).Seconds()))
}

// Limit rejects requests over the client's budget with 429. Clients are
// keyed by their real IP.
func (l *RateLimiter) Limit(message string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if !l.Allow(key) {
				c.Response().Header().Set("Retry-After", strconv.Itoa(max(1, l.retryAfter(key))))
				return util.Error(c, http.StatusTooManyRequests, util.CodeRateLimited, message)
			}
			return next(c)
		}
	}
}
