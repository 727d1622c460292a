package spacetraveling

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const visitorIdle = 5 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// VisitorLimiter rate-limits requests per IP address with a token bucket.
type VisitorLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
	done     chan struct{}
	stopOnce sync.Once
}

// NewVisitorLimiter creates a VisitorLimiter allowing r requests per second
// with bursts of burst per IP. Idle visitors are forgotten in the background
// until Stop is called.
func NewVisitorLimiter(r rate.Limit, burst int) *VisitorLimiter {
	l := &VisitorLimiter{
		visitors: make(map[string]*visitor),
		rate:     r,
		burst:    burst,
		done:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *VisitorLimiter) cleanup() {
	ticker := time.NewTicker(visitorIdle)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case now := <-ticker.C:
			l.forgetIdle(now)
		}
	}
}

func (l *VisitorLimiter) forgetIdle(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > visitorIdle {
			delete(l.visitors, ip)
		}
	}
}

// Stop ends the background cleanup.
func (l *VisitorLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Allow reports whether ip may make a request now and consumes a token if so.
func (l *VisitorLimiter) Allow(ip string) bool {
	return l.allowAt(ip, time.Now())
}

func (l *VisitorLimiter) allowAt(ip string, now time.Time) bool {
	l.mu.Lock()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	l.mu.Unlock()
	return v.limiter.AllowN(now, 1)
}

// Middleware rejects requests over the limit with 429 and a Retry-After hint.
func (l *VisitorLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				retryAfter := max(int(1/float64(l.rate)), 1)
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
			}
			return next(c)
		}
	}
}
