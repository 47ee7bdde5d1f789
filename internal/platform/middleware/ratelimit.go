package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/ehr/epsviewer/internal/platform/fhir"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// IdleTTL is how long an unused client limiter is kept. Zero means
	// ten minutes.
	IdleTTL time.Duration
}

// DefaultRateLimitConfig returns default rate limiting settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 20,
		BurstSize:         40,
		IdleTTL:           10 * time.Minute,
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore holds one token bucket per client key.
type limiterStore struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	cfg     RateLimitConfig
	lastGC  time.Time
}

func newLimiterStore(cfg RateLimitConfig) *limiterStore {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	return &limiterStore{
		clients: make(map[string]*clientLimiter),
		cfg:     cfg,
		lastGC:  time.Now(),
	}
}

func (s *limiterStore) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastGC) > s.cfg.IdleTTL {
		for k, cl := range s.clients {
			if now.Sub(cl.lastSeen) > s.cfg.IdleTTL {
				delete(s.clients, k)
			}
		}
		s.lastGC = now
	}

	cl, ok := s.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(s.cfg.RequestsPerSecond), s.cfg.BurstSize)}
		s.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// RateLimit limits each client IP to cfg.RequestsPerSecond with bursts of
// cfg.BurstSize. Rejected requests get a 429 OperationOutcome and a
// Retry-After header.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := newLimiterStore(cfg)
	limitHeader := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', -1, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			now := time.Now()
			lim := store.get(c.RealIP(), now)
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limitHeader)

			res := lim.ReserveN(now, 1)
			if delay := res.DelayFrom(now); !res.OK() || delay > 0 {
				res.CancelAt(now)
				retryAfter := 1
				if res.OK() {
					retryAfter = int(math.Ceil(delay.Seconds()))
				}
				h.Set("Retry-After", strconv.Itoa(retryAfter))
				h.Set("X-RateLimit-Remaining", "0")
				return c.JSON(http.StatusTooManyRequests,
					fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeThrottled, "rate limit exceeded"))
			}

			h.Set("X-RateLimit-Remaining", strconv.Itoa(int(lim.TokensAt(now))))
			return next(c)
		}
	}
}
