package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/phrazzld/pathwise/internal/api/shared"
	"github.com/phrazzld/pathwise/internal/config"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an unused per-key limiter is kept.
const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per authenticated user, falling back to
// the client address for anonymous requests.
type RateLimiter struct {
	mu        sync.Mutex
	limits    map[string]*limiterEntry
	rps       rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

// NewRateLimiter creates a RateLimiter from cfg. A nil now uses time.Now.
func NewRateLimiter(cfg config.RateLimitConfig, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		limits:    make(map[string]*limiterEntry),
		rps:       rate.Limit(cfg.RequestsPerSecond),
		burst:     cfg.Burst,
		now:       now,
		lastSweep: now(),
	}
}

// Allow reports whether a request for key may proceed.
func (rl *RateLimiter) Allow(key string) bool {
	now := rl.now()
	return rl.getLimiter(key, now).AllowN(now, 1)
}

// getLimiter gets or creates a limiter for the given key and drops limiters
// idle for longer than limiterIdleTTL.
func (rl *RateLimiter) getLimiter(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) > limiterIdleTTL {
		for k, e := range rl.limits {
			if now.Sub(e.lastSeen) > limiterIdleTTL {
				delete(rl.limits, k)
			}
		}
		rl.lastSweep = now
	}

	if e, ok := rl.limits[key]; ok {
		e.lastSeen = now
		return e.limiter
	}
	e := &limiterEntry{limiter: rate.NewLimiter(rl.rps, rl.burst), lastSeen: now}
	rl.limits[key] = e
	return e.limiter
}

// Len returns the number of tracked keys.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limits)
}

// retryAfterSeconds is the time for one token to refill, rounded up.
func (rl *RateLimiter) retryAfterSeconds() int {
	if rl.rps <= 0 {
		return 1
	}
	return int(math.Max(1, math.Ceil(1/float64(rl.rps))))
}

// Middleware rejects requests over the limit with 429 and a Retry-After
// header. Mount it after Authenticate so limits apply per user.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !rl.Allow(key) {
			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfterSeconds()))
			shared.RespondWithErrorAndLog(w, r, http.StatusTooManyRequests, shared.CodeRateLimited,
				"Too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if identity, ok := shared.GetIdentity(r.Context()); ok {
		return "user:" + identity.UserID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}
