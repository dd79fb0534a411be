// Package gateway - ratelimit.go is a per-caller request-per-minute limiter.
package gateway

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/satmarket/assistant-gateway/internal/auth"
)

// rateLimiter is a token bucket per caller. Buckets refill continuously at
// perMinute/60 tokens per second up to a burst of perMinute.
type rateLimiter struct {
	perMinute  int
	maxBuckets int

	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	tokens   float64
	lastFill time.Time
}

func newRateLimiter(perMinute, maxBuckets int) *rateLimiter {
	return &rateLimiter{
		perMinute:  perMinute,
		maxBuckets: maxBuckets,
		buckets:    make(map[string]*bucket),
		now:        time.Now,
	}
}

// Allow consumes one token for callerID if available.
func (rl *rateLimiter) Allow(callerID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[callerID]
	if !ok {
		if len(rl.buckets) >= rl.maxBuckets {
			// Bound memory under caller-id churn. Dropping all buckets
			// briefly over-admits, which is the cheaper failure.
			rl.buckets = make(map[string]*bucket)
		}
		b = &bucket{tokens: float64(rl.perMinute), lastFill: now}
		rl.buckets[callerID] = b
	}

	elapsed := now.Sub(b.lastFill).Seconds()
	b.tokens += elapsed * float64(rl.perMinute) / 60
	if b.tokens > float64(rl.perMinute) {
		b.tokens = float64(rl.perMinute)
	}
	b.lastFill = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (g *Gateway) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, _ := auth.CallerFrom(r.Context())
		if !g.limiter.Allow(caller.ID) {
			log.Debug().Str("caller", caller.ID).Msg("request rate limited")
			g.writeError(w, r, &apiError{
				Kind:       ErrRateLimited,
				Message:    "too many requests, slow down",
				RetryAfter: 10 * time.Second,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
