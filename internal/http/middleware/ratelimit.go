package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL      = 10 * time.Minute
	limiterSweepEvery   = 5 * time.Minute
	rateLimitedResponse = "rate limit exceeded"
)

// RateLimiter hands out one token bucket per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows rps requests per second per IP with the given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		limit:    rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

// Allow reports whether a request from ip fits in its bucket.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	now := rl.now()
	cl, ok := rl.limiters[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[ip] = cl
	}
	cl.lastSeen = now
	rl.mu.Unlock()
	return cl.limiter.AllowN(now, 1)
}

// Sweep drops buckets idle for longer than limiterIdleTTL.
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-limiterIdleTTL)
	removed := 0
	for ip, cl := range rl.limiters {
		if cl.lastSeen.Before(cutoff) {
			delete(rl.limiters, ip)
			removed++
		}
	}
	return removed
}

// Run sweeps idle buckets until ctx is cancelled.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Sweep()
		}
	}
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, rateLimitedResponse, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit builds a limiter whose sweeper stops with ctx.
func RateLimit(ctx context.Context, rps float64, burst int) func(http.Handler) http.Handler {
	rl := NewRateLimiter(rps, burst)
	go rl.Run(ctx)
	return rl.Middleware
}

// clientIP prefers X-Real-Ip, which chi's RealIP middleware sets.
func clientIP(r *http.Request) string {
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
