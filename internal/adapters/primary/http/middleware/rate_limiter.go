package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter throttles requests per client IP. The public API takes the
// brunt of scripted report spam, so each IP gets its own token bucket and
// idle buckets are swept periodically like the refresh-token store.
type RateLimiter struct {
	callers map[string]*caller
	mu      sync.Mutex
	rate    rate.Limit
	burst   int
}

type caller struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterConfig holds rate limiter tuning
type RateLimiterConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	CleanupInterval   time.Duration // how often idle callers are swept
	TTL               time.Duration // idle time before a caller is dropped
}

// NewRateLimiter creates a limiter and starts its sweep loop
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		callers: make(map[string]*caller),
		rate:    rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.BurstSize,
	}

	go rl.sweepCallers(cfg.CleanupInterval, cfg.TTL)

	return rl
}

// Allow reports whether a request from the given IP fits its bucket
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.callers[ip]
	if !ok {
		c = &caller{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.callers[ip] = c
	}
	c.lastSeen = time.Now()
	return c.limiter.Allow()
}

func (rl *RateLimiter) sweepCallers(interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		for ip, c := range rl.callers {
			if time.Since(c.lastSeen) > ttl {
				delete(rl.callers, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// Middleware rejects over-limit requests with a 429 and a Retry-After hint
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"Too many requests. Please try again later.","code":"RATE_LIMITED"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP resolves the reporting client's IP. Proxy headers win over
// RemoteAddr because the service runs behind a reverse proxy in
// production deployments.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First hop in the chain is the original client
		first := xff
		if idx := strings.IndexByte(xff, ','); idx >= 0 {
			first = xff[:idx]
		}
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
