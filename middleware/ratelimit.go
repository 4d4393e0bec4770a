package middleware

import (
	"net/http"
	"sync"

	"stub-router/utils"

	"golang.org/x/time/rate"
)

// RateLimiter implements per-IP rate limiting for the internal endpoints.
// The public link route does not use it: the cooldown's bursty fixed
// window is the intended behavior there.
type RateLimiter struct {
	limiters    map[string]*rate.Limiter
	mu          sync.RWMutex
	r           rate.Limit
	b           int
	trustProxy  bool
	proxyHeader string
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requestsPerSecond float64, burst int, trustProxy bool, proxyHeader string) *RateLimiter {
	return &RateLimiter{
		limiters:    make(map[string]*rate.Limiter),
		r:           rate.Limit(requestsPerSecond),
		b:           burst,
		trustProxy:  trustProxy,
		proxyHeader: proxyHeader,
	}
}

// getLimiter returns the rate limiter for a given IP
func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[ip]
	if !exists {
		limiter = rate.NewLimiter(rl.r, rl.b)
		rl.limiters[ip] = limiter
	}

	return limiter
}

// Limit is a middleware that rate limits requests
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := utils.ClientIP(r, rl.trustProxy, rl.proxyHeader)

		limiter := rl.getLimiter(ip)

		if !limiter.Allow() {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error": "Rate limit exceeded. Please try again later."}`, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
