package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"stub-router/cooldown"
	"stub-router/utils"

	"github.com/rs/zerolog/log"
)

// Cooldown applies the fixed-window counter to the public redirect route.
type Cooldown struct {
	tracker     *cooldown.Tracker
	enabled     bool
	trustProxy  bool
	proxyHeader string
	timeout     time.Duration
}

func NewCooldown(tracker *cooldown.Tracker, enabled, trustProxy bool, proxyHeader string, timeout time.Duration) *Cooldown {
	return &Cooldown{
		tracker:     tracker,
		enabled:     enabled,
		trustProxy:  trustProxy,
		proxyHeader: proxyHeader,
		timeout:     timeout,
	}
}

// Limit consumes one use per request. The rate-limit headers are set on
// every response so clients can pace themselves; an exhausted window gets
// a 429, and a store failure fails closed with a 500 rather than letting
// requests through unlimited.
func (c *Cooldown) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.enabled {
			next.ServeHTTP(w, r)
			return
		}

		ip := utils.ClientIP(r, c.trustProxy, c.proxyHeader)

		ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
		result, err := c.tracker.CheckAndConsume(ctx, ip)
		cancel()
		if err != nil {
			log.Error().Err(err).Str("ip", ip).Msg("Cooldown store unavailable")
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error": "Internal server error"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			log.Warn().Str("ip", ip).Msg("Cooldown exhausted")
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error": "Rate limit exceeded. Please try again later."}`, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
