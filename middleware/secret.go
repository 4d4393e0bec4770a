package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// MatchHeader is sent by the dashboard backend to prove it is talking to
// the edge instance it expects.
const MatchHeader = "X-Stub-Matches-App"

// RequireAppSecret guards the internal endpoints: the request must carry
// the shared app hostname in the match header. Mismatches get a plain 404
// so the internal surface stays invisible to probes.
func RequireAppSecret(appHostname string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if appHostname == "" || r.Header.Get(MatchHeader) != appHostname {
				log.Warn().Str("path", r.URL.Path).Msg("Internal endpoint called without a valid app secret")
				http.NotFound(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
