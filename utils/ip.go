package utils

import (
	"net"
	"net/http"
)

// ClientIP extracts the caller's IP. When the service is deployed behind a
// trusted reverse proxy, the configured header (e.g. cf-connecting-ip)
// wins; otherwise the socket address is authoritative. Untrusted headers
// are ignored so callers cannot spoof their way past the cooldown.
func ClientIP(r *http.Request, trustProxy bool, proxyHeader string) string {
	if trustProxy && proxyHeader != "" {
		if v := r.Header.Get(proxyHeader); v != "" {
			return v
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
