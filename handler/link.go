package handler

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stub-router/config"
	"stub-router/model"
	"stub-router/store"
	"stub-router/ua"
	"stub-router/utils"

	"github.com/rs/zerolog/log"
)

// PasswordCookie holds the verified password for a protected link. It is
// path-scoped to the link key so a session for one link never grants
// access to another link on the same host.
const PasswordCookie = "stub_link_password"

const passwordCookieMaxAge = 7 * 24 * time.Hour

// LinkSource resolves link configuration: the hot record for routing and
// the full record for passwords and preview metadata.
type LinkSource interface {
	Resolve(ctx context.Context, host, key string) (*model.Link, error)
	Record(ctx context.Context, host, key string) (*model.LinkRecord, error)
}

// ClickRecorder accepts fire-and-forget click recordings.
type ClickRecorder interface {
	Record(host, key string, r *http.Request, ip string)
}

// LinkHandler serves the public edge: resolve, gate, negotiate, redirect.
type LinkHandler struct {
	links    LinkSource
	recorder ClickRecorder
	config   config.Config
}

func NewLinkHandler(links LinkSource, rec ClickRecorder, cfg config.Config) *LinkHandler {
	return &LinkHandler{links: links, recorder: rec, config: cfg}
}

// ServeLink handles every request that is not an internal endpoint.
func (h *LinkHandler) ServeLink(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationTimeout)*time.Second)
	defer cancel()

	host, key := parseTarget(r)
	if host == "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte("No domain was provided, so we don't know what to do here."))
		return
	}

	link, err := h.links.Resolve(ctx, host, key)
	if errors.Is(err, store.ErrLinkNotFound) {
		log.Warn().Str("host", host).Str("key", key).Msg("Link not found")
		http.NotFound(w, r)
		return
	} else if err != nil {
		log.Error().Err(err).Str("host", host).Str("key", key).Msg("Failed to resolve link")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal server error"))
		return
	}

	switch {
	case link.Password:
		if !h.servePasswordGate(ctx, w, r, host, key, link) {
			return // infrastructure failure, already reported
		}
	case link.Proxy && ua.IsCrawler(r.UserAgent()):
		h.serveEmbed(ctx, w, r, host, key)
	default:
		http.Redirect(w, r, link.URL, http.StatusFound)
	}

	// Recording is decoupled from the response; the redirect has already
	// been written by the time this enqueues.
	ip := utils.ClientIP(r, h.config.WebServer.TrustProxy, h.config.WebServer.TrustProxyHeader)
	h.recorder.Record(host, key, r, ip)
}

// servePasswordGate walks the authorization states for a protected link:
// valid cookie, then query-supplied password, then the challenge page.
// It returns false only when the record read failed hard.
func (h *LinkHandler) servePasswordGate(ctx context.Context, w http.ResponseWriter, r *http.Request, host, key string, link *model.Link) bool {
	rec, err := h.links.Record(ctx, host, key)
	if err != nil && !errors.Is(err, store.ErrLinkNotFound) {
		log.Error().Err(err).Str("host", host).Str("key", key).Msg("Failed to read link record for password check")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal server error"))
		return false
	}

	stored := ""
	if rec != nil {
		stored = rec.Password
	}

	if cookie, cookieErr := r.Cookie(PasswordCookie); cookieErr == nil && cookie.Value != "" {
		if utils.PasswordMatches(stored, cookie.Value) {
			http.Redirect(w, r, link.URL, http.StatusFound)
			return true
		}
	}

	attempted := r.URL.Query().Get("password")
	if attempted != "" && utils.PasswordMatches(stored, attempted) {
		http.SetCookie(w, &http.Cookie{
			Name:    PasswordCookie,
			Value:   attempted,
			Path:    "/" + url.PathEscape(key),
			Expires: time.Now().Add(passwordCookieMaxAge),
		})
		http.Redirect(w, r, link.URL, http.StatusFound)
		return true
	}

	// Invalidate a stale cookie so the browser stops replaying it
	if _, cookieErr := r.Cookie(PasswordCookie); cookieErr == nil {
		http.SetCookie(w, &http.Cookie{
			Name:    PasswordCookie,
			Value:   "",
			Path:    "/" + url.PathEscape(key),
			Expires: time.Unix(0, 0),
		})
	}
	renderPasswordPage(w, attempted)
	return true
}

func (h *LinkHandler) serveEmbed(ctx context.Context, w http.ResponseWriter, r *http.Request, host, key string) {
	rec, err := h.links.Record(ctx, host, key)
	if errors.Is(err, store.ErrLinkNotFound) {
		http.NotFound(w, r)
		return
	} else if err != nil {
		log.Error().Err(err).Str("host", host).Str("key", key).Msg("Failed to read link record for embed")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal server error"))
		return
	}
	renderEmbed(w, rec)
}

// parseTarget splits the request into the lookup host and key. An empty
// path maps to the :index sentinel so domain roots redirect too.
func parseTarget(r *http.Request) (host, key string) {
	host = r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	key = strings.TrimPrefix(r.URL.Path, "/")
	if key == "" {
		key = store.IndexKey
	}
	return host, key
}
