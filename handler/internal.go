package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"stub-router/stats"
	"stub-router/store"
	"stub-router/utils"

	"github.com/rs/zerolog/log"
)

// ClickCounter exposes the raw per-link click count.
type ClickCounter interface {
	Count(ctx context.Context, host, key string) (int64, error)
}

// InternalHandler serves the /_stub surface consumed by the dashboard
// backend. Every route sits behind the shared-secret middleware.
type InternalHandler struct {
	links   LinkSource
	clicks  ClickCounter
	agg     *stats.Aggregator
	timeout time.Duration
}

func NewInternalHandler(links LinkSource, clicks ClickCounter, agg *stats.Aggregator, timeout time.Duration) *InternalHandler {
	return &InternalHandler{links: links, clicks: clicks, agg: agg, timeout: timeout}
}

// Healthcheck answers HEAD /_stub. The secret middleware has already
// matched the app hostname, so reaching this handler means the dashboard
// is talking to the edge instance it expects.
func (h *InternalHandler) Healthcheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// VerifyPasswordRequest is the out-of-band password check payload.
type VerifyPasswordRequest struct {
	Host     string `json:"host"`
	Key      string `json:"key"`
	Password string `json:"password"`
}

// VerifyPassword handles POST /_stub/verify-password for non-browser
// callers: 200 with the destination on a match, 401 on a mismatch.
func (h *InternalHandler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req VerifyPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if req.Host == "" || req.Key == "" || req.Password == "" {
		SendJSONError(w, http.StatusBadRequest, errors.New("missing fields"), "host, key and password are required")
		return
	}

	rec, err := h.links.Record(ctx, req.Host, req.Key)
	if errors.Is(err, store.ErrLinkNotFound) {
		SendJSONError(w, http.StatusNotFound, errors.New("link not found"), "")
		return
	} else if err != nil {
		log.Error().Err(err).Str("host", req.Host).Str("key", req.Key).Msg("Failed to read link record for verification")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to retrieve link")
		return
	}

	if rec.Archived || rec.Expired(time.Now()) {
		SendJSONError(w, http.StatusNotFound, errors.New("link not found"), "")
		return
	}
	if rec.Password == "" {
		SendJSONError(w, http.StatusBadRequest, errors.New("not protected"), "This link is not password-protected")
		return
	}

	if !utils.PasswordMatches(rec.Password, req.Password) {
		log.Info().Str("host", req.Host).Str("key", req.Key).Msg("Failed password verification attempt")
		SendJSONError(w, http.StatusUnauthorized, errors.New("invalid password"), "")
		return
	}

	SendJSONSuccess(w, http.StatusOK, map[string]string{"url": rec.URL})
}

// Stats handles GET /_stub/stats?host=&key=&interval=. An empty key rolls
// up every link under the host.
func (h *InternalHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	host := r.URL.Query().Get("host")
	if host == "" {
		SendJSONError(w, http.StatusBadRequest, errors.New("missing host"), "host is required")
		return
	}
	key := r.URL.Query().Get("key")
	interval := r.URL.Query().Get("interval")

	result, err := h.agg.Aggregate(ctx, host, key, interval)
	if errors.Is(err, stats.ErrUnknownInterval) {
		SendJSONError(w, http.StatusBadRequest, err, "")
		return
	} else if err != nil {
		log.Error().Err(err).Str("host", host).Str("key", key).Msg("Failed to aggregate stats")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to aggregate stats")
		return
	}

	SendJSONSuccess(w, http.StatusOK, result)
}

// Clicks handles GET /_stub/clicks?host=&key= with the raw click count
// the dashboard caches onto the link row.
func (h *InternalHandler) Clicks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	host := r.URL.Query().Get("host")
	key := r.URL.Query().Get("key")
	if host == "" || key == "" {
		SendJSONError(w, http.StatusBadRequest, errors.New("missing fields"), "host and key are required")
		return
	}

	count, err := h.clicks.Count(ctx, host, key)
	if err != nil {
		log.Error().Err(err).Str("host", host).Str("key", key).Msg("Failed to count clicks")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to count clicks")
		return
	}

	SendJSONSuccess(w, http.StatusOK, map[string]int64{"clicks": count})
}
