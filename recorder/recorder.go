// Package recorder turns served requests into durable click events without
// touching the response path. Recording is fire-and-forget: events are
// handed to a background worker, failures are logged and never surfaced.
package recorder

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"stub-router/geo"
	"stub-router/model"
	"stub-router/store"
	"stub-router/ua"

	"github.com/rs/zerolog/log"
)

// utm_* query values are individually capped to keep hostile query strings
// out of the event log.
const maxUTMLength = 256

// click carries everything copied out of the request at enqueue time. The
// *http.Request itself must not cross the queue: it is invalid once the
// handler returns.
type click struct {
	host      string
	key       string
	ip        string
	userAgent string
	referer   string
	query     url.Values
	timestamp int64
}

type Recorder struct {
	clicks  *store.Clicks
	geo     *geo.Resolver
	timeout time.Duration
	queue   chan click
	wg      sync.WaitGroup
}

// New starts the background worker. queueSize bounds how many pending
// clicks may be buffered before new ones are dropped.
func New(clicks *store.Clicks, resolver *geo.Resolver, queueSize int, appendTimeout time.Duration) *Recorder {
	r := &Recorder{
		clicks:  clicks,
		geo:     resolver,
		timeout: appendTimeout,
		queue:   make(chan click, queueSize),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Record enqueues one click. It copies what it needs from the request and
// returns immediately; it never blocks the caller, even with a full queue.
func (r *Recorder) Record(host, key string, req *http.Request, ip string) {
	c := click{
		host:      host,
		key:       key,
		ip:        ip,
		userAgent: req.Header.Get("User-Agent"),
		referer:   req.Header.Get("Referer"),
		query:     req.URL.Query(),
		timestamp: time.Now().UnixMilli(),
	}

	select {
	case r.queue <- c:
	default:
		log.Warn().
			Str("host", host).
			Str("key", key).
			Msg("Click queue full, dropping event")
	}
}

// Close drains the queue and stops the worker.
func (r *Recorder) Close() {
	close(r.queue)
	r.wg.Wait()
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for c := range r.queue {
		event := r.build(c)

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		err := r.clicks.Append(ctx, c.host, c.key, event)
		cancel()
		if err != nil {
			log.Error().Err(err).
				Str("host", c.host).
				Str("key", c.key).
				Msg("Failed to record click")
		}
	}
}

func (r *Recorder) build(c click) model.ClickEvent {
	event := model.ClickEvent{
		Timestamp: c.timestamp,
		Geo:       r.geo.Lookup(c.ip),
		UA:        ua.Parse(c.userAgent),
		Referer:   c.referer,
	}

	utm := model.UTM{
		Source:   capUTM(c.query.Get("utm_source")),
		Medium:   capUTM(c.query.Get("utm_medium")),
		Campaign: capUTM(c.query.Get("utm_campaign")),
		Content:  capUTM(c.query.Get("utm_content")),
		Term:     capUTM(c.query.Get("utm_term")),
	}
	if !utm.Empty() {
		event.UTM = &utm
	}

	return event
}

func capUTM(v string) string {
	runes := []rune(v)
	if len(runes) > maxUTMLength {
		return string(runes[:maxUTMLength])
	}
	return v
}
