// Package stats turns the raw click log into time-bucketed,
// dimension-grouped rollups for the dashboard's stats views.
package stats

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"stub-router/model"
)

// Interval maps a named lookback to its window and bucket granularity.
type Interval struct {
	Window time.Duration
	Bucket time.Duration
}

// Intervals is the fixed lookup table: short windows bucket by the hour or
// finer, long ones by the day.
var Intervals = map[string]Interval{
	"1h":  {Window: time.Hour, Bucket: time.Minute},
	"24h": {Window: 24 * time.Hour, Bucket: time.Hour},
	"7d":  {Window: 7 * 24 * time.Hour, Bucket: 24 * time.Hour},
	"30d": {Window: 30 * 24 * time.Hour, Bucket: 24 * time.Hour},
	"90d": {Window: 90 * 24 * time.Hour, Bucket: 24 * time.Hour},
}

// DefaultInterval applies when the caller does not specify one.
const DefaultInterval = "24h"

// ErrUnknownInterval is returned for intervals outside the lookup table.
var ErrUnknownInterval = errors.New("unknown interval")

// Unknown is the fallback bucket for dimension values that cannot be
// determined. Events are never dropped for missing dimensions.
const Unknown = "Unknown"

// EventSource provides range reads over the click log and link
// enumeration for the project-level fan-out.
type EventSource interface {
	Range(ctx context.Context, host, key string, startMs, endMs int64) ([]model.ClickEvent, error)
	Keys(ctx context.Context, host string) ([]string, error)
}

// Aggregator range-queries the event log and folds events into counters.
type Aggregator struct {
	events EventSource
	now    func() time.Time
}

func New(events EventSource) *Aggregator {
	return &Aggregator{events: events, now: time.Now}
}

// Aggregate rolls up clicks for one link, or for every link under host
// when key is empty. The fan-out streams one link's events at a time into
// shared counters instead of materializing every raw event at once.
func (a *Aggregator) Aggregate(ctx context.Context, host, key, interval string) (*model.Stats, error) {
	if interval == "" {
		interval = DefaultInterval
	}
	iv, ok := Intervals[interval]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInterval, interval)
	}

	end := a.now()
	start := end.Add(-iv.Window)
	c := newCounters()

	if key != "" {
		events, err := a.events.Range(ctx, host, key, start.UnixMilli(), end.UnixMilli())
		if err != nil {
			return nil, err
		}
		c.fold(events, iv.Bucket)
	} else {
		keys, err := a.events.Keys(ctx, host)
		if err != nil {
			return nil, err
		}
		for _, linkKey := range keys {
			events, err := a.events.Range(ctx, host, linkKey, start.UnixMilli(), end.UnixMilli())
			if err != nil {
				return nil, err
			}
			c.fold(events, iv.Bucket)
		}
	}

	stats := c.finalize(start, end, iv.Bucket)
	stats.Key = key
	stats.Interval = interval
	return stats, nil
}

type counters struct {
	total    int64
	series   map[int64]int64
	devices  map[string]int64
	oses     map[string]int64
	browsers map[string]int64
	places   map[string]int64
	referers map[string]int64
	utms     map[string]int64
}

func newCounters() *counters {
	return &counters{
		series:   make(map[int64]int64),
		devices:  make(map[string]int64),
		oses:     make(map[string]int64),
		browsers: make(map[string]int64),
		places:   make(map[string]int64),
		referers: make(map[string]int64),
		utms:     make(map[string]int64),
	}
}

func (c *counters) fold(events []model.ClickEvent, bucket time.Duration) {
	for _, ev := range events {
		c.total++

		ts := time.UnixMilli(ev.Timestamp).UTC().Truncate(bucket)
		c.series[ts.UnixMilli()]++

		c.devices[orUnknown(ev.UA.Device)]++
		c.oses[orUnknown(ev.UA.OS)]++
		c.browsers[orUnknown(ev.UA.Browser)]++
		c.places[orUnknown(ev.Geo.Country)]++
		c.referers[ApexDomain(ev.Referer)]++

		if ev.UTM != nil {
			for field, value := range map[string]string{
				"source":   ev.UTM.Source,
				"medium":   ev.UTM.Medium,
				"campaign": ev.UTM.Campaign,
				"content":  ev.UTM.Content,
				"term":     ev.UTM.Term,
			} {
				if value != "" {
					c.utms[field+":"+value]++
				}
			}
		}
	}
}

func (c *counters) finalize(start, end time.Time, bucket time.Duration) *model.Stats {
	// Zero-filled series across the whole window
	series := make([]model.TimeSeriesPoint, 0, int(end.Sub(start)/bucket)+1)
	for b := start.UTC().Truncate(bucket); !b.After(end); b = b.Add(bucket) {
		series = append(series, model.TimeSeriesPoint{
			Start:  b.UnixMilli(),
			Clicks: c.series[b.UnixMilli()],
		})
	}

	return &model.Stats{
		TotalClicks:    c.total,
		ClicksOverTime: series,
		Devices:        breakdown(c.devices),
		OSes:           breakdown(c.oses),
		Browsers:       breakdown(c.browsers),
		Locations:      breakdown(c.places),
		Referers:       breakdown(c.referers),
		UTMs:           breakdown(c.utms),
	}
}

// breakdown sorts dimension counters by clicks descending, then value
// ascending for a stable order.
func breakdown(m map[string]int64) []model.Breakdown {
	out := make([]model.Breakdown, 0, len(m))
	for value, clicks := range m {
		out = append(out, model.Breakdown{Value: value, Clicks: clicks})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Clicks != out[j].Clicks {
			return out[i].Clicks > out[j].Clicks
		}
		return out[i].Value < out[j].Value
	})
	return out
}

func orUnknown(v string) string {
	if v == "" {
		return Unknown
	}
	return v
}

// secondLevelDomains marks registries like co.uk where the apex needs
// three labels.
var secondLevelDomains = map[string]bool{
	"com": true, "net": true, "org": true, "co": true, "gov": true,
	"edu": true, "ac": true, "mil": true, "or": true, "ne": true,
}

var ccTLDs = map[string]bool{
	"uk": true, "au": true, "br": true, "ca": true, "cn": true,
	"de": true, "es": true, "fr": true, "in": true, "jp": true,
	"kr": true, "mx": true, "nl": true, "nz": true, "ru": true,
	"se": true, "tt": true, "ua": true, "us": true, "za": true,
}

// ApexDomain reduces a referrer URL to its apex domain, so every page of a
// referring site lands in one bucket. Empty or unparsable referrers fall
// back to the Unknown bucket.
func ApexDomain(referer string) string {
	if referer == "" {
		return Unknown
	}
	parsed, err := url.Parse(referer)
	if err != nil || parsed.Hostname() == "" {
		return Unknown
	}

	host := parsed.Hostname()
	parts := strings.Split(host, ".")
	if len(parts) > 2 {
		// Second-level registries (e.g. co.uk, com.ua) keep three labels
		if secondLevelDomains[parts[len(parts)-2]] && ccTLDs[parts[len(parts)-1]] {
			return strings.Join(parts[len(parts)-3:], ".")
		}
		return strings.Join(parts[len(parts)-2:], ".")
	}
	return host
}
