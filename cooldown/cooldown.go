// Package cooldown implements the per-IP fixed-window counter that
// throttles the public redirect path. Counters live in Redis with a TTL
// equal to the remaining window, so idle entries clean themselves up.
package cooldown

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// record is the stored counter: remaining uses and the absolute window end.
type record struct {
	Uses    int   `json:"uses"`
	Expires int64 `json:"expires"` // Unix milliseconds
}

// Result reports the outcome of one consume attempt.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   int64 // Unix milliseconds when the window rolls over
}

// Tracker counts requests per client key in a fixed window. Rollover
// grants the full burst immediately; this is the intended bursty behavior,
// not a token bucket. The read-then-write update is deliberately not
// wrapped in a cross-request lock: concurrent requests from one IP may
// race on the pre-decrement value, which is an accepted soft limit.
type Tracker struct {
	redis   *redis.Client
	prefix  string
	window  time.Duration
	maxUses int
	now     func() time.Time
}

// New creates a tracker storing counters under prefix+"cooldown:".
func New(rdb *redis.Client, prefix string, windowMs int64, maxUses int) *Tracker {
	return &Tracker{
		redis:   rdb,
		prefix:  prefix,
		window:  time.Duration(windowMs) * time.Millisecond,
		maxUses: maxUses,
		now:     time.Now,
	}
}

// Limit returns the configured window size.
func (t *Tracker) Limit() int { return t.maxUses }

func (t *Tracker) key(clientKey string) string {
	return t.prefix + "cooldown:" + clientKey
}

// CheckAndConsume reads the counter for clientKey, reinitializing it to a
// full window when absent or elapsed, and consumes one use. An exhausted
// counter denies without mutating state. Store errors are returned so the
// caller can fail closed; the limiter is never silently skipped.
func (t *Tracker) CheckAndConsume(ctx context.Context, clientKey string) (Result, error) {
	now := t.now()
	nowMs := now.UnixMilli()
	key := t.key(clientKey)

	var rec record
	raw, err := t.redis.Get(ctx, key).Result()
	switch {
	case err == redis.Nil:
		rec = record{Uses: t.maxUses, Expires: nowMs + t.window.Milliseconds()}
	case err != nil:
		return Result{}, fmt.Errorf("cooldown read: %w", err)
	default:
		if unmarshalErr := json.Unmarshal([]byte(raw), &rec); unmarshalErr != nil || rec.Expires <= nowMs {
			// Corrupt or elapsed window: full burst on rollover
			rec = record{Uses: t.maxUses, Expires: nowMs + t.window.Milliseconds()}
		}
	}

	if rec.Uses <= 0 && nowMs < rec.Expires {
		return Result{
			Allowed:   false,
			Limit:     t.maxUses,
			Remaining: 0,
			ResetAt:   rec.Expires,
		}, nil
	}

	rec.Uses--
	data, err := json.Marshal(rec)
	if err != nil {
		return Result{}, fmt.Errorf("cooldown marshal: %w", err)
	}

	ttl := time.Duration(rec.Expires-nowMs) * time.Millisecond
	if err := t.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		return Result{}, fmt.Errorf("cooldown write: %w", err)
	}

	remaining := rec.Uses
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   true,
		Limit:     t.maxUses,
		Remaining: remaining,
		ResetAt:   rec.Expires,
	}, nil
}
