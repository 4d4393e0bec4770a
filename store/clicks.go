package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"stub-router/model"

	"github.com/go-redis/redis/v8"
)

// Clicks is the append-only click log: one sorted set per link, scored and
// ordered by timestamp.
type Clicks struct {
	redis  *redis.Client
	prefix string
}

func NewClicks(rdb *redis.Client, keyPrefix string) *Clicks {
	return &Clicks{redis: rdb, prefix: keyPrefix}
}

func (c *Clicks) key(host, key string) string {
	return c.prefix + host + ":clicks:" + key
}

// Append stores one click event. The ZADD NX makes a duplicate recording
// at the same timestamp with the same payload a no-op, so client retries
// collapse to a single entry.
func (c *Clicks) Append(ctx context.Context, host, key string, event model.ClickEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode click event: %w", err)
	}

	err = c.redis.ZAddNX(ctx, c.key(host, key), &redis.Z{
		Score:  float64(event.Timestamp),
		Member: string(data),
	}).Err()
	if err != nil {
		return fmt.Errorf("append click event: %w", err)
	}
	return nil
}

// Range returns the events recorded in [startMs, endMs], oldest first.
// Events that fail to decode are skipped rather than failing the read.
func (c *Clicks) Range(ctx context.Context, host, key string, startMs, endMs int64) ([]model.ClickEvent, error) {
	raw, err := c.redis.ZRangeByScore(ctx, c.key(host, key), &redis.ZRangeBy{
		Min: strconv.FormatInt(startMs, 10),
		Max: strconv.FormatInt(endMs, 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range click events: %w", err)
	}

	events := make([]model.ClickEvent, 0, len(raw))
	for _, member := range raw {
		var event model.ClickEvent
		if err := json.Unmarshal([]byte(member), &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// Count returns the total number of recorded clicks for one link.
func (c *Clicks) Count(ctx context.Context, host, key string) (int64, error) {
	n, err := c.redis.ZCard(ctx, c.key(host, key)).Result()
	if err != nil {
		return 0, fmt.Errorf("count click events: %w", err)
	}
	return n, nil
}

// Keys enumerates the link keys under host that have a click log, for the
// project-level aggregation fan-out.
func (c *Clicks) Keys(ctx context.Context, host string) ([]string, error) {
	pattern := c.prefix + host + ":clicks:*"
	trim := c.prefix + host + ":clicks:"

	var keys []string
	var cursor uint64
	for {
		batch, next, err := c.redis.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan click logs: %w", err)
		}
		for _, full := range batch {
			keys = append(keys, strings.TrimPrefix(full, trim))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}
