package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stub-router/cache"
	"stub-router/model"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// IndexKey is the sentinel key for the bare host root, so domain-root
// redirects resolve like any other link.
const IndexKey = ":index"

// ErrLinkNotFound is returned when no link exists for a (host, key) pair.
var ErrLinkNotFound = errors.New("link not found")

// RowQuerier is the slice of the pgx pool the link store needs.
type RowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Links reads link configuration written by the dashboard. The hot record
// in Redis drives routing; the relational row supplies the password value
// and the preview triple, behind a short-lived read-through cache.
type Links struct {
	redis  *redis.Client
	db     RowQuerier
	cache  *cache.Cache
	prefix string
}

func NewLinks(rdb *redis.Client, db RowQuerier, c *cache.Cache, keyPrefix string) *Links {
	return &Links{redis: rdb, db: db, cache: c, prefix: keyPrefix}
}

// Resolve looks up the hot record for (host, key). An empty key is the
// caller's responsibility to map to IndexKey first.
func (l *Links) Resolve(ctx context.Context, host, key string) (*model.Link, error) {
	raw, err := l.redis.Get(ctx, l.prefix+host+":"+key).Result()
	if err == redis.Nil {
		return nil, ErrLinkNotFound
	} else if err != nil {
		return nil, fmt.Errorf("resolve link: %w", err)
	}

	var link model.Link
	if err := json.Unmarshal([]byte(raw), &link); err != nil {
		return nil, fmt.Errorf("decode link record: %w", err)
	}
	return &link, nil
}

const recordQuery = `SELECT url, archived, "expiresAt", password, title, description, image
FROM "Link" WHERE domain = $1 AND key = $2`

// Record fetches the full relational row for (host, key).
func (l *Links) Record(ctx context.Context, host, key string) (*model.LinkRecord, error) {
	cacheKey := "record:" + host + ":" + key
	if cached, found := l.cache.Get(cacheKey); found {
		if rec, ok := cached.(model.LinkRecord); ok {
			log.Debug().Str("host", host).Str("key", key).Msg("Link record cache hit")
			return &rec, nil
		}
	}

	rec := model.LinkRecord{Domain: host, Key: key}
	var (
		expiresAt   *time.Time
		password    *string
		title       *string
		description *string
		image       *string
	)
	err := l.db.QueryRow(ctx, recordQuery, host, key).
		Scan(&rec.URL, &rec.Archived, &expiresAt, &password, &title, &description, &image)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLinkNotFound
	} else if err != nil {
		return nil, fmt.Errorf("read link record: %w", err)
	}

	rec.ExpiresAt = expiresAt
	if password != nil {
		rec.Password = *password
	}
	if title != nil {
		rec.Title = *title
	}
	if description != nil {
		rec.Description = *description
	}
	if image != nil {
		rec.Image = *image
	}

	l.cache.Set(cacheKey, rec, 1024)
	return &rec, nil
}
