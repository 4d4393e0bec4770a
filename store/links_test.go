package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5"
)

func newTestLinks(t *testing.T, db RowQuerier) (*Links, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewLinks(rdb, db, nil, ""), mr
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name         string
		stored       string
		wantURL      string
		wantPassword bool
		wantProxy    bool
	}{
		{
			name:    "plain link",
			stored:  `{"url":"https://example.com/landing"}`,
			wantURL: "https://example.com/landing",
		},
		{
			name:         "password protected",
			stored:       `{"url":"https://example.com/landing","password":true}`,
			wantURL:      "https://example.com/landing",
			wantPassword: true,
		},
		{
			name:      "proxied preview",
			stored:    `{"url":"https://example.com/landing","proxy":true}`,
			wantURL:   "https://example.com/landing",
			wantProxy: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links, mr := newTestLinks(t, nil)
			mr.Set("s.example.com:promo", tt.stored)

			link, err := links.Resolve(context.Background(), "s.example.com", "promo")
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if link.URL != tt.wantURL {
				t.Errorf("URL = %q, want %q", link.URL, tt.wantURL)
			}
			if link.Password != tt.wantPassword {
				t.Errorf("Password = %v, want %v", link.Password, tt.wantPassword)
			}
			if link.Proxy != tt.wantProxy {
				t.Errorf("Proxy = %v, want %v", link.Proxy, tt.wantProxy)
			}
		})
	}
}

func TestResolve_NotFound(t *testing.T) {
	links, _ := newTestLinks(t, nil)

	_, err := links.Resolve(context.Background(), "s.example.com", "missing")
	if !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("Resolve() error = %v, want ErrLinkNotFound", err)
	}
}

func TestResolve_IndexKey(t *testing.T) {
	links, mr := newTestLinks(t, nil)
	mr.Set("s.example.com::index", `{"url":"https://example.com"}`)

	link, err := links.Resolve(context.Background(), "s.example.com", IndexKey)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if link.URL != "https://example.com" {
		t.Errorf("URL = %q, want %q", link.URL, "https://example.com")
	}
}

// fakeRow satisfies pgx.Row for a single canned record.
type fakeRow struct {
	err  error
	scan func(dest ...any)
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	r.scan(dest...)
	return nil
}

type fakeDB struct {
	row fakeRow
}

func (db fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return db.row
}

func TestRecord(t *testing.T) {
	expires := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	password := "hunter2"
	title := "Launch"
	description := "A launch page"
	image := "https://example.com/launch.png"

	db := fakeDB{row: fakeRow{scan: func(dest ...any) {
		*dest[0].(*string) = "https://example.com/landing"
		*dest[1].(*bool) = false
		*dest[2].(**time.Time) = &expires
		*dest[3].(**string) = &password
		*dest[4].(**string) = &title
		*dest[5].(**string) = &description
		*dest[6].(**string) = &image
	}}}
	links, _ := newTestLinks(t, db)

	rec, err := links.Record(context.Background(), "s.example.com", "promo")
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if rec.URL != "https://example.com/landing" {
		t.Errorf("URL = %q", rec.URL)
	}
	if rec.Password != "hunter2" {
		t.Errorf("Password = %q, want %q", rec.Password, "hunter2")
	}
	if rec.ExpiresAt == nil || !rec.ExpiresAt.Equal(expires) {
		t.Errorf("ExpiresAt = %v, want %v", rec.ExpiresAt, expires)
	}
	if !rec.HasPreview() {
		t.Error("HasPreview() = false with title, description and image set")
	}
}

func TestRecord_NullColumns(t *testing.T) {
	db := fakeDB{row: fakeRow{scan: func(dest ...any) {
		*dest[0].(*string) = "https://example.com/landing"
		*dest[1].(*bool) = true
	}}}
	links, _ := newTestLinks(t, db)

	rec, err := links.Record(context.Background(), "s.example.com", "promo")
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if !rec.Archived {
		t.Error("Archived = false, want true")
	}
	if rec.Password != "" || rec.Title != "" || rec.ExpiresAt != nil {
		t.Error("Null columns should leave zero values")
	}
	if rec.HasPreview() {
		t.Error("HasPreview() = true without preview fields")
	}
}

func TestRecord_NotFound(t *testing.T) {
	db := fakeDB{row: fakeRow{err: pgx.ErrNoRows}}
	links, _ := newTestLinks(t, db)

	_, err := links.Record(context.Background(), "s.example.com", "missing")
	if !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("Record() error = %v, want ErrLinkNotFound", err)
	}
}
