package recorder

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stub-router/geo"
	"stub-router/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newTestRecorder(t *testing.T, queueSize int) (*Recorder, *store.Clicks) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	clicks := store.NewClicks(rdb, "")
	resolver, err := geo.Open("")
	if err != nil {
		t.Fatalf("geo.Open() error = %v", err)
	}
	t.Cleanup(resolver.Close)

	return New(clicks, resolver, queueSize, time.Second), clicks
}

func TestRecord_PersistsClick(t *testing.T) {
	rec, clicks := newTestRecorder(t, 16)

	req := httptest.NewRequest("GET", "http://s.example.com/promo?utm_source=newsletter", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Referer", "https://news.ycombinator.com/item?id=1")

	rec.Record("s.example.com", "promo", req, "203.0.113.7")
	rec.Close()

	events, err := clicks.Range(context.Background(), "s.example.com", "promo", 0, time.Now().UnixMilli())
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Recorded %d events, want 1", len(events))
	}

	ev := events[0]
	if ev.Timestamp == 0 {
		t.Error("Timestamp not set")
	}
	if ev.Geo != geo.Placeholder {
		t.Errorf("Geo = %+v, want placeholder", ev.Geo)
	}
	if ev.UA.Browser != "Chrome" || ev.UA.Device != "Desktop" {
		t.Errorf("UA = %+v, want Chrome on Desktop", ev.UA)
	}
	if ev.Referer != "https://news.ycombinator.com/item?id=1" {
		t.Errorf("Referer = %q", ev.Referer)
	}
	if ev.UTM == nil || ev.UTM.Source != "newsletter" {
		t.Errorf("UTM = %+v, want source newsletter", ev.UTM)
	}
}

func TestRecord_OmitsEmptyUTM(t *testing.T) {
	rec, clicks := newTestRecorder(t, 16)

	req := httptest.NewRequest("GET", "http://s.example.com/promo", nil)
	rec.Record("s.example.com", "promo", req, "")
	rec.Close()

	events, err := clicks.Range(context.Background(), "s.example.com", "promo", 0, time.Now().UnixMilli())
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Recorded %d events, want 1", len(events))
	}
	if events[0].UTM != nil {
		t.Errorf("UTM = %+v, want nil without utm_* parameters", events[0].UTM)
	}
}

func TestRecord_CapsUTMValues(t *testing.T) {
	rec, clicks := newTestRecorder(t, 16)

	long := strings.Repeat("x", 2048)
	req := httptest.NewRequest("GET", "http://s.example.com/promo?utm_campaign="+long, nil)
	rec.Record("s.example.com", "promo", req, "")
	rec.Close()

	events, err := clicks.Range(context.Background(), "s.example.com", "promo", 0, time.Now().UnixMilli())
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Recorded %d events, want 1", len(events))
	}
	if got := len(events[0].UTM.Campaign); got != maxUTMLength {
		t.Errorf("Campaign length = %d, want %d", got, maxUTMLength)
	}
}

func TestRecord_DropsWhenQueueFull(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	clicks := store.NewClicks(rdb, "")
	resolver, _ := geo.Open("")

	rec := New(clicks, resolver, 1, time.Second)

	req := httptest.NewRequest("GET", "http://s.example.com/promo", nil)
	for i := 0; i < 100; i++ {
		rec.Record("s.example.com", "promo", req, "")
	}
	rec.Close() // must not deadlock even after drops

	count, err := clicks.Count(context.Background(), "s.example.com", "promo")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count < 1 {
		t.Error("At least one event should have been recorded")
	}
}

func TestClose_DrainsQueue(t *testing.T) {
	rec, clicks := newTestRecorder(t, 64)

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest("GET", "http://s.example.com/promo?utm_term=t"+string(rune('a'+i)), nil)
		rec.Record("s.example.com", "promo", req, "")
	}
	rec.Close()

	count, err := clicks.Count(context.Background(), "s.example.com", "promo")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 10 {
		t.Errorf("Count() = %d, want 10 (Close drains queued events)", count)
	}
}
