package cooldown

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newTestTracker(t *testing.T, windowMs int64, maxUses int) (*Tracker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, "", windowMs, maxUses), mr
}

func TestCheckAndConsume_AllowsUntilExhausted(t *testing.T) {
	tracker, _ := newTestTracker(t, 60000, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := tracker.CheckAndConsume(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("CheckAndConsume() error = %v", err)
		}
		if !result.Allowed {
			t.Fatalf("Request %d should be allowed", i+1)
		}
		if result.Remaining != 3-(i+1) {
			t.Errorf("Request %d remaining = %d, want %d", i+1, result.Remaining, 3-(i+1))
		}
		if result.Limit != 3 {
			t.Errorf("Limit = %d, want 3", result.Limit)
		}
	}

	result, err := tracker.CheckAndConsume(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("CheckAndConsume() error = %v", err)
	}
	if result.Allowed {
		t.Error("Request past the limit should be denied")
	}
	if result.Remaining != 0 {
		t.Errorf("Denied remaining = %d, want 0", result.Remaining)
	}
}

func TestCheckAndConsume_DenyDoesNotMutate(t *testing.T) {
	tracker, _ := newTestTracker(t, 60000, 1)
	ctx := context.Background()

	if _, err := tracker.CheckAndConsume(ctx, "1.2.3.4"); err != nil {
		t.Fatalf("CheckAndConsume() error = %v", err)
	}

	first, err := tracker.CheckAndConsume(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("CheckAndConsume() error = %v", err)
	}
	second, err := tracker.CheckAndConsume(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("CheckAndConsume() error = %v", err)
	}

	// Remaining uses never go negative in visible effect
	if first.Allowed || second.Allowed {
		t.Error("Exhausted counter must keep denying")
	}
	if first.ResetAt != second.ResetAt {
		t.Errorf("Denied requests must not move the window: %d != %d", first.ResetAt, second.ResetAt)
	}
}

func TestCheckAndConsume_FullBurstOnRollover(t *testing.T) {
	tracker, mr := newTestTracker(t, 1000, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := tracker.CheckAndConsume(ctx, "1.2.3.4"); err != nil {
			t.Fatalf("CheckAndConsume() error = %v", err)
		}
	}

	// Advance past the window; the counter self-expires via its TTL
	mr.FastForward(1100 * time.Millisecond)

	result, err := tracker.CheckAndConsume(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("CheckAndConsume() error = %v", err)
	}
	if !result.Allowed {
		t.Error("First request of a new window should be allowed")
	}
	if result.Remaining != 1 {
		t.Errorf("New window remaining = %d, want 1 (full burst restored)", result.Remaining)
	}
}

func TestCheckAndConsume_IsolatesClients(t *testing.T) {
	tracker, _ := newTestTracker(t, 60000, 1)
	ctx := context.Background()

	if _, err := tracker.CheckAndConsume(ctx, "1.2.3.4"); err != nil {
		t.Fatalf("CheckAndConsume() error = %v", err)
	}
	blocked, _ := tracker.CheckAndConsume(ctx, "1.2.3.4")
	if blocked.Allowed {
		t.Error("First client should be exhausted")
	}

	other, err := tracker.CheckAndConsume(ctx, "5.6.7.8")
	if err != nil {
		t.Fatalf("CheckAndConsume() error = %v", err)
	}
	if !other.Allowed {
		t.Error("Second client must have its own counter")
	}
}

func TestCheckAndConsume_FailsClosedOnStoreError(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tracker := New(rdb, "", 60000, 5)

	mr.Close()

	if _, err := tracker.CheckAndConsume(context.Background(), "1.2.3.4"); err == nil {
		t.Error("Expected an error when the store is unavailable")
	}
}

func TestCheckAndConsume_SetsSelfCleaningTTL(t *testing.T) {
	tracker, mr := newTestTracker(t, 30000, 5)

	if _, err := tracker.CheckAndConsume(context.Background(), "1.2.3.4"); err != nil {
		t.Fatalf("CheckAndConsume() error = %v", err)
	}

	ttl := mr.TTL("cooldown:1.2.3.4")
	if ttl <= 0 || ttl > 30*time.Second {
		t.Errorf("Counter TTL = %v, want within (0, 30s]", ttl)
	}
}
