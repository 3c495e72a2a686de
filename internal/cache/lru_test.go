package cache

import (
	"context"
	"testing"
	"time"
)

func TestLRUCacheGetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[int](2, time.Minute)

	if _, ok := c.Get(ctx, "a"); ok {
		t.Fatalf("expected miss on empty cache")
	}
	c.Set(ctx, "a", 1)
	c.Set(ctx, "b", 2)
	if v, ok := c.Get(ctx, "a"); !ok || v != 1 {
		t.Fatalf("expected a=1, got %v %v", v, ok)
	}

	// a was just used, so b is evicted
	c.Set(ctx, "c", 3)
	if _, ok := c.Get(ctx, "b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}

	c.Set(ctx, "a", 10)
	if v, _ := c.Get(ctx, "a"); v != 10 {
		t.Fatalf("expected overwrite, got %d", v)
	}
	c.Delete(ctx, "a")
	if _, ok := c.Get(ctx, "a"); ok {
		t.Fatalf("expected a deleted")
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set(ctx, "k", "v")
	c.Set(ctx, "k2", "v2")
	now = now.Add(30 * time.Second)
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Fatalf("expected hit before ttl")
	}

	now = now.Add(time.Minute)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after ttl")
	}
	if removed := c.CleanExpired(); removed != 1 {
		t.Fatalf("expected 1 expired entry cleaned, got %d", removed)
	}
	if c.Size() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Size())
	}
}

func TestMonthKey(t *testing.T) {
	if got := MonthKey("month", "u1", 2026, 3); got != "month:u1:2026-03" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestManagerStop(t *testing.T) {
	m := NewManager()
	c := NewLRUCache[int](1, time.Nanosecond)
	c.Set(context.Background(), "a", 1)
	m.Register(c)
	m.StartCleanup(time.Millisecond)
	deadline := time.Now().Add(time.Second)
	for c.Size() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	m.Stop()
	if c.Size() != 0 {
		t.Fatalf("expected cleanup to remove expired entry")
	}
}
