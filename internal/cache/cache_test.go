package cache

import (
	"context"
	"testing"
	"time"
)

func TestCache_SetGetExpire(t *testing.T) {
	ctx := context.Background()
	c := New[string, int](0)
	defer c.Close()

	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	c.Set(ctx, "a", 1, time.Second)
	c.Set(ctx, "b", 2, 0)

	if v, ok := c.Get(ctx, "a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v; want 1, true", v, ok)
	}

	now = now.Add(2 * time.Second)

	if _, ok := c.Get(ctx, "a"); ok {
		t.Error("expected a to be expired")
	}
	if v, ok := c.Get(ctx, "b"); !ok || v != 2 {
		t.Errorf("Get(b) = %d, %v; want 2, true", v, ok)
	}

	c.evictExpired()
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestCache_Delete(t *testing.T) {
	ctx := context.Background()
	c := New[uint64, string](time.Minute)
	defer c.Close()

	c.Set(ctx, 7, "x", time.Minute)
	c.Delete(ctx, 7)

	if _, ok := c.Get(ctx, 7); ok {
		t.Error("expected key to be deleted")
	}

	c.Close()
	c.Close()
}
