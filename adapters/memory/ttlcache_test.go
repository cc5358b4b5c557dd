package memory_test

import (
	"testing"
	"time"

	"github.com/gatewaylabs/creditmeter/adapters/clock"
	"github.com/gatewaylabs/creditmeter/adapters/memory"
)

func newCache(t *testing.T) (*memory.TTLCache[string, int], *clock.Fake) {
	t.Helper()
	fake := clock.NewFake(time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC))
	return memory.NewTTLCache[string, int](60*time.Second, fake), fake
}

func TestTTLCache_HitWithinTTL(t *testing.T) {
	c, fake := newCache(t)

	c.Set("a", 1)
	fake.Advance(59 * time.Second)

	v, ok := c.Get("a")
	if !ok || v != 1 {
		t.Errorf("Get = (%d, %v), want (1, true)", v, ok)
	}
}

func TestTTLCache_ExactTTLStillFresh(t *testing.T) {
	c, fake := newCache(t)

	c.Set("a", 1)
	fake.Advance(60 * time.Second)

	if _, ok := c.Get("a"); !ok {
		t.Error("entry at exactly TTL age should still be fresh")
	}
}

func TestTTLCache_LazyExpiry(t *testing.T) {
	c, fake := newCache(t)

	c.Set("a", 1)
	fake.Advance(61 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Error("stale entry returned as fresh")
	}
	// The stale read also evicted the entry.
	if c.Len() != 0 {
		t.Errorf("Len = %d after stale read, want 0", c.Len())
	}
}

func TestTTLCache_SetRefreshes(t *testing.T) {
	c, fake := newCache(t)

	c.Set("a", 1)
	fake.Advance(50 * time.Second)
	c.Set("a", 2)
	fake.Advance(50 * time.Second)

	// 100s after the first write but only 50s after the refresh.
	v, ok := c.Get("a")
	if !ok || v != 2 {
		t.Errorf("Get = (%d, %v), want (2, true)", v, ok)
	}
}

func TestTTLCache_DeleteIdempotent(t *testing.T) {
	c, _ := newCache(t)

	c.Set("a", 1)
	c.Delete("a")
	c.Delete("a") // absent key is a no-op
	c.Delete("never-set")

	if _, ok := c.Get("a"); ok {
		t.Error("deleted entry still readable")
	}
}

func TestTTLCache_Sweep(t *testing.T) {
	c, fake := newCache(t)

	c.Set("old1", 1)
	c.Set("old2", 2)
	fake.Advance(61 * time.Second)
	c.Set("fresh", 3)

	if n := c.Sweep(); n != 2 {
		t.Errorf("Sweep = %d, want 2", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d after sweep, want 1", c.Len())
	}
	if v, ok := c.Get("fresh"); !ok || v != 3 {
		t.Errorf("fresh entry lost by sweep: (%d, %v)", v, ok)
	}
}

func TestTTLCache_SweepEmptyIsZero(t *testing.T) {
	c, _ := newCache(t)
	if n := c.Sweep(); n != 0 {
		t.Errorf("Sweep on empty cache = %d, want 0", n)
	}
}
