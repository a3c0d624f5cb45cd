package cache

import (
	"context"
	"testing"
	"time"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a to be cached")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a should survive, got %v %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Second)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("j", "w")
	now = now.Add(2 * time.Second)

	if _, ok := c.Get("k"); ok {
		t.Fatalf("expired entry returned")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("expected 1 expired entry cleaned, got %d", n)
	}
	if c.Size() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Size())
	}
}

func TestDeletePrefixScopesToOrganization(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set(OrgKey(1, "dashboard"), 1)
	c.Set(OrgKey(1, "breakdown", "ap", "all"), 2)
	c.Set(OrgKey(12, "dashboard"), 3)

	if n := c.DeletePrefix(OrgPrefix(1)); n != 2 {
		t.Fatalf("expected 2 entries removed, got %d", n)
	}
	if _, ok := c.Get(OrgKey(12, "dashboard")); !ok {
		t.Fatalf("organization 12 must not be invalidated by organization 1")
	}
}

func TestManagerStop(t *testing.T) {
	c := NewLRUCache[int](1, time.Nanosecond)
	c.Set("x", 1)

	m := NewManager(nil)
	m.Register(c)
	time.Sleep(time.Millisecond)
	if n := m.CleanAll(); n != 1 {
		t.Fatalf("expected 1 cleaned entry, got %d", n)
	}

	m.StartCleanup(context.Background(), time.Millisecond)
	m.Stop()
	m.Stop()
}
