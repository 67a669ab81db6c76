package cache

import (
	"testing"
	"time"
)

func TestLRUEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("2025-01", 1)
	c.Set("2025-02", 2)
	if _, ok := c.Get("2025-01"); !ok {
		t.Fatalf("expected hit")
	}
	c.Set("2025-03", 3) // evicts 2025-02, the least recently used

	if _, ok := c.Get("2025-02"); ok {
		t.Fatalf("expected 2025-02 to be evicted")
	}
	if v, ok := c.Get("2025-01"); !ok || v != 1 {
		t.Fatalf("expected 2025-01 to survive, got %v %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("a", "x")
	c.Set("b", "y")
	now = now.Add(30 * time.Second)
	c.Set("b", "z")

	now = now.Add(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a to be expired")
	}
	if v, ok := c.Get("b"); !ok || v != "z" {
		t.Fatalf("expected refreshed b, got %q %v", v, ok)
	}

	now = now.Add(time.Hour)
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired = %d, want 1", n)
	}

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Size != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestClearAndDelete(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a deleted")
	}
	c.Clear()
	if c.Size() != 0 {
		t.Fatalf("expected empty cache after Clear")
	}
	c.Set("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatalf("cache unusable after Clear")
	}
}

func TestManagerCleanAll(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Second)
	c.now = func() time.Time { return now }
	c.Set("a", 1)

	m := NewManager(nil)
	m.Register(c)
	now = now.Add(time.Minute)
	if n := m.CleanAll(); n != 1 {
		t.Fatalf("CleanAll = %d", n)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
