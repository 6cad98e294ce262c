package ttlcache

import (
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := New[string](10, time.Minute)
	c.Set("a", "alpha")
	v, ok := c.Get("a")
	if !ok || v != "alpha" {
		t.Fatalf("expected (alpha, true), got (%q, %v)", v, ok)
	}
}

func TestExpiry(t *testing.T) {
	c := New[string](10, 10*time.Millisecond)
	c.Set("a", "alpha")
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected entry to have expired")
	}
}

func TestLRUEviction(t *testing.T) {
	c := New[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now most-recently-used
	c.Set("c", 3) // should evict b, not a

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected a to survive eviction")
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatalf("expected c to be present")
	}
}

func TestInvalidate(t *testing.T) {
	c := New[string](10, time.Minute)
	c.Set("a", "alpha")
	c.Invalidate()
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected cache to be empty after Invalidate")
	}
}
