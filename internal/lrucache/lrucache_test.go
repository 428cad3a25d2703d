package lrucache

import "testing"

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string, int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to still be cached")
	}
	c.Set("c", 3) // b is least-recently-used now, should be evicted
	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected a=1 to survive, got %v %v", v, ok)
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatalf("expected c=3 to survive, got %v %v", v, ok)
	}
}

func TestCacheInvalidateFunc(t *testing.T) {
	type key struct {
		file string
		row  int64
	}
	c := New[key, string](10)
	c.Set(key{"f1", 0}, "a")
	c.Set(key{"f1", 1}, "b")
	c.Set(key{"f2", 0}, "c")

	c.InvalidateFunc(func(k key) bool { return k.file == "f1" })

	if c.Len() != 1 {
		t.Fatalf("expected 1 remaining entry, got %d", c.Len())
	}
	if _, ok := c.Get(key{"f2", 0}); !ok {
		t.Fatal("expected f2 entry to survive invalidation")
	}
}

func TestOnEvictFiresOnCapacityEviction(t *testing.T) {
	c := New[string, int](1)
	var evicted []string
	c.OnEvict(func(k string, v int) { evicted = append(evicted, k) })

	c.Set("a", 1)
	c.Set("b", 2)
	if len(evicted) != 1 || evicted[0] != "a" {
		t.Fatalf("expected a to be reported evicted, got %v", evicted)
	}
}

func TestZeroCapacityDisablesCaching(t *testing.T) {
	c := New[string, int](0)
	c.Set("a", 1)
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected zero-capacity cache to never retain entries")
	}
}
