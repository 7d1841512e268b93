package predict

import "testing"

func TestLRU_PutGet(t *testing.T) {
	t.Parallel()

	c := newLRUCache[string, int](3)
	c.Put("a", 1)
	c.Put("b", 2)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v, want 1, true", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) = true, want false")
	}
}

func TestLRU_EvictsOldest(t *testing.T) {
	t.Parallel()

	c := newLRUCache[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	if _, ok := c.Get("a"); ok {
		t.Error("Oldest entry was not evicted")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestLRU_GetRefreshesRecency(t *testing.T) {
	t.Parallel()

	c := newLRUCache[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)

	// Touch a so b becomes the eviction candidate.
	c.Get("a")
	c.Put("c", 3)

	if _, ok := c.Get("a"); !ok {
		t.Error("Recently used entry was evicted")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("Least recently used entry survived")
	}
}

func TestLRU_PutUpdatesInPlace(t *testing.T) {
	t.Parallel()

	c := newLRUCache[string, int](2)
	c.Put("a", 1)
	c.Put("a", 10)

	if v, _ := c.Get("a"); v != 10 {
		t.Errorf("Get(a) = %d, want 10", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestLRU_Clear(t *testing.T) {
	t.Parallel()

	c := newLRUCache[string, int](4)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("Entry survived Clear")
	}
}

func TestLRU_MinimumCapacity(t *testing.T) {
	t.Parallel()

	c := newLRUCache[string, int](0)
	c.Put("a", 1)
	c.Put("b", 2)

	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1 with clamped capacity", c.Len())
	}
}
