package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestGetPut(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	c := New[string](WithClock(clock.Now))

	if _, _, ok := c.Get("missing"); ok {
		t.Error("Expected miss for unknown key")
	}

	c.Put("a", "workout")
	v, storedAt, ok := c.Get("a")
	if !ok || v != "workout" {
		t.Fatalf("Expected hit, got %q %v", v, ok)
	}
	if !storedAt.Equal(clock.Now()) {
		t.Errorf("Expected stored time %s, got %s", clock.Now(), storedAt)
	}
}

func TestExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	c := New[int](WithClock(clock.Now), WithTTL(time.Hour))

	c.Put("k", 1)
	clock.Advance(59 * time.Minute)
	if _, _, ok := c.Get("k"); !ok {
		t.Fatal("Expected entry inside the retention window")
	}

	clock.Advance(2 * time.Minute)
	if _, _, ok := c.Get("k"); ok {
		t.Error("Expected entry to expire")
	}
	if c.Len() != 0 {
		t.Errorf("Expected expired entry to be removed on read, len %d", c.Len())
	}
}

func TestExpiryAtExactTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	c := New[int](WithClock(clock.Now), WithTTL(time.Hour))

	c.Put("k", 1)
	clock.Advance(time.Hour)
	if _, _, ok := c.Get("k"); ok {
		t.Error("Expected entry to expire once its age reaches the TTL")
	}
}

func TestFIFOEviction(t *testing.T) {
	c := New[int](WithMaxEntries(3))
	for i := 0; i < 3; i++ {
		if evicted := c.Put(fmt.Sprintf("k%d", i), i); evicted != 0 {
			t.Fatalf("Unexpected eviction while under the cap")
		}
	}

	// Reading does not refresh insertion order.
	c.Get("k0")

	if evicted := c.Put("k3", 3); evicted != 1 {
		t.Fatalf("Expected exactly one eviction, got %d", evicted)
	}
	if c.Len() != 3 {
		t.Errorf("Expected 3 entries, got %d", c.Len())
	}
	if _, _, ok := c.Get("k0"); ok {
		t.Error("Expected the oldest entry to be evicted")
	}
	for _, k := range []string{"k1", "k2", "k3"} {
		if _, _, ok := c.Get(k); !ok {
			t.Errorf("Expected %s to remain", k)
		}
	}
}

func TestPutExistingKeyMovesToBack(t *testing.T) {
	c := New[int](WithMaxEntries(2))
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("a", 3)
	c.Put("c", 4)

	if _, _, ok := c.Get("b"); ok {
		t.Error("Expected b to be the oldest insertion")
	}
	if v, _, ok := c.Get("a"); !ok || v != 3 {
		t.Errorf("Expected refreshed a=3, got %d %v", v, ok)
	}
}

func TestEvictOldest(t *testing.T) {
	c := New[int]()
	if _, ok := c.EvictOldest(); ok {
		t.Error("Expected nothing to evict")
	}
	c.Put("x", 1)
	c.Put("y", 2)
	if key, ok := c.EvictOldest(); !ok || key != "x" {
		t.Errorf("Expected x to be evicted, got %q", key)
	}
	if c.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", c.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int](WithMaxEntries(5))
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%7)
			c.Put(key, i)
			c.Get(key)
		}(i)
	}
	wg.Wait()
	if c.Len() > 5 {
		t.Errorf("Expected at most 5 entries, got %d", c.Len())
	}
}
