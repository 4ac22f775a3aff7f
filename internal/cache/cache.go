// Package cache provides an in-memory cache bounded by entry age and count.
package cache

import (
	"sync"
	"time"
)

const (
	DefaultTTL        = 24 * time.Hour
	DefaultMaxEntries = 10
)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Cache is a TTL cache with first-in-first-out eviction once MaxEntries is
// exceeded. Expired entries are removed when read. It is safe for
// concurrent use.
type Cache[V any] struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	entries    map[string]entry[V]
	order      []string
}

type Option func(*options)

type options struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

func WithMaxEntries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEntries = n
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func New[V any](opts ...Option) *Cache[V] {
	o := options{ttl: DefaultTTL, maxEntries: DefaultMaxEntries, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		ttl:        o.ttl,
		maxEntries: o.maxEntries,
		now:        o.now,
		entries:    make(map[string]entry[V]),
	}
}

// Get returns the value stored under key and the time it was stored.
func (c *Cache[V]) Get(key string) (V, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, time.Time{}, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		c.remove(key)
		var zero V
		return zero, time.Time{}, false
	}
	return e.value, e.storedAt, true
}

// Put stores value under key. Storing an existing key counts as a new
// insertion. It returns the number of entries evicted.
func (c *Cache[V]) Put(key string, value V) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.remove(key)
	}
	c.entries[key] = entry[V]{value: value, storedAt: c.now()}
	c.order = append(c.order, key)

	evicted := 0
	for len(c.order) > c.maxEntries {
		c.evictOldest()
		evicted++
	}
	return evicted
}

// EvictOldest removes the oldest inserted entry and returns its key.
func (c *Cache[V]) EvictOldest() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictOldest()
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[V]) evictOldest() (string, bool) {
	if len(c.order) == 0 {
		return "", false
	}
	key := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, key)
	return key, true
}

func (c *Cache[V]) remove(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
