// Package cache holds small in-process caches for read-heavy lookups such as
// closed settlement days.
package cache

import (
	"sync"
	"time"
)

// Cache is a key/value store with per-entry expiry.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	Delete(key K)
}

type entry[V any] struct {
	value    V
	deadline time.Time
}

func (e entry[V]) expired(now time.Time) bool {
	return !e.deadline.IsZero() && now.After(e.deadline)
}

// TTLCache keeps entries in memory until their TTL passes. Expired entries
// are dropped lazily on the next Get; there is no background sweeper.
type TTLCache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]entry[V]
}

func NewTTLCache[K comparable, V any]() *TTLCache[K, V] {
	return &TTLCache[K, V]{entries: make(map[K]entry[V])}
}

// Get returns the stored value unless it is missing or past its deadline.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if e.expired(time.Now()) {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

// Set stores a value. A non-positive ttl keeps the entry until deleted.
func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	e := entry[V]{value: value}
	if ttl > 0 {
		e.deadline = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

// Delete removes an entry if present.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// NoopCache never stores anything. It stands in when caching is disabled so
// callers need no nil checks.
type NoopCache[K comparable, V any] struct{}

func (NoopCache[K, V]) Get(key K) (V, bool) {
	var zero V
	return zero, false
}

func (NoopCache[K, V]) Set(key K, value V, ttl time.Duration) {}

func (NoopCache[K, V]) Delete(key K) {}
