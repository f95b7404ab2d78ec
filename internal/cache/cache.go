// Package cache provides a small in-memory TTL cache.
//
// It replaces the ad-hoc per-handler cache structs that tend to accumulate in
// web layers with one injectable abstraction, so that the schedule pipeline
// and the platform clients stay side-effect free and testable.
package cache

import (
	"sync"
	"time"
)

// Cache is a concurrency-safe map of string keys to values with per-entry
// expiry. The zero value is not usable; use New.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry

	// now is swappable for tests.
	now func() time.Time
}

type entry struct {
	value     any
	expiresAt time.Time
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// NewWithClock returns a cache using the given clock. Intended for tests.
func NewWithClock(now func() time.Time) *Cache {
	c := New()
	if now != nil {
		c.now = now
	}
	return c
}

// Get returns the value stored under key, if present and not expired.
// Expired entries are removed lazily.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.Expire(key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for the given lifetime. A non-positive ttl
// stores nothing.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = entry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
	c.mu.Unlock()
}

// Expire removes the entry stored under key, if any.
func (c *Cache) Expire(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len reports the number of stored entries, counting expired ones that have
// not been touched since expiry.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
