// Package cache provides the in-memory TTL cache used for search results
// and assembled reports. Entries are scoped per agency by key convention,
// so one process serves many tenants from the same cache.
package cache

import (
	"sync"
	"time"
)

type item[T any] struct {
	value   T
	expires time.Time
}

// InMemory is a thread-safe TTL cache.
type InMemory[T any] struct {
	mu    sync.RWMutex
	items map[string]item[T]
	ttl   time.Duration
}

// New creates a cache whose entries live for ttl. A background sweeper
// reclaims expired entries so abandoned search keys do not accumulate.
func New[T any](ttl time.Duration) *InMemory[T] {
	c := &InMemory[T]{
		items: make(map[string]item[T]),
		ttl:   ttl,
	}
	go c.sweep()
	return c
}

// Get returns the cached value for key, or false when absent or expired.
// Expired entries read as absent immediately, without waiting for the
// sweeper.
func (c *InMemory[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(it.expires) {
		var zero T
		return zero, false
	}
	return it.value, true
}

// Set stores value under key with the cache's TTL.
func (c *InMemory[T]) Set(key string, value T) {
	c.mu.Lock()
	c.items[key] = item[T]{value: value, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Delete evicts one key.
func (c *InMemory[T]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Len reports the number of entries currently held, expired or not.
func (c *InMemory[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *InMemory[T]) sweep() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		c.mu.Lock()
		for k, it := range c.items {
			if now.After(it.expires) {
				delete(c.items, k)
			}
		}
		c.mu.Unlock()
	}
}
