// Package memory provides in-memory cache and store implementations.
package memory

import (
	"sync"
	"time"

	"github.com/gatewaylabs/creditmeter/ports"
)

// TTLCache is a process-wide time-bounded cache shared by all concurrent
// requests. Entries expire lazily on read; Sweep drops stale entries in
// bulk for the periodic janitor. Staleness beyond the TTL is tolerated by
// design - these caches back approximate limits, not exact ones.
type TTLCache[K comparable, V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	clock   ports.Clock
	entries map[K]ttlEntry[V]
}

type ttlEntry[V any] struct {
	value    V
	storedAt time.Time
}

// NewTTLCache creates a cache whose entries are fresh for ttl.
func NewTTLCache[K comparable, V any](ttl time.Duration, clock ports.Clock) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[K]ttlEntry[V]),
	}
}

// Get returns the cached value if it is still fresh. A stale entry is
// dropped and reported as a miss, never returned.
func (c *TTLCache[K, V]) Get(k K) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()

	if !ok {
		var zero V
		return zero, false
	}
	if c.clock.Now().Sub(e.storedAt) > c.ttl {
		c.mu.Lock()
		// Re-check under the write lock: a concurrent Set may have
		// refreshed the entry.
		if cur, still := c.entries[k]; still && c.clock.Now().Sub(cur.storedAt) > c.ttl {
			delete(c.entries, k)
		}
		c.mu.Unlock()
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores a value. Concurrent writers for the same key race; last write
// wins and both values are equally valid recomputations.
func (c *TTLCache[K, V]) Set(k K, v V) {
	c.mu.Lock()
	c.entries[k] = ttlEntry[V]{value: v, storedAt: c.clock.Now()}
	c.mu.Unlock()
}

// Delete removes an entry. Deleting an absent key is a no-op.
func (c *TTLCache[K, V]) Delete(k K) {
	c.mu.Lock()
	delete(c.entries, k)
	c.mu.Unlock()
}

// Sweep drops every entry older than the TTL and returns how many it
// removed.
func (c *TTLCache[K, V]) Sweep() int {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if now.Sub(e.storedAt) > c.ttl {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, fresh or not (for testing).
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
