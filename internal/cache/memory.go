package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryCache implements Cache using in-memory storage.
type MemoryCache[V any] struct {
	mu    sync.RWMutex
	items map[string]Entry[V]
	now   func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemoryCache creates a new in-memory cache.
func NewMemoryCache[V any]() *MemoryCache[V] {
	return &MemoryCache[V]{
		items: make(map[string]Entry[V]),
		now:   time.Now,
	}
}

// Get retrieves a value from the cache.
func (m *MemoryCache[V]) Get(_ context.Context, key string) (V, bool) {
	m.mu.RLock()
	entry, ok := m.items[key]
	m.mu.RUnlock()

	if !ok || entry.IsExpired(m.now()) {
		m.misses.Add(1)
		var zero V
		return zero, false
	}
	m.hits.Add(1)
	return entry.Value, true
}

// Set stores a value in the cache. A ttl of NoExpiration keeps the value
// indefinitely; a negative ttl stores an already expired entry.
func (m *MemoryCache[V]) Set(_ context.Context, key string, value V, ttl time.Duration) {
	entry := Entry[V]{Value: value}
	if ttl != NoExpiration {
		entry.ExpiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = entry
}

// Delete removes a value from the cache.
func (m *MemoryCache[V]) Delete(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
}

// Len returns the number of items in the cache (including expired).
func (m *MemoryCache[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.items)
}

// Stats returns the number of hits and misses seen by Get.
func (m *MemoryCache[V]) Stats() (hits, misses int64) {
	return m.hits.Load(), m.misses.Load()
}

var _ Cache[int] = (*MemoryCache[int])(nil)
