package cache

import (
	"bytes"
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && !now.Before(i.expiresAt)
}

// MemoryStore is an in-process Store that evicts least recently used keys
// beyond its capacity.
type MemoryStore struct {
	mu    sync.Mutex
	items *lru[string, memoryItem]
	now   func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns a store holding at most capacity keys.
// A capacity of zero or less means unbounded.
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{items: newLRU[string, memoryItem](capacity), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.lookup(key)
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(item.value), true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items.put(key, m.item(value, ttl))
	return nil
}

func (m *MemoryStore) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.lookup(key); ok {
		return false, nil
	}
	m.items.put(key, m.item(value, ttl))
	return true, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items.remove(key)
	return nil
}

// Len returns the number of stored keys, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items.len()
}

// Must be called with lock held.
func (m *MemoryStore) lookup(key string) (memoryItem, bool) {
	item, ok := m.items.get(key)
	if !ok {
		return memoryItem{}, false
	}
	if item.expired(m.now()) {
		m.items.remove(key)
		return memoryItem{}, false
	}
	return item, true
}

func (m *MemoryStore) item(value []byte, ttl time.Duration) memoryItem {
	item := memoryItem{value: bytes.Clone(value)}
	if ttl != 0 {
		item.expiresAt = m.now().Add(ttl)
	}
	return item
}
