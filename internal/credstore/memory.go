package credstore

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value  string
	expiry time.Time // zero means no expiry
}

// MemoryStore is a process-local backing guarded by a mutex.
// Expired entries are dropped lazily on read.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return "", nil
	}
	if !entry.expiry.IsZero() && !entry.expiry.After(m.now()) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return "", nil
	}

	return entry.value, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value string, expiry time.Time) error {
	m.mu.Lock()
	m.entries[key] = memoryEntry{value: value, expiry: expiry}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// RemovePrefix drops every entry under the given key prefix
func (m *MemoryStore) RemovePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	m.mu.Unlock()
	return nil
}

// namespaced prefixes every key, so one shared backing can hold many
// independent credential sets keyed by gateway session id
type namespaced struct {
	inner  Store
	prefix string
}

// Namespaced returns a view of s with every key prefixed by "prefix:"
func Namespaced(s Store, prefix string) Store {
	return &namespaced{inner: s, prefix: prefix + ":"}
}

func (n *namespaced) Get(ctx context.Context, key string) (string, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key string, value string, expiry time.Time) error {
	return n.inner.Set(ctx, n.prefix+key, value, expiry)
}

func (n *namespaced) Remove(ctx context.Context, key string) error {
	return n.inner.Remove(ctx, n.prefix+key)
}
