package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	value   string
	expires time.Time
}

// MemoryCache is an in-process Cache used when no Redis is configured.
type MemoryCache struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	namespace string
	now       func() time.Time
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache keeps entries in process memory. Values are stored with
// fmt's %v formatting, strings and []byte verbatim.
func NewMemoryCache(namespace string) *MemoryCache {
	return &MemoryCache{
		entries:   make(map[string]memoryEntry),
		namespace: namespace,
		now:       time.Now,
	}
}

func (m *MemoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		s = fmt.Sprint(v)
	}

	e := memoryEntry{value: s}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return "", nil
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.entries, key)
		return "", nil
	}
	return e.value, nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) GenerateKey(operation, key string) string {
	return generateKey(m.namespace, operation, key)
}
