package cache

import (
	"context"
	"fmt"
	"sync"
)

const backendMemory = "memory"

// MemoryStorage keeps generations in process memory. Entries are copied on
// the way in and out, so callers never share buffers with the store.
type MemoryStorage struct {
	mu     sync.RWMutex
	order  []string
	caches map[string]*memoryCache
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		caches: make(map[string]*memoryCache),
	}
}

// Open implements Storage.
func (s *MemoryStorage) Open(_ context.Context, name string) (Cache, error) {
	if name == "" {
		return nil, fmt.Errorf("cache name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.caches[name]; ok {
		return c, nil
	}
	c := &memoryCache{name: name, entries: make(map[Key]*Entry)}
	s.caches[name] = c
	s.order = append(s.order, name)
	return c, nil
}

// Keys implements Storage.
func (s *MemoryStorage) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...), nil
}

// Delete implements Storage.
func (s *MemoryStorage) Delete(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.caches[name]; !ok {
		return false, nil
	}
	delete(s.caches, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// Match implements Storage.
func (s *MemoryStorage) Match(_ context.Context, key Key) (*Entry, error) {
	s.mu.RLock()
	caches := make([]*memoryCache, 0, len(s.order))
	for _, name := range s.order {
		caches = append(caches, s.caches[name])
	}
	s.mu.RUnlock()

	for _, c := range caches {
		if entry, ok := c.get(key); ok {
			CacheHits.WithLabelValues(backendMemory).Inc()
			return entry, nil
		}
	}

	CacheMisses.WithLabelValues(backendMemory).Inc()
	return nil, ErrCacheMiss
}

type memoryCache struct {
	name    string
	mu      sync.RWMutex
	entries map[Key]*Entry
}

func (c *memoryCache) Name() string {
	return c.name
}

func (c *memoryCache) get(key Key) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry.Clone(), ok
}

func (c *memoryCache) Match(_ context.Context, key Key) (*Entry, error) {
	entry, ok := c.get(key)
	if !ok {
		CacheMisses.WithLabelValues(backendMemory).Inc()
		return nil, ErrCacheMiss
	}
	CacheHits.WithLabelValues(backendMemory).Inc()
	return entry, nil
}

func (c *memoryCache) Put(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	return c.PutAll(ctx, map[Key]*Entry{key: entry})
}

func (c *memoryCache) PutAll(_ context.Context, entries map[Key]*Entry) error {
	for key, entry := range entries {
		if entry == nil {
			return fmt.Errorf("cache entry for %s cannot be nil", key)
		}
	}

	c.mu.Lock()
	for key, entry := range entries {
		c.entries[key] = entry.Clone()
	}
	c.mu.Unlock()

	CacheWrites.WithLabelValues(backendMemory).Add(float64(len(entries)))
	return nil
}

func (c *memoryCache) Keys(_ context.Context) ([]Key, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]Key, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	return keys, nil
}
