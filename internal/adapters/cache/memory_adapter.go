package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/zatekoja/carefinder/internal/domain/providers"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryAdapter is a process-local CacheProvider used when Redis is not configured.
// Entries expire after the expiration passed to Set or the TTL given at
// construction, whichever comes first. Non-positive values disable that bound.
type MemoryAdapter struct {
	lru *expirable.LRU[string, memoryEntry]
	now func() time.Time
}

// NewMemoryAdapter creates a bounded in-memory cache.
func NewMemoryAdapter(size int, ttl time.Duration) providers.CacheProvider {
	return newMemoryAdapter(size, ttl, time.Now)
}

func newMemoryAdapter(size int, ttl time.Duration, now func() time.Time) *MemoryAdapter {
	if size <= 0 {
		size = 1024
	}
	return &MemoryAdapter{
		lru: expirable.NewLRU[string, memoryEntry](size, nil, ttl),
		now: now,
	}
}

// Get retrieves a value from cache
func (m *MemoryAdapter) Get(_ context.Context, key string) ([]byte, error) {
	e, ok := m.lru.Get(key)
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		m.lru.Remove(key)
		return nil, providers.ErrCacheMiss
	}
	return e.value, nil
}

// Set stores a value in cache with expiration
func (m *MemoryAdapter) Set(_ context.Context, key string, value []byte, expirationSeconds int) error {
	e := memoryEntry{value: value}
	if expirationSeconds > 0 {
		e.expiresAt = m.now().Add(time.Duration(expirationSeconds) * time.Second)
	}
	m.lru.Add(key, e)
	return nil
}

// Delete removes a value from cache
func (m *MemoryAdapter) Delete(_ context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}
