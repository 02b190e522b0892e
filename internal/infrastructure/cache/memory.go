package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	apperrors "github.com/alejandroruanova/review-refinery/internal/pkg/errors"
)

type store interface {
	Get(key string) (string, bool)
	Add(key, value string) bool
	Len() int
	Purge()
}

// MemoryCache is an in-process LRU of cleaned texts. It is safe for
// concurrent use.
type MemoryCache struct {
	store store
	stats counters
}

// NewMemoryCache creates an LRU holding at most size entries. A positive
// ttl also expires entries by age.
func NewMemoryCache(size int, ttl time.Duration) (*MemoryCache, error) {
	if size <= 0 {
		return nil, apperrors.InvalidConfig("memory cache size must be positive")
	}

	if ttl > 0 {
		return &MemoryCache{store: expirable.NewLRU[string, string](size, nil, ttl)}, nil
	}

	l, err := lru.New[string, string](size)
	if err != nil {
		return nil, apperrors.CacheError(err, "failed to create lru cache")
	}
	return &MemoryCache{store: l}, nil
}

// Get returns the cached value and whether it was present
func (m *MemoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, ok := m.store.Get(key)
	if ok {
		m.stats.hit()
	} else {
		m.stats.miss()
	}
	return value, ok, nil
}

// Set stores a value, evicting the least recently used entry when full
func (m *MemoryCache) Set(ctx context.Context, key, value string) error {
	m.store.Add(key, value)
	return nil
}

// Len returns the number of cached entries
func (m *MemoryCache) Len() int {
	return m.store.Len()
}

// Purge drops every entry
func (m *MemoryCache) Purge() {
	m.store.Purge()
}

// Stats returns hit and miss counts since creation
func (m *MemoryCache) Stats() Stats {
	return m.stats.snapshot()
}
