package cache

import (
	"context"
	"path"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/zatekoja/facetedsearch/internal/domain/providers"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryAdapter is an in-process CacheProvider bounded by entry count, used
// when Redis is not configured.
type MemoryAdapter struct {
	entries *lru.Cache[string, memoryEntry]
	now     func() time.Time
}

// NewMemoryAdapter creates a cache holding at most size entries
func NewMemoryAdapter(size int) (*MemoryAdapter, error) {
	entries, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, err
	}
	return &MemoryAdapter{entries: entries, now: time.Now}, nil
}

var _ providers.CacheProvider = (*MemoryAdapter)(nil)

// Get retrieves a value from cache
func (a *MemoryAdapter) Get(_ context.Context, key string) ([]byte, error) {
	entry, ok := a.entries.Get(key)
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && !a.now().Before(entry.expiresAt) {
		a.entries.Remove(key)
		return nil, providers.ErrCacheMiss
	}
	return entry.value, nil
}

// Set stores a value; a non-positive expiration keeps it until evicted
func (a *MemoryAdapter) Set(_ context.Context, key string, value []byte, expirationSeconds int) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if expirationSeconds > 0 {
		entry.expiresAt = a.now().Add(time.Duration(expirationSeconds) * time.Second)
	}
	a.entries.Add(key, entry)
	return nil
}

// Delete removes a value from cache
func (a *MemoryAdapter) Delete(_ context.Context, key string) error {
	a.entries.Remove(key)
	return nil
}

// DeletePattern removes every key matching a glob pattern
func (a *MemoryAdapter) DeletePattern(_ context.Context, pattern string) (int, error) {
	deleted := 0
	for _, key := range a.entries.Keys() {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return deleted, err
		}
		if matched && a.entries.Remove(key) {
			deleted++
		}
	}
	return deleted, nil
}
