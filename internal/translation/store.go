package translation

import (
	"context"
	"strings"
	"sync"
	"time"
)

// StoredEntry is a cache entry as persisted by a Store.
type StoredEntry struct {
	SourceLang  string
	TargetLang  string
	Translation string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Store is the durable backing of a Cache. Implementations must tolerate
// being deleted out from under the service.
type Store interface {
	Load(ctx context.Context) (map[string]StoredEntry, error)
	Put(ctx context.Context, key string, entry StoredEntry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// ExpiringStore is a Store that can drop expired entries it holds but the
// cache never loaded.
type ExpiringStore interface {
	DeleteExpired(ctx context.Context, now time.Time, ttl time.Duration) (int, error)
}

// MemoryStore keeps entries for the lifetime of the process only.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]StoredEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]StoredEntry)}
}

func (s *MemoryStore) Load(context.Context) (map[string]StoredEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]StoredEntry, len(s.entries))
	for key, entry := range s.entries {
		out[key] = entry
	}
	return out, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, entry StoredEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]StoredEntry)
	return nil
}

// splitCacheKey recovers the language pair from "{source}_{target}_{text}".
// Normalized language tags never contain "_".
func splitCacheKey(key string) (string, string, string, bool) {
	parts := strings.SplitN(key, "_", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}
