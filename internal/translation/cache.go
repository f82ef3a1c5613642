package translation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/parley/internal/globaltime"
	"horse.fit/parley/internal/language"
)

const DefaultCacheTTL = 24 * time.Hour

type cacheEntry struct {
	source      string
	target      string
	translation string
	createdAt   time.Time
	expiresAt   time.Time
}

// Cache is a TTL cache of translations with write-through to a Store.
// Expired entries are never returned and are pruned when looked up.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	store   Store
	ttl     time.Duration
	log     zerolog.Logger
}

func NewCache(store Store, ttl time.Duration, log zerolog.Logger) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		store:   store,
		ttl:     ttl,
		log:     log.With().Str("component", "translation_cache").Logger(),
	}
}

// CacheKey builds "{source}_{target}_{trimmed text}" with normalized language tags.
func CacheKey(source, target, text string) string {
	return language.NormalizeTag(source) + "_" + language.NormalizeTag(target) + "_" + strings.TrimSpace(text)
}

func (c *Cache) TTL() time.Duration {
	return c.ttl
}

func (c *Cache) Get(ctx context.Context, source, target, text string) (string, bool) {
	key := CacheKey(source, target, text)
	now := globaltime.UTC()

	c.mu.Lock()
	entry, ok := c.entries[key]
	expired := ok && !now.Before(entry.expiresAt)
	if expired {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	if !ok {
		return "", false
	}
	if expired {
		if err := c.store.Delete(ctx, key); err != nil {
			c.log.Debug().Err(err).Str("key", key).Msg("delete expired cache entry failed")
		}
		return "", false
	}
	return entry.translation, true
}

// Put overwrites the entry for the key unconditionally.
func (c *Cache) Put(ctx context.Context, source, target, text, translation string) {
	key := CacheKey(source, target, text)
	now := globaltime.UTC()
	entry := cacheEntry{
		source:      language.NormalizeTag(source),
		target:      language.NormalizeTag(target),
		translation: translation,
		createdAt:   now,
		expiresAt:   now.Add(c.ttl),
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	if err := c.store.Put(ctx, key, StoredEntry{
		SourceLang:  entry.source,
		TargetLang:  entry.target,
		Translation: entry.translation,
		CreatedAt:   entry.createdAt,
		ExpiresAt:   entry.expiresAt,
	}); err != nil {
		c.log.Debug().Err(err).Str("key", key).Msg("persist cache entry failed")
	}
}

// Load replaces the in-memory entries with the store contents. A corrupt or
// unreadable store is discarded and the cache starts empty.
func (c *Cache) Load(ctx context.Context) int {
	stored, err := c.store.Load(ctx)
	if err != nil {
		c.log.Debug().Err(err).Msg("discarding unreadable translation cache")
		stored = nil
	}

	now := globaltime.UTC()
	entries := make(map[string]cacheEntry, len(stored))
	for key, item := range stored {
		expiresAt := item.CreatedAt.Add(c.ttl)
		if !now.Before(expiresAt) {
			continue
		}
		entries[key] = cacheEntry{
			source:      item.SourceLang,
			target:      item.TargetLang,
			translation: item.Translation,
			createdAt:   item.CreatedAt,
			expiresAt:   expiresAt,
		}
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	return len(entries)
}

// Reset drops in-memory entries without touching the store.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) Clear(ctx context.Context) error {
	c.Reset()
	return c.store.Clear(ctx)
}

// Prune removes expired entries from memory and the store and returns how many were removed.
func (c *Cache) Prune(ctx context.Context) int {
	now := globaltime.UTC()

	c.mu.Lock()
	expired := make([]string, 0)
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			expired = append(expired, key)
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()

	if es, ok := c.store.(ExpiringStore); ok {
		removed, err := es.DeleteExpired(ctx, now, c.ttl)
		if err != nil {
			c.log.Debug().Err(err).Msg("prune store failed")
		}
		return max(removed, len(expired))
	}

	for _, key := range expired {
		if err := c.store.Delete(ctx, key); err != nil {
			c.log.Debug().Err(err).Str("key", key).Msg("delete expired cache entry failed")
		}
	}
	return len(expired)
}
