package translation

import (
	"context"
	"time"

	"horse.fit/parley/internal/db"
	"horse.fit/parley/internal/globaltime"
)

type cacheQueries interface {
	ListLiveTranslationCache(ctx context.Context, now time.Time) ([]db.TranslationCacheRow, error)
	UpsertTranslationCache(ctx context.Context, row db.TranslationCacheRow) error
	DeleteTranslationCache(ctx context.Context, cacheKey string) error
	DeleteExpiredTranslationCache(ctx context.Context, now time.Time) (int64, error)
	ClearTranslationCache(ctx context.Context) (int64, error)
}

// PoolStore persists cache entries in parley.translation_cache.
type PoolStore struct {
	queries cacheQueries
}

func NewPoolStore(pool *db.Pool) *PoolStore {
	return &PoolStore{queries: pool}
}

func newPoolStoreWithQueries(queries cacheQueries) *PoolStore {
	return &PoolStore{queries: queries}
}

func (s *PoolStore) Load(ctx context.Context) (map[string]StoredEntry, error) {
	rows, err := s.queries.ListLiveTranslationCache(ctx, globaltime.UTC())
	if err != nil {
		return nil, err
	}
	out := make(map[string]StoredEntry, len(rows))
	for _, row := range rows {
		out[row.CacheKey] = StoredEntry{
			SourceLang:  row.SourceLang,
			TargetLang:  row.TargetLang,
			Translation: row.Translation,
			CreatedAt:   row.CreatedAt,
			ExpiresAt:   row.ExpiresAt,
		}
	}
	return out, nil
}

func (s *PoolStore) Put(ctx context.Context, key string, entry StoredEntry) error {
	return s.queries.UpsertTranslationCache(ctx, db.TranslationCacheRow{
		CacheKey:    key,
		SourceLang:  entry.SourceLang,
		TargetLang:  entry.TargetLang,
		Translation: entry.Translation,
		CreatedAt:   entry.CreatedAt,
		ExpiresAt:   entry.ExpiresAt,
	})
}

func (s *PoolStore) Delete(ctx context.Context, key string) error {
	return s.queries.DeleteTranslationCache(ctx, key)
}

func (s *PoolStore) Clear(ctx context.Context) error {
	_, err := s.queries.ClearTranslationCache(ctx)
	return err
}

func (s *PoolStore) DeleteExpired(ctx context.Context, now time.Time, _ time.Duration) (int, error) {
	removed, err := s.queries.DeleteExpiredTranslationCache(ctx, now)
	return int(removed), err
}
