package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// TranslationCacheRow is one persisted translation cache entry.
type TranslationCacheRow struct {
	CacheKey    string
	SourceLang  string
	TargetLang  string
	Translation string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// TranslationCachePairCount counts live entries for one language pair.
type TranslationCachePairCount struct {
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
	Entries    int64  `json:"entries"`
}

// TranslationCacheStats is the read model returned by the cache stats command.
type TranslationCacheStats struct {
	Live    int64                       `json:"live"`
	Expired int64                       `json:"expired"`
	Pairs   []TranslationCachePairCount `json:"pairs"`
}

func (p *Pool) ListLiveTranslationCache(ctx context.Context, now time.Time) ([]TranslationCacheRow, error) {
	const q = `
SELECT
	cache_key,
	source_lang,
	target_lang,
	translation,
	created_at,
	expires_at
FROM parley.translation_cache
WHERE expires_at > $1
ORDER BY created_at ASC
`

	rows, err := p.Query(ctx, q, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("query translation cache: %w", err)
	}
	defer rows.Close()

	items := make([]TranslationCacheRow, 0, 256)
	for rows.Next() {
		var row TranslationCacheRow
		if err := rows.Scan(
			&row.CacheKey,
			&row.SourceLang,
			&row.TargetLang,
			&row.Translation,
			&row.CreatedAt,
			&row.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("scan translation cache row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translation cache rows: %w", err)
	}

	return items, nil
}

func (p *Pool) UpsertTranslationCache(ctx context.Context, row TranslationCacheRow) error {
	if strings.TrimSpace(row.CacheKey) == "" {
		return fmt.Errorf("cache key is empty")
	}

	const q = `
INSERT INTO parley.translation_cache (
	cache_key,
	source_lang,
	target_lang,
	translation,
	created_at,
	expires_at
)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (cache_key)
DO UPDATE SET
	source_lang = EXCLUDED.source_lang,
	target_lang = EXCLUDED.target_lang,
	translation = EXCLUDED.translation,
	created_at = EXCLUDED.created_at,
	expires_at = EXCLUDED.expires_at
`

	if _, err := p.Exec(
		ctx,
		q,
		row.CacheKey,
		row.SourceLang,
		row.TargetLang,
		row.Translation,
		row.CreatedAt.UTC(),
		row.ExpiresAt.UTC(),
	); err != nil {
		return fmt.Errorf("upsert translation cache: %w", err)
	}
	return nil
}

func (p *Pool) DeleteTranslationCache(ctx context.Context, cacheKey string) error {
	const q = `DELETE FROM parley.translation_cache WHERE cache_key = $1`
	if _, err := p.Exec(ctx, q, cacheKey); err != nil {
		return fmt.Errorf("delete translation cache entry: %w", err)
	}
	return nil
}

func (p *Pool) DeleteExpiredTranslationCache(ctx context.Context, now time.Time) (int64, error) {
	const q = `DELETE FROM parley.translation_cache WHERE expires_at <= $1`
	tag, err := p.Exec(ctx, q, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired translation cache: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (p *Pool) ClearTranslationCache(ctx context.Context) (int64, error) {
	const q = `DELETE FROM parley.translation_cache`
	tag, err := p.Exec(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("clear translation cache: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (p *Pool) QueryTranslationCacheStats(ctx context.Context, now time.Time) (*TranslationCacheStats, error) {
	stats := &TranslationCacheStats{
		Pairs: make([]TranslationCachePairCount, 0, 16),
	}

	const totalsQuery = `
SELECT
	COUNT(*) FILTER (WHERE expires_at > $1)::BIGINT AS live,
	COUNT(*) FILTER (WHERE expires_at <= $1)::BIGINT AS expired
FROM parley.translation_cache
`
	if err := p.QueryRow(ctx, totalsQuery, now.UTC()).Scan(&stats.Live, &stats.Expired); err != nil {
		return nil, fmt.Errorf("query translation cache totals: %w", err)
	}

	const pairsQuery = `
SELECT source_lang, target_lang, COUNT(*)::BIGINT AS entries
FROM parley.translation_cache
WHERE expires_at > $1
GROUP BY source_lang, target_lang
ORDER BY entries DESC, source_lang, target_lang
`
	rows, err := p.Query(ctx, pairsQuery, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("query translation cache pairs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pair TranslationCachePairCount
		if err := rows.Scan(&pair.SourceLang, &pair.TargetLang, &pair.Entries); err != nil {
			return nil, fmt.Errorf("scan translation cache pair: %w", err)
		}
		stats.Pairs = append(stats.Pairs, pair)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translation cache pairs: %w", err)
	}

	return stats, nil
}
