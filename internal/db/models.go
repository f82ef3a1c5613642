package db

import "time"

// TranslationCacheEntry maps parley.translation_cache.
type TranslationCacheEntry struct {
	CacheKey    string    `gorm:"column:cache_key;type:text;primaryKey"`
	SourceLang  string    `gorm:"column:source_lang;type:text;not null"`
	TargetLang  string    `gorm:"column:target_lang;type:text;not null"`
	Translation string    `gorm:"column:translation;type:text;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	ExpiresAt   time.Time `gorm:"column:expires_at;type:timestamptz;not null"`
}

func (TranslationCacheEntry) TableName() string { return "parley.translation_cache" }

func autoMigrateModels() []any {
	return []any{
		&TranslationCacheEntry{},
	}
}
