package db

import (
	"strings"
	"testing"

	"gorm.io/gorm/logger"
)

func TestResolveGormLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level string
		env   string
		want  logger.LogLevel
	}{
		{level: "debug", want: logger.Info},
		{level: "", want: logger.Warn},
		{level: "ERROR", want: logger.Error},
		{level: "silent", want: logger.Silent},
		{level: "verbose", env: "local", want: logger.Warn},
		{level: "verbose", env: "production", want: logger.Error},
	}
	for _, tc := range tests {
		if got := resolveGormLogLevel(tc.level, tc.env); got != tc.want {
			t.Fatalf("resolveGormLogLevel(%q, %q) = %v, want %v", tc.level, tc.env, got, tc.want)
		}
	}
}

func TestTranslationCacheEntryTableName(t *testing.T) {
	t.Parallel()

	if got := (TranslationCacheEntry{}).TableName(); got != "parley.translation_cache" {
		t.Fatalf("unexpected table name: %q", got)
	}
	if len(autoMigrateModels()) != 1 {
		t.Fatalf("expected one auto-migrated model")
	}
}

func TestMigrationStepsCreateSchemaBeforeCacheIndexes(t *testing.T) {
	t.Parallel()

	steps := migrationSteps()
	if len(steps) != 3 {
		t.Fatalf("expected 3 migration steps, got %d", len(steps))
	}
	if !strings.Contains(steps[0].sql, "CREATE SCHEMA IF NOT EXISTS parley") {
		t.Fatalf("first step must create the parley schema: %q", steps[0].sql)
	}
	if len(steps[1].models) != 1 {
		t.Fatalf("expected the cache model in the second step, got %d models", len(steps[1].models))
	}
	for _, index := range []string{"translation_cache_expires_at_idx", "translation_cache_lang_pair_idx"} {
		if !strings.Contains(steps[2].sql, index) {
			t.Fatalf("index step is missing %s", index)
		}
	}
}
