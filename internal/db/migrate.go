package db

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed sql/schema.sql
var schemaSQL string

//go:embed sql/translation_cache_indexes.sql
var translationCacheIndexesSQL string

// migrationStep is either a raw SQL script or a gorm model sync.
type migrationStep struct {
	label  string
	sql    string
	models []any
}

// migrationSteps creates the parley schema, syncs the cache table and then
// adds the expiry and language-pair indexes the prune and stats queries use.
func migrationSteps() []migrationStep {
	return []migrationStep{
		{label: "parley schema", sql: schemaSQL},
		{label: "translation cache table", models: autoMigrateModels()},
		{label: "translation cache indexes", sql: translationCacheIndexesSQL},
	}
}

func (p *Pool) autoMigrate(ctx context.Context) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	for _, step := range migrationSteps() {
		if len(step.models) > 0 {
			if err := p.gdb.WithContext(ctx).AutoMigrate(step.models...); err != nil {
				return fmt.Errorf("migrate %s: %w", step.label, err)
			}
			continue
		}
		script := strings.TrimSpace(step.sql)
		if script == "" {
			continue
		}
		if err := p.gdb.WithContext(ctx).Exec(script).Error; err != nil {
			return fmt.Errorf("migrate %s: %w", step.label, err)
		}
	}

	return nil
}
