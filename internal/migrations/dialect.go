package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// index is a CREATE INDEX statement. pgOnly statements use Postgres-only
// syntax (gin, jsonb operators) and are skipped on SQLite.
type index struct {
	stmt   string
	pgOnly bool
}

func createIndexes(ctx context.Context, db *bun.DB, table string, indexes ...index) error {
	pg := db.Dialect().Name() == dialect.PG
	for _, idx := range indexes {
		if idx.pgOnly && !pg {
			continue
		}
		if _, err := db.ExecContext(ctx, idx.stmt); err != nil {
			return fmt.Errorf("failed to create %s index: %w", table, err)
		}
	}
	return nil
}
