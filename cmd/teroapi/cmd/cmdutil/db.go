// Package cmdutil holds helpers shared by CLI commands.
package cmdutil

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"github.com/Amund-Fremming/tero.platform/internal/config"
	"github.com/Amund-Fremming/tero.platform/internal/db/bunx"
	"github.com/Amund-Fremming/tero.platform/internal/migrations"
)

const connectTimeout = 10 * time.Second

// DBBundle is an open connection with its migrator.
type DBBundle struct {
	DB       *bun.DB
	Migrator *migrate.Migrator
}

// Close releases the underlying database connection.
func (b *DBBundle) Close() {
	if b == nil || b.DB == nil {
		return
	}
	_ = bunx.Close(b.DB)
}

// OpenDB connects to the configured database and prepares a migrator over the
// embedded migrations.
func OpenDB(ctx context.Context, cfg *config.Config) (*DBBundle, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	db, err := bunx.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &DBBundle{
		DB:       db,
		Migrator: migrate.NewMigrator(db, migrations.Migrations),
	}, nil
}

// withLock runs fn holding the migration lock so two deploys never migrate
// the same database at once.
func (b *DBBundle) withLock(ctx context.Context, fn func() error) error {
	if err := b.Migrator.Lock(ctx); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() { _ = b.Migrator.Unlock(ctx) }()
	return fn()
}

// MigrateLocked applies pending migrations under the migration lock. It
// returns the applied group id, 0 when nothing was pending.
func (b *DBBundle) MigrateLocked(ctx context.Context) (int64, error) {
	if err := b.Migrator.Init(ctx); err != nil {
		return 0, fmt.Errorf("failed to initialize migrator: %w", err)
	}
	var id int64
	err := b.withLock(ctx, func() error {
		group, err := b.Migrator.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		id = group.ID
		return nil
	})
	return id, err
}

// RollbackLocked reverts the newest migration group under the migration
// lock. It returns the reverted group id, 0 when nothing was applied.
func (b *DBBundle) RollbackLocked(ctx context.Context) (int64, error) {
	var id int64
	err := b.withLock(ctx, func() error {
		group, err := b.Migrator.Rollback(ctx)
		if err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		id = group.ID
		return nil
	})
	return id, err
}

// Pending lists migrations not yet applied.
func (b *DBBundle) Pending(ctx context.Context) (migrate.MigrationSlice, error) {
	ms, err := b.Migrator.MigrationsWithStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}
	return ms.Unapplied(), nil
}
