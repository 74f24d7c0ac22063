package migrations

import (
	"context"
	"fmt"

	"github.com/Amund-Fremming/tero.platform/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20260301000004, down_20260301000004)
}

// up_20260301000004 creates system_log
func up_20260301000004(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating system_log table...")
	if _, err := db.NewCreateTable().
		Model((*models.SystemLog)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create system_log table: %w", err)
	}

	if err := createIndexes(ctx, db, "system_log",
		index{stmt: `CREATE INDEX IF NOT EXISTS idx_system_log_metadata_gin ON system_log USING gin (metadata jsonb_path_ops)`, pgOnly: true},
		index{stmt: `CREATE INDEX IF NOT EXISTS idx_system_log_severity_created ON system_log(severity, created_at)`},
	); err != nil {
		return err
	}
	fmt.Println(" OK")

	return nil
}

// down_20260301000004 drops system_log
func down_20260301000004(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping system_log table...")
	if _, err := db.NewDropTable().
		Model((*models.SystemLog)(nil)).
		IfExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop system_log table: %w", err)
	}
	fmt.Println(" OK")
	return nil
}
