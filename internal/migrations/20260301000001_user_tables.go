package migrations

import (
	"context"
	"fmt"

	"github.com/Amund-Fremming/tero.platform/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20260301000001, down_20260301000001)
}

// up_20260301000001 creates pseudo_user and base_user
func up_20260301000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating pseudo_user table...")
	if _, err := db.NewCreateTable().
		Model((*models.PseudoUser)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create pseudo_user table: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_pseudo_user_last_active ON pseudo_user(last_active)`); err != nil {
		return fmt.Errorf("failed to create pseudo_user last_active index: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating base_user table...")
	if _, err := db.NewCreateTable().
		Model((*models.BaseUser)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create base_user table: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_base_user_created_at ON base_user(created_at)`); err != nil {
		return fmt.Errorf("failed to create base_user created_at index: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20260301000001 drops base_user and pseudo_user
func down_20260301000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping user tables...")
	for _, model := range []any{(*models.BaseUser)(nil), (*models.PseudoUser)(nil)} {
		if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop user table: %w", err)
		}
	}
	fmt.Println(" OK")
	return nil
}
