package migrations

import (
	"context"
	"fmt"

	"github.com/Amund-Fremming/tero.platform/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20260301000003, down_20260301000003)
}

// up_20260301000003 creates the key word lists
func up_20260301000003(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating word tables...")
	for _, model := range []any{(*models.PrefixWord)(nil), (*models.SuffixWord)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create word table: %w", err)
		}
	}
	fmt.Println(" OK")
	return nil
}

// down_20260301000003 drops the key word lists
func down_20260301000003(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping word tables...")
	for _, model := range []any{(*models.PrefixWord)(nil), (*models.SuffixWord)(nil)} {
		if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop word table: %w", err)
		}
	}
	fmt.Println(" OK")
	return nil
}
