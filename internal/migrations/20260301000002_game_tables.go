package migrations

import (
	"context"
	"fmt"

	"github.com/Amund-Fremming/tero.platform/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20260301000002, down_20260301000002)
}

// up_20260301000002 creates game_base, the per-kind round tables and saved_game
func up_20260301000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating game_base table...")
	if _, err := db.NewCreateTable().
		Model((*models.GameBase)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create game_base table: %w", err)
	}
	if err := createIndexes(ctx, db, "game_base",
		index{stmt: `CREATE INDEX IF NOT EXISTS idx_game_base_kind_category ON game_base(kind, category)`},
		index{stmt: `CREATE INDEX IF NOT EXISTS idx_game_base_last_played ON game_base(last_played)`},
	); err != nil {
		return err
	}
	fmt.Println(" OK")

	// rounds rows live and die with their game_base row
	roundTables := []struct {
		name  string
		model any
	}{
		{"quiz_game", (*models.QuizGame)(nil)},
		{"spin_game", (*models.SpinGame)(nil)},
		{"imposter_game", (*models.ImposterGame)(nil)},
	}
	for _, rt := range roundTables {
		fmt.Printf(" [up] creating %s table...", rt.name)
		if _, err := db.NewCreateTable().
			Model(rt.model).
			IfNotExists().
			ForeignKey(`("id") REFERENCES "game_base" ("id") ON DELETE CASCADE`).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create %s table: %w", rt.name, err)
		}
		fmt.Println(" OK")
	}

	fmt.Print(" [up] creating saved_game table...")
	if _, err := db.NewCreateTable().
		Model((*models.SavedGame)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "base_user" ("id") ON DELETE CASCADE`).
		ForeignKey(`("base_id") REFERENCES "game_base" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create saved_game table: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20260301000002 drops the game tables, dependants first
func down_20260301000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping game tables...")
	dropOrder := []any{
		(*models.SavedGame)(nil),
		(*models.QuizGame)(nil),
		(*models.SpinGame)(nil),
		(*models.ImposterGame)(nil),
		(*models.GameBase)(nil),
	}
	for _, model := range dropOrder {
		if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop game table: %w", err)
		}
	}
	fmt.Println(" OK")
	return nil
}
