package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Amund-Fremming/tero.platform/internal/db/bunx"
	"github.com/Amund-Fremming/tero.platform/internal/db/models"
	"github.com/Amund-Fremming/tero.platform/internal/games"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BunGameRepository implements GameRepository using Bun ORM
type BunGameRepository struct {
	db *bun.DB
}

// NewBunGameRepository creates a new Bun-based game repository
func NewBunGameRepository(db *bun.DB) *BunGameRepository {
	return &BunGameRepository{db: db}
}

// roundsModel returns the per-kind row for id and a pointer to its rounds.
func roundsModel(kind games.Kind, id uuid.UUID) (any, *[]string, error) {
	switch kind.Table() {
	case "quiz_game":
		m := &models.QuizGame{ID: id}
		return m, &m.Rounds, nil
	case "spin_game":
		m := &models.SpinGame{ID: id}
		return m, &m.Rounds, nil
	case "imposter_game":
		m := &models.ImposterGame{ID: id}
		return m, &m.Rounds, nil
	}
	return nil, nil, fmt.Errorf("no rounds table for game kind %q", kind)
}

// ListGames returns synced games of one kind, most played first.
func (r *BunGameRepository) ListGames(ctx context.Context, q GameQuery, pageSize int) (Page[models.GameBase], error) {
	limit, offset := limitOffset(q.PageNum, pageSize)
	var rows []models.GameBase
	sel := r.db.NewSelect().
		Model(&rows).
		Where("kind = ?", q.Kind).
		Where("synced = ?", true)
	if !q.Category.IsZero() {
		sel = sel.Where("category = ?", q.Category)
	}
	err := sel.
		OrderExpr("times_played DESC").
		OrderExpr("id").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return Page[models.GameBase]{}, fmt.Errorf("list games: %w", err)
	}
	return newPage(rows, q.PageNum, pageSize), nil
}

// CreateGameBase inserts a new, unsynced game.
func (r *BunGameRepository) CreateGameBase(ctx context.Context, game *models.GameBase) error {
	if game.ID == uuid.Nil {
		game.ID = bunx.NewUUIDv7()
	}
	if _, err := r.db.NewInsert().Model(game).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("game %s: %w", game.ID, ErrConflict)
		}
		return fmt.Errorf("create game: %w", err)
	}
	return nil
}

// GetGameBase retrieves a game by id.
func (r *BunGameRepository) GetGameBase(ctx context.Context, id uuid.UUID) (*models.GameBase, error) {
	game := new(models.GameBase)
	err := r.db.NewSelect().Model(game).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("game %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get game: %w", err)
	}
	return game, nil
}

// DeleteGame removes a game in one statement and returns the listing it
// belonged to. Per-kind rows go with it through the cascade.
func (r *BunGameRepository) DeleteGame(ctx context.Context, id uuid.UUID) (games.Kind, games.Category, error) {
	var (
		kind     string
		category string
	)
	err := r.db.NewRaw(`DELETE FROM game_base WHERE id = ? RETURNING kind, category`, id).
		Scan(ctx, &kind, &category)
	if err != nil {
		if isNoRows(err) {
			return "", "", fmt.Errorf("game %s: %w", id, ErrNotFound)
		}
		return "", "", fmt.Errorf("delete game: %w", err)
	}
	return games.Kind(kind), games.Category(category), nil
}

// GetRounds loads the stored rounds of a game.
func (r *BunGameRepository) GetRounds(ctx context.Context, kind games.Kind, id uuid.UUID) ([]string, error) {
	model, rounds, err := roundsModel(kind, id)
	if err != nil {
		return nil, err
	}
	if err := r.db.NewSelect().Model(model).WherePK().Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%s game %s: %w", kind, id, ErrNotFound)
		}
		return nil, fmt.Errorf("get rounds: %w", err)
	}
	return *rounds, nil
}

// PersistRounds upserts the rounds and marks the base row synced.
func (r *BunGameRepository) PersistRounds(ctx context.Context, kind games.Kind, id uuid.UUID, rounds []string, now time.Time) error {
	model, dst, err := roundsModel(kind, id)
	if err != nil {
		return err
	}
	if rounds == nil {
		rounds = []string{}
	}
	*dst = rounds

	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.GameBase)(nil)).
			Set("times_played = times_played + 1").
			Set("last_played = ?", now.UTC()).
			Set("synced = ?", true).
			Set("iterations = ?", len(rounds)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("sync game: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("game %s: %w", id, ErrNotFound)
		}

		if _, err := tx.NewInsert().
			Model(model).
			On("CONFLICT (id) DO UPDATE").
			Set("rounds = EXCLUDED.rounds").
			Exec(ctx); err != nil {
			return fmt.Errorf("store rounds: %w", err)
		}
		return nil
	})
}

// IncrementTimesPlayed bumps the play counter of a game.
func (r *BunGameRepository) IncrementTimesPlayed(ctx context.Context, id uuid.UUID, now time.Time) error {
	res, err := r.db.NewUpdate().
		Model((*models.GameBase)(nil)).
		Set("times_played = times_played + 1").
		Set("last_played = ?", now.UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("increment times played: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	return nil
}

// PurgeInactive deletes games not played since before.
func (r *BunGameRepository) PurgeInactive(ctx context.Context, before time.Time) (int, error) {
	res, err := r.db.NewDelete().
		Model((*models.GameBase)(nil)).
		Where("last_played < ?", before.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge inactive games: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// SaveGame bookmarks a game; saving twice is a no-op.
func (r *BunGameRepository) SaveGame(ctx context.Context, userID, gameID uuid.UUID) error {
	_, err := r.db.NewInsert().
		Model(&models.SavedGame{ID: bunx.NewUUIDv7(), UserID: userID, BaseID: gameID}).
		On("CONFLICT (user_id, base_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save game: %w", err)
	}
	return nil
}

// UnsaveGame removes a bookmark.
func (r *BunGameRepository) UnsaveGame(ctx context.Context, userID, gameID uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*models.SavedGame)(nil)).
		Where("user_id = ?", userID).
		Where("base_id = ?", gameID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("unsave game: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("saved game %s for user %s: %w", gameID, userID, ErrNotFound)
	}
	return nil
}

// ListSavedGames returns a user's synced bookmarks. An empty q.Kind lists
// every kind.
func (r *BunGameRepository) ListSavedGames(ctx context.Context, userID uuid.UUID, q GameQuery, pageSize int) (Page[models.GameBase], error) {
	limit, offset := limitOffset(q.PageNum, pageSize)
	var rows []models.GameBase
	err := r.db.NewSelect().
		Model(&rows).
		Join("JOIN saved_game AS svg ON svg.base_id = gb.id").
		Where("svg.user_id = ?", userID).
		Apply(func(sq *bun.SelectQuery) *bun.SelectQuery {
			if q.Kind == "" {
				return sq
			}
			return sq.Where("gb.kind = ?", q.Kind)
		}).
		Where("gb.synced = ?", true).
		OrderExpr("gb.last_played DESC").
		OrderExpr("gb.id").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return Page[models.GameBase]{}, fmt.Errorf("list saved games: %w", err)
	}
	return newPage(rows, q.PageNum, pageSize), nil
}
