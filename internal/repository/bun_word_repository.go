package repository

import (
	"context"
	"fmt"

	"github.com/Amund-Fremming/tero.platform/internal/db/models"
	"github.com/uptrace/bun"
)

// BunWordRepository implements WordRepository using Bun ORM
type BunWordRepository struct {
	db *bun.DB
}

// NewBunWordRepository creates a new Bun-based word repository
func NewBunWordRepository(db *bun.DB) *BunWordRepository {
	return &BunWordRepository{db: db}
}

// PrefixWords returns the prefix list in a stable order.
func (r *BunWordRepository) PrefixWords(ctx context.Context) ([]string, error) {
	var words []string
	err := r.db.NewSelect().
		Model((*models.PrefixWord)(nil)).
		Column("word").
		OrderExpr("word").
		Scan(ctx, &words)
	if err != nil {
		return nil, fmt.Errorf("load prefix words: %w", err)
	}
	return words, nil
}

// SuffixWords returns the suffix list in a stable order.
func (r *BunWordRepository) SuffixWords(ctx context.Context) ([]string, error) {
	var words []string
	err := r.db.NewSelect().
		Model((*models.SuffixWord)(nil)).
		Column("word").
		OrderExpr("word").
		Scan(ctx, &words)
	if err != nil {
		return nil, fmt.Errorf("load suffix words: %w", err)
	}
	return words, nil
}

// ReplaceWords swaps both lists atomically.
func (r *BunWordRepository) ReplaceWords(ctx context.Context, prefix, suffix []string) error {
	prefixRows := make([]models.PrefixWord, 0, len(prefix))
	for _, w := range prefix {
		prefixRows = append(prefixRows, models.PrefixWord{Word: w})
	}
	suffixRows := make([]models.SuffixWord, 0, len(suffix))
	for _, w := range suffix {
		suffixRows = append(suffixRows, models.SuffixWord{Word: w})
	}

	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*models.PrefixWord)(nil)).Where("1 = 1").Exec(ctx); err != nil {
			return fmt.Errorf("clear prefix words: %w", err)
		}
		if _, err := tx.NewDelete().Model((*models.SuffixWord)(nil)).Where("1 = 1").Exec(ctx); err != nil {
			return fmt.Errorf("clear suffix words: %w", err)
		}
		if len(prefixRows) > 0 {
			if _, err := tx.NewInsert().Model(&prefixRows).Exec(ctx); err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("duplicate prefix word: %w", ErrConflict)
				}
				return fmt.Errorf("insert prefix words: %w", err)
			}
		}
		if len(suffixRows) > 0 {
			if _, err := tx.NewInsert().Model(&suffixRows).Exec(ctx); err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("duplicate suffix word: %w", ErrConflict)
				}
				return fmt.Errorf("insert suffix words: %w", err)
			}
		}
		return nil
	})
}
