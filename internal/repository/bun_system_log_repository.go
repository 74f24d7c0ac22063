package repository

import (
	"context"
	"fmt"

	"github.com/Amund-Fremming/tero.platform/internal/db/bunx"
	"github.com/Amund-Fremming/tero.platform/internal/db/models"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BunSystemLogRepository implements SystemLogRepository using Bun ORM
type BunSystemLogRepository struct {
	db *bun.DB
}

// NewBunSystemLogRepository creates a new Bun-based audit log repository
func NewBunSystemLogRepository(db *bun.DB) *BunSystemLogRepository {
	return &BunSystemLogRepository{db: db}
}

// Create inserts an audit record, assigning an id if needed.
func (r *BunSystemLogRepository) Create(ctx context.Context, entry *models.SystemLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = bunx.NewUUIDv7()
	}
	if _, err := r.db.NewInsert().Model(entry).Exec(ctx); err != nil {
		return fmt.Errorf("create system log: %w", err)
	}
	return nil
}
