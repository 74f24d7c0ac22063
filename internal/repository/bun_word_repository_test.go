package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Amund-Fremming/tero.platform/internal/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBunWordRepository_ReplaceWords(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunWordRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.ReplaceWords(ctx, []string{"red", "blue"}, []string{"fox", "owl"}))
	require.NoError(t, repo.ReplaceWords(ctx, []string{"green", "amber"}, []string{"cat", "dog"}))

	prefix, err := repo.PrefixWords(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"amber", "green"}, prefix)

	suffix, err := repo.SuffixWords(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog"}, suffix)

	err = repo.ReplaceWords(ctx, []string{"same", "same"}, []string{"a", "b"})
	assert.ErrorIs(t, err, ErrConflict)

	prefix, err = repo.PrefixWords(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"amber", "green"}, prefix, "failed replace rolls back")
}

func TestBunSystemLogRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunSystemLogRepository(db)
	ctx := context.Background()

	entry := &models.SystemLog{
		SubjectID:   "[SYSTEM]",
		SubjectType: models.SubjectSystem,
		Action:      models.ActionOther,
		Severity:    models.SeverityWarning,
		Function:    "sweep",
		Description: "reclaimed keys",
		Metadata:    map[string]any{"removed": 2},
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, entry))
	assert.NotZero(t, entry.ID)

	var stored models.SystemLog
	require.NoError(t, db.NewSelect().Model(&stored).Where("id = ?", entry.ID).Scan(ctx))
	assert.Equal(t, "sweep", stored.Function)
	assert.EqualValues(t, 2, stored.Metadata["removed"])
}
