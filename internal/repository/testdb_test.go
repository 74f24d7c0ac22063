package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Amund-Fremming/tero.platform/internal/db/bunx"
	"github.com/Amund-Fremming/tero.platform/internal/db/models"
	"github.com/Amund-Fremming/tero.platform/internal/games"
	"github.com/Amund-Fremming/tero.platform/internal/migrations"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// setupTestDB opens a private in-memory SQLite database with every migration applied.
func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	ctx := context.Background()
	db, err := bunx.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = migrations.Apply(ctx, db)
	require.NoError(t, err)
	return db
}

func seedGame(t *testing.T, repo *BunGameRepository, kind games.Kind, category games.Category, synced bool, played int) *models.GameBase {
	t.Helper()

	game := &models.GameBase{
		ID:          uuid.New(),
		Name:        "game-" + uuid.NewString()[:8],
		Kind:        kind,
		Category:    category,
		TimesPlayed: played,
		LastPlayed:  time.Now().UTC(),
		Synced:      synced,
	}
	require.NoError(t, repo.CreateGameBase(context.Background(), game))
	return game
}

func seedBaseUser(t *testing.T, repo *BunUserRepository, auth0ID string) *models.BaseUser {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	user := &models.BaseUser{
		ID:         uuid.New(),
		Username:   "user." + auth0ID,
		Auth0ID:    &auth0ID,
		Gender:     models.GenderUnknown,
		Email:      auth0ID + "@example.com",
		FamilyName: "Doe",
		GivenName:  "Jane",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, repo.RegisterUser(context.Background(), user))
	return user
}
