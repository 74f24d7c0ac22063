package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Amund-Fremming/tero.platform/internal/db/models"
	"github.com/Amund-Fremming/tero.platform/internal/games"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBunUserRepository_EnsurePseudoUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunUserRepository(db)
	ctx := context.Background()

	id := uuid.New()
	created, err := repo.EnsurePseudoUser(ctx, id, time.Now())
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.EnsurePseudoUser(ctx, id, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, created)

	exists, err := repo.PseudoUserExists(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.PseudoUserExists(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBunUserRepository_CreateAndTouchPseudoUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunUserRepository(db)
	ctx := context.Background()

	id := uuid.New()
	require.NoError(t, repo.CreatePseudoUser(ctx, id, time.Now()))
	assert.ErrorIs(t, repo.CreatePseudoUser(ctx, id, time.Now()), ErrConflict)

	require.NoError(t, repo.TouchPseudoUser(ctx, id, time.Now()))
	assert.ErrorIs(t, repo.TouchPseudoUser(ctx, uuid.New(), time.Now()), ErrNotFound)
}

func TestBunUserRepository_RegisterUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunUserRepository(db)
	ctx := context.Background()

	t.Run("creates base and pseudo user sharing the id", func(t *testing.T) {
		user := seedBaseUser(t, repo, "auth0|one")

		got, err := repo.GetBaseUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Username, got.Username)

		byAuth0, err := repo.GetBaseUserByAuth0ID(ctx, "auth0|one")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byAuth0.ID)

		exists, err := repo.PseudoUserExists(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, exists)

		baseCount, err := db.NewSelect().Model((*models.BaseUser)(nil)).Where("id = ?", user.ID).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, baseCount)
		pseudoCount, err := db.NewSelect().Model((*models.PseudoUser)(nil)).Where("id = ?", user.ID).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, pseudoCount)
	})

	t.Run("existing pseudo user is linked", func(t *testing.T) {
		id := uuid.New()
		require.NoError(t, repo.CreatePseudoUser(ctx, id, time.Now()))

		auth0ID := "auth0|linked"
		user := &models.BaseUser{
			ID: id, Username: "linked", Auth0ID: &auth0ID, Gender: models.GenderUnknown,
			Email: "linked@example.com", CreatedAt: time.Now(), UpdatedAt: time.Now(),
		}
		require.NoError(t, repo.RegisterUser(ctx, user))

		_, err := repo.GetBaseUser(ctx, id)
		require.NoError(t, err)
	})

	t.Run("duplicate auth0 id is a conflict and rolls back", func(t *testing.T) {
		auth0ID := "auth0|one"
		user := &models.BaseUser{
			ID: uuid.New(), Username: "dup", Auth0ID: &auth0ID, Gender: models.GenderUnknown,
			Email: "dup@example.com", CreatedAt: time.Now(), UpdatedAt: time.Now(),
		}
		err := repo.RegisterUser(ctx, user)
		assert.ErrorIs(t, err, ErrConflict)

		exists, err := repo.PseudoUserExists(ctx, user.ID)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := repo.GetBaseUser(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.GetBaseUserByAuth0ID(ctx, "auth0|nobody")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestBunUserRepository_PatchBaseUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunUserRepository(db)
	ctx := context.Background()

	user := seedBaseUser(t, repo, "auth0|patch")
	username := "renamed"
	gender := models.GenderFemale

	updated, err := repo.PatchBaseUser(ctx, user.ID, models.UserPatch{Username: &username, Gender: &gender}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Username)
	assert.Equal(t, models.GenderFemale, updated.Gender)
	assert.Equal(t, user.GivenName, updated.GivenName)

	_, err = repo.PatchBaseUser(ctx, uuid.New(), models.UserPatch{Username: &username}, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBunUserRepository_ListBaseUsers(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunUserRepository(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		seedBaseUser(t, repo, uuid.NewString())
	}

	first, err := repo.ListBaseUsers(ctx, 0, 2)
	require.NoError(t, err)
	assert.Len(t, first.Items, 2)
	assert.True(t, first.HasNext)
	assert.False(t, first.HasPrev)

	last, err := repo.ListBaseUsers(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, last.Items, 1)
	assert.False(t, last.HasNext)
	assert.True(t, last.HasPrev)
	assert.Equal(t, 2, last.PageNum)
}

func TestBunUserRepository_ActivityStats(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunUserRepository(db)
	gameRepo := NewBunGameRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.CreatePseudoUser(ctx, uuid.New(), now))
	require.NoError(t, repo.CreatePseudoUser(ctx, uuid.New(), now))
	require.NoError(t, repo.CreatePseudoUser(ctx, uuid.New(), now.AddDate(-1, 0, 0)))
	seedGame(t, gameRepo, games.Quiz, games.Casual, true, 0)

	stats, err := repo.ActivityStats(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalUserCount)
	assert.Equal(t, 1, stats.TotalGameCount)
	assert.Equal(t, 2, stats.Recent.TodaysUsers)
	assert.Equal(t, 2, stats.Recent.ThisWeekUsers)
	assert.Equal(t, 2, stats.Recent.ThisMonthUsers)
	assert.InDelta(t, 2.0/30, stats.Average.AvgDailyUsers, 1e-9)
}
