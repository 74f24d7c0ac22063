package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Amund-Fremming/tero.platform/internal/db/models"
	"github.com/Amund-Fremming/tero.platform/internal/games"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint rejects a write.
	ErrConflict = errors.New("conflict")
)

// UserRepository exposes persistence operations for pseudo and registered users.
type UserRepository interface {
	// EnsurePseudoUser inserts the pseudo user if missing, otherwise refreshes
	// last_active. created reports whether a new row was written.
	EnsurePseudoUser(ctx context.Context, id uuid.UUID, now time.Time) (created bool, err error)
	PseudoUserExists(ctx context.Context, id uuid.UUID) (bool, error)
	CreatePseudoUser(ctx context.Context, id uuid.UUID, now time.Time) error
	TouchPseudoUser(ctx context.Context, id uuid.UUID, now time.Time) error

	GetBaseUser(ctx context.Context, id uuid.UUID) (*models.BaseUser, error)
	GetBaseUserByAuth0ID(ctx context.Context, auth0ID string) (*models.BaseUser, error)
	// RegisterUser creates the base user and the pseudo user sharing its id
	// in one transaction.
	RegisterUser(ctx context.Context, user *models.BaseUser) error
	PatchBaseUser(ctx context.Context, id uuid.UUID, patch models.UserPatch, now time.Time) (*models.BaseUser, error)
	ListBaseUsers(ctx context.Context, pageNum, pageSize int) (Page[models.BaseUser], error)
	ActivityStats(ctx context.Context, now time.Time) (*models.ActivityStats, error)
}

// GameQuery selects one page of a game listing.
type GameQuery struct {
	Kind     games.Kind
	Category games.Category // zero value spans every category
	PageNum  int
}

// GameRepository exposes persistence operations for games.
type GameRepository interface {
	ListGames(ctx context.Context, q GameQuery, pageSize int) (Page[models.GameBase], error)
	CreateGameBase(ctx context.Context, game *models.GameBase) error
	GetGameBase(ctx context.Context, id uuid.UUID) (*models.GameBase, error)
	DeleteGame(ctx context.Context, id uuid.UUID) (games.Kind, games.Category, error)

	GetRounds(ctx context.Context, kind games.Kind, id uuid.UUID) ([]string, error)
	// PersistRounds stores the rounds of a finished game and marks the base
	// row synced, played once more and sized to the rounds.
	PersistRounds(ctx context.Context, kind games.Kind, id uuid.UUID, rounds []string, now time.Time) error
	IncrementTimesPlayed(ctx context.Context, id uuid.UUID, now time.Time) error
	PurgeInactive(ctx context.Context, before time.Time) (int, error)

	SaveGame(ctx context.Context, userID, gameID uuid.UUID) error
	UnsaveGame(ctx context.Context, userID, gameID uuid.UUID) error
	ListSavedGames(ctx context.Context, userID uuid.UUID, q GameQuery, pageSize int) (Page[models.GameBase], error)
}

// WordRepository exposes the game-key word lists.
type WordRepository interface {
	PrefixWords(ctx context.Context) ([]string, error)
	SuffixWords(ctx context.Context) ([]string, error)
	ReplaceWords(ctx context.Context, prefix, suffix []string) error
}

// SystemLogRepository persists audit records.
type SystemLogRepository interface {
	Create(ctx context.Context, entry *models.SystemLog) error
}
