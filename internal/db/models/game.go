package models

import (
	"time"

	"github.com/Amund-Fremming/tero.platform/internal/games"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// GameBase is the listing row shared by every game kind.
type GameBase struct {
	bun.BaseModel `bun:"table:game_base,alias:gb"`

	ID          uuid.UUID      `bun:"id,pk,type:uuid" json:"id"`
	Name        string         `bun:"name,notnull" json:"name"`
	Kind        games.Kind     `bun:"kind,notnull" json:"game_type"`
	Category    games.Category `bun:"category,notnull" json:"category"`
	Iterations  int            `bun:"iterations,notnull" json:"iterations"`
	TimesPlayed int            `bun:"times_played,notnull" json:"times_played"`
	LastPlayed  time.Time      `bun:"last_played,notnull" json:"last_played"`
	Synced      bool           `bun:"synced,notnull" json:"-"`
}

// QuizGame holds the rounds of a stored quiz.
type QuizGame struct {
	bun.BaseModel `bun:"table:quiz_game,alias:qg"`

	ID     uuid.UUID `bun:"id,pk,type:uuid"`
	Rounds []string  `bun:"rounds,type:jsonb,notnull"`
}

// SpinGame holds the rounds of a stored roulette or duel game.
type SpinGame struct {
	bun.BaseModel `bun:"table:spin_game,alias:sg"`

	ID     uuid.UUID `bun:"id,pk,type:uuid"`
	Rounds []string  `bun:"rounds,type:jsonb,notnull"`
}

// ImposterGame holds the rounds of a stored imposter game.
type ImposterGame struct {
	bun.BaseModel `bun:"table:imposter_game,alias:ig"`

	ID     uuid.UUID `bun:"id,pk,type:uuid"`
	Rounds []string  `bun:"rounds,type:jsonb,notnull"`
}

// SavedGame bookmarks a game for a registered user.
type SavedGame struct {
	bun.BaseModel `bun:"table:saved_game,alias:svg"`

	ID     uuid.UUID `bun:"id,pk,type:uuid"`
	UserID uuid.UUID `bun:"user_id,notnull,type:uuid,unique:saved_game_user_base"`
	BaseID uuid.UUID `bun:"base_id,notnull,type:uuid,unique:saved_game_user_base"`
}
