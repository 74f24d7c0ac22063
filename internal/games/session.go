package games

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Session states as understood by the game-session service.
const (
	StateCreated     = "Created"
	StateInitialized = "Initialized"
)

// QuizSession is the payload for quiz games.
type QuizSession struct {
	GameID           uuid.UUID `json:"game_id"`
	CurrentIteration int       `json:"current_iteration"`
	Rounds           []string  `json:"rounds"`
}

// SpinSession is the payload shared by roulette and duel.
type SpinSession struct {
	GameID           uuid.UUID         `json:"game_id"`
	HostID           uuid.UUID         `json:"host_id"`
	State            string            `json:"state"`
	CurrentIteration int               `json:"current_iteration"`
	SelectionSize    int               `json:"selection_size"`
	Rounds           []string          `json:"rounds"`
	Players          map[uuid.UUID]int `json:"players"`
}

// ImposterSession is the payload for imposter games.
type ImposterSession struct {
	GameID           uuid.UUID         `json:"game_id"`
	HostID           uuid.UUID         `json:"host_id"`
	State            string            `json:"state"`
	CurrentIteration int               `json:"current_iteration"`
	Rounds           []string          `json:"rounds"`
	Players          map[uuid.UUID]int `json:"players"`
}

// PersistedGame is what the persistence step extracts from a finished session.
type PersistedGame struct {
	GameID uuid.UUID
	Rounds []string
}

// NewSession builds the initial session payload for a freshly created game.
func NewSession(kind Kind, hostID, gameID uuid.UUID) (json.RawMessage, error) {
	return FromRounds(kind, hostID, gameID, nil, StateCreated)
}

// FromRounds builds a session payload around already stored rounds.
func FromRounds(kind Kind, hostID, gameID uuid.UUID, rounds []string, state string) (json.RawMessage, error) {
	if rounds == nil {
		rounds = []string{}
	}

	var session any
	switch kind {
	case Roulette, Duel:
		session = SpinSession{
			GameID:        gameID,
			HostID:        hostID,
			State:         state,
			SelectionSize: kindSpecs[kind].selectionSize,
			Rounds:        rounds,
			Players:       map[uuid.UUID]int{hostID: 0},
		}
	case Quiz:
		session = QuizSession{GameID: gameID, Rounds: rounds}
	case Imposter:
		session = ImposterSession{
			GameID:  gameID,
			HostID:  hostID,
			State:   state,
			Rounds:  rounds,
			Players: map[uuid.UUID]int{hostID: 0},
		}
	default:
		return nil, fmt.Errorf("unknown game kind %q", kind)
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("encode %s session: %w", kind, err)
	}
	return raw, nil
}

// DecodePersisted extracts the game id and rounds from a finished session
// payload of the given kind.
func DecodePersisted(kind Kind, payload json.RawMessage) (*PersistedGame, error) {
	switch kind {
	case Roulette, Duel:
		var s SpinSession
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("decode spin session: %w", err)
		}
		return &PersistedGame{GameID: s.GameID, Rounds: s.Rounds}, nil
	case Quiz:
		var s QuizSession
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("decode quiz session: %w", err)
		}
		return &PersistedGame{GameID: s.GameID, Rounds: s.Rounds}, nil
	case Imposter:
		var s ImposterSession
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("decode imposter session: %w", err)
		}
		return &PersistedGame{GameID: s.GameID, Rounds: s.Rounds}, nil
	default:
		return nil, fmt.Errorf("unknown game kind %q", kind)
	}
}
