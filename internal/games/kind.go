package games

import (
	"fmt"
	"strings"
)

// Kind identifies one of the supported game types.
type Kind string

const (
	Roulette Kind = "roulette"
	Duel     Kind = "duel"
	Quiz     Kind = "quiz"
	Imposter Kind = "imposter"
)

// kindSpec holds everything that differs between game kinds. Handlers and
// repositories dispatch through this table instead of switching on Kind.
type kindSpec struct {
	hub           string
	table         string
	selectionSize int
	// interactive initiation from a stored game (session service hosts it)
	initiate bool
	// stored game served directly to the client without a session
	standalone bool
}

var kindSpecs = map[Kind]kindSpec{
	Roulette: {hub: "spin", table: "spin_game", selectionSize: 1, initiate: true},
	Duel:     {hub: "spin", table: "spin_game", selectionSize: 2, initiate: true},
	Quiz:     {hub: "quiz", table: "quiz_game", standalone: true},
	Imposter: {hub: "imposter", table: "imposter_game"},
}

// Kinds returns all game kinds in a stable order.
func Kinds() []Kind {
	return []Kind{Roulette, Duel, Quiz, Imposter}
}

// ParseKind parses the short name used in URLs and request bodies.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := kindSpecs[k]; !ok {
		return "", fmt.Errorf("unknown game kind %q", s)
	}
	return k, nil
}

func (k Kind) String() string { return string(k) }

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindSpecs[k]
	return ok
}

// Hub returns the hub name on the game-session service.
func (k Kind) Hub() string { return kindSpecs[k].hub }

// HubAddress builds the URL clients connect to for live play.
func (k Kind) HubAddress(gsDomain string) string {
	return strings.TrimSuffix(gsDomain, "/") + "/hubs/" + k.Hub()
}

// Table returns the per-kind table holding persisted rounds.
func (k Kind) Table() string { return kindSpecs[k].table }

// SupportsInitiate reports whether a stored game of this kind can be hosted
// as a new interactive session.
func (k Kind) SupportsInitiate() bool { return kindSpecs[k].initiate }

// SupportsStandalone reports whether a stored game of this kind can be
// played without the session service.
func (k Kind) SupportsStandalone() bool { return kindSpecs[k].standalone }

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k), nil
}

// UnmarshalText implements encoding.TextUnmarshaler and rejects unknown kinds.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
