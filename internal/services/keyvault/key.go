package keyvault

import (
	"errors"
	"strings"
)

// ErrInvalidKey is returned when a string does not hold two words.
var ErrInvalidKey = errors.New("invalid game key")

// Key is a two-word game key, shown to players as "<prefix> <suffix>".
type Key struct {
	Prefix string
	Suffix string
}

func (k Key) String() string {
	return k.Prefix + " " + k.Suffix
}

// ParseKey splits s on single spaces and takes the first two tokens.
func ParseKey(s string) (Key, error) {
	parts := strings.SplitN(s, " ", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Key{}, ErrInvalidKey
	}
	return Key{Prefix: parts[0], Suffix: parts[1]}, nil
}
