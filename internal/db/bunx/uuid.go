package bunx

import "github.com/google/uuid"

// NewUUIDv7 returns a time-ordered id for rows created by the server.
// Panics only when the entropy source fails.
func NewUUIDv7() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
