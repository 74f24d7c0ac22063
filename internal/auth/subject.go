package auth

import (
	"fmt"

	"github.com/google/uuid"
)

// SubjectKind discriminates Subject.
type SubjectKind int

const (
	SubjectGuest SubjectKind = iota + 1
	SubjectRegistered
	SubjectIntegration
)

func (k SubjectKind) String() string {
	switch k {
	case SubjectGuest:
		return "guest"
	case SubjectRegistered:
		return "registered"
	case SubjectIntegration:
		return "integration"
	}
	return "unknown"
}

// Subject is who a request acts on behalf of.
type Subject struct {
	Kind        SubjectKind
	ID          uuid.UUID       // guest and registered
	Integration IntegrationName // integration
}

// GuestUser is a client-minted anonymous identity.
func GuestUser(id uuid.UUID) Subject {
	return Subject{Kind: SubjectGuest, ID: id}
}

// RegisteredUser is a base_user row.
func RegisteredUser(id uuid.UUID) Subject {
	return Subject{Kind: SubjectRegistered, ID: id}
}

// Integration is a trusted peer service.
func Integration(name IntegrationName) Subject {
	return Subject{Kind: SubjectIntegration, Integration: name}
}

// UserID returns the user id for guest and registered subjects.
func (s Subject) UserID() (uuid.UUID, bool) {
	switch s.Kind {
	case SubjectGuest, SubjectRegistered:
		return s.ID, true
	}
	return uuid.Nil, false
}

// IsZero reports whether s is unset.
func (s Subject) IsZero() bool { return s.Kind == 0 }

func (s Subject) String() string {
	switch s.Kind {
	case SubjectGuest:
		return fmt.Sprintf("guest:%s", s.ID)
	case SubjectRegistered:
		return fmt.Sprintf("user:%s", s.ID)
	case SubjectIntegration:
		return fmt.Sprintf("integration:%s", s.Integration)
	}
	return "anonymous"
}

// Attributes exposes the subject to policy condition expressions.
func (s Subject) Attributes() map[string]any {
	attrs := map[string]any{
		"kind":        s.Kind.String(),
		"integration": string(s.Integration),
	}
	if id, ok := s.UserID(); ok {
		attrs["id"] = id.String()
	}
	return attrs
}
