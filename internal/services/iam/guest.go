package iam

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Amund-Fremming/tero.platform/internal/apierror"
	"github.com/Amund-Fremming/tero.platform/internal/auth"
	"github.com/Amund-Fremming/tero.platform/internal/db/models"
	"github.com/Amund-Fremming/tero.platform/internal/services/syslog"
)

// GuestHeader carries the pseudo user id of an anonymous client.
const GuestHeader = "X-Guest-Authentication"

// PseudoUserStore is the slice of the user repository guests need.
type PseudoUserStore interface {
	EnsurePseudoUser(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
}

// Dispatcher runs detached work. Satisfied by *background.Queue.
type Dispatcher interface {
	Submit(name string, fn func(ctx context.Context) error) bool
}

// GuestAuthenticator accepts a client-minted uuid. The pseudo user row is
// upserted in the background; the request does not wait for it.
type GuestAuthenticator struct {
	users PseudoUserStore
	jobs  Dispatcher
	audit *syslog.Logger
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewGuestAuthenticator(users PseudoUserStore, jobs Dispatcher, audit *syslog.Logger, log logrus.FieldLogger) *GuestAuthenticator {
	return &GuestAuthenticator{
		users: users,
		jobs:  jobs,
		audit: audit,
		log:   log.WithField("component", "guest_auth"),
		now:   time.Now,
	}
}

func (a *GuestAuthenticator) Authenticate(ctx context.Context, req AuthRequest) (*Identity, error) {
	raw := req.Headers.Get(GuestHeader)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		a.log.WithField("header", raw).Debug("malformed guest id")
		return nil, apierror.AccessDenied()
	}

	a.jobs.Submit("ensure_pseudo_user", func(ctx context.Context) error {
		return a.ensure(ctx, id)
	})

	return &Identity{Subject: auth.GuestUser(id), Claims: auth.EmptyClaims()}, nil
}

func (a *GuestAuthenticator) ensure(ctx context.Context, id uuid.UUID) error {
	created, err := a.users.EnsurePseudoUser(ctx, id, a.now())
	if err != nil {
		a.audit.Entry().
			Subject(models.SubjectGuestUser, id.String()).
			Action(models.ActionCreate).
			Severity(models.SeverityCritical).
			Function("ensure_pseudo_user").
			Description("Failed to upsert pseudo user for guest request").
			Metadata(map[string]any{"error": err.Error()}).
			Dispatch()
		return fmt.Errorf("ensure pseudo user %s: %w", id, err)
	}
	if created {
		// The client presented an id this server never issued.
		a.audit.Entry().
			Subject(models.SubjectGuestUser, id.String()).
			Action(models.ActionCreate).
			Severity(models.SeverityWarning).
			Function("ensure_pseudo_user").
			Description("Created ghost user from unknown guest id").
			Dispatch()
	}
	return nil
}
