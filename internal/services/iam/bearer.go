package iam

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/Amund-Fremming/tero.platform/internal/apierror"
	"github.com/Amund-Fremming/tero.platform/internal/auth"
	"github.com/Amund-Fremming/tero.platform/internal/db/models"
	"github.com/Amund-Fremming/tero.platform/internal/repository"
	"github.com/Amund-Fremming/tero.platform/internal/services/syslog"
)

// TokenVerifier checks a raw bearer token. Satisfied by *auth.Verifier.
type TokenVerifier interface {
	Verify(raw string) (*auth.Claims, error)
}

// UserLookup resolves identity-provider user ids to base users.
type UserLookup interface {
	GetBaseUserByAuth0ID(ctx context.Context, auth0ID string) (*models.BaseUser, error)
}

// BearerAuthenticator validates RS256 access tokens.
//
// Machine tokens (gty=client-credentials) map to an integration through the
// registry. User tokens map to the base_user row holding the token subject.
type BearerAuthenticator struct {
	verifier     TokenVerifier
	integrations *auth.IntegrationRegistry
	users        UserLookup
	audit        *syslog.Logger
	log          logrus.FieldLogger
}

func NewBearerAuthenticator(verifier TokenVerifier, integrations *auth.IntegrationRegistry, users UserLookup, audit *syslog.Logger, log logrus.FieldLogger) *BearerAuthenticator {
	return &BearerAuthenticator{
		verifier:     verifier,
		integrations: integrations,
		users:        users,
		audit:        audit,
		log:          log.WithField("component", "bearer_auth"),
	}
}

func (a *BearerAuthenticator) Authenticate(ctx context.Context, req AuthRequest) (*Identity, error) {
	header := req.Headers.Get("Authorization")
	if header == "" {
		return nil, nil
	}
	raw, err := auth.BearerToken(header)
	if err != nil {
		// a non-bearer scheme carries no usable token
		return nil, apierror.JwtVerification("Missing auth token")
	}

	claims, err := a.verifier.Verify(raw)
	if err != nil {
		a.log.WithError(err).Debug("token rejected")
		e := apierror.JwtVerification("invalid token")
		e.Err = err
		return nil, e
	}

	if claims.IsMachine() {
		name, ok := a.integrations.FromSubject(claims.Subject)
		if !ok {
			a.log.WithField("subject", claims.Subject).Warn("unknown integration")
			return nil, apierror.AccessDenied()
		}
		return &Identity{Subject: auth.Integration(name), Claims: claims}, nil
	}

	user, err := a.users.GetBaseUserByAuth0ID(ctx, claims.Subject)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		a.audit.Entry().
			Subject(models.SubjectRegisteredUser, claims.Subject).
			Action(models.ActionSync).
			Severity(models.SeverityCritical).
			Function("resolve_subject").
			Description("Verified token has no matching base user").
			Metadata(map[string]any{"auth0_id": claims.Subject}).
			Dispatch()
		return nil, apierror.Internal("sync error", err)
	case err != nil:
		return nil, apierror.Internal("user lookup", err)
	}

	return &Identity{Subject: auth.RegisteredUser(user.ID), Claims: claims}, nil
}
