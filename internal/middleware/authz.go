package middleware

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Amund-Fremming/tero.platform/internal/apierror"
	"github.com/Amund-Fremming/tero.platform/internal/auth"
)

// Policy decides whether a subject may perform an action.
// Satisfied by *auth.AccessPolicy.
type Policy interface {
	Allowed(subject auth.Subject, action string) (bool, error)
}

// Authorize rejects subjects the policy does not allow to perform action.
// It must run after Authenticate or WebhookSecret.
func Authorize(policy Policy, action string, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, ok := auth.SubjectFromContext(r.Context())
			if !ok {
				apierror.Write(w, r, log, apierror.AccessDenied())
				return
			}

			allowed, err := policy.Allowed(subject, action)
			if err != nil {
				apierror.Write(w, r, log, apierror.Internal("policy evaluation", err))
				return
			}
			if !allowed {
				log.WithFields(logrus.Fields{
					"subject": subject.String(),
					"action":  action,
				}).Debug("access denied by policy")
				apierror.Write(w, r, log, apierror.AccessDenied())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermissions rejects requests whose claims lack any of perms. The
// response lists the missing permission names.
func RequirePermissions(log logrus.FieldLogger, perms ...auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := auth.ClaimsFromContext(r.Context())
			if missing := claims.MissingPermission(perms...); missing != nil {
				apierror.Write(w, r, log, apierror.Permission(missing.Names()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
