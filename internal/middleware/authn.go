package middleware

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Amund-Fremming/tero.platform/internal/apierror"
	"github.com/Amund-Fremming/tero.platform/internal/auth"
	"github.com/Amund-Fremming/tero.platform/internal/services/iam"
)

// SubjectResolver turns request credentials into an identity.
// Satisfied by *iam.Resolver.
type SubjectResolver interface {
	Resolve(ctx context.Context, req iam.AuthRequest) (*iam.Identity, error)
}

// Authenticate resolves the request subject and stores it with its claims in
// the request context. Requests without acceptable credentials are rejected
// here; handlers behind it can rely on auth.SubjectFromContext.
func Authenticate(resolver SubjectResolver, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := resolver.Resolve(r.Context(), iam.AuthRequest{Headers: r.Header})
			if err != nil {
				apierror.Write(w, r, log, err)
				return
			}
			ctx := auth.WithSubject(r.Context(), id.Subject, id.Claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
