package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Amund-Fremming/tero.platform/internal/apierror"
	"github.com/Amund-Fremming/tero.platform/internal/auth"
)

// WebhookKeyHeader carries the shared secret of the identity-provider webhook.
const WebhookKeyHeader = "Auth0-Webhook-Key"

// WebhookSecret accepts requests carrying the configured shared secret and
// marks them as coming from the auth0 integration. No token is inspected.
func WebhookSecret(secret string, log logrus.FieldLogger) func(http.Handler) http.Handler {
	want := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(WebhookKeyHeader))
			if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
				log.WithField("remote", r.RemoteAddr).Warn("webhook key mismatch")
				apierror.Write(w, r, log, apierror.Api(http.StatusUnauthorized, "invalid webhook key"))
				return
			}
			ctx := auth.WithSubject(r.Context(), auth.Integration(auth.IntegrationAuth0), auth.EmptyClaims())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
