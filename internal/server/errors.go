package server

import (
	"errors"
	"net/http"

	"github.com/Amund-Fremming/tero.platform/internal/apierror"
	"github.com/Amund-Fremming/tero.platform/internal/auth"
	"github.com/Amund-Fremming/tero.platform/internal/repository"
	"github.com/Amund-Fremming/tero.platform/internal/services/gsclient"
	"github.com/Amund-Fremming/tero.platform/internal/services/keyvault"
	"github.com/Amund-Fremming/tero.platform/internal/services/validation"
)

// toServerError maps service errors onto the response taxonomy. Errors that
// are already *apierror.ServerError pass through unchanged.
func toServerError(err error, notFound string) error {
	var (
		se         *apierror.ServerError
		status     *gsclient.StatusError
		verify     *auth.VerificationError
		payloadErr *validation.PayloadError
	)
	switch {
	case errors.As(err, &se):
		return se
	case errors.Is(err, repository.ErrNotFound):
		return apierror.NotFound(notFound)
	case errors.Is(err, repository.ErrConflict):
		return apierror.Api(http.StatusConflict, "already exists")
	case errors.Is(err, keyvault.ErrFullCapacity):
		return apierror.Internal("no free game keys", err)
	case errors.Is(err, keyvault.ErrInvalidKey):
		return apierror.BadRequest("key word in invalid format")
	case errors.As(err, &status):
		return apierror.GSClient(status.Status, status.Body)
	case errors.Is(err, gsclient.ErrUnreachable):
		e := apierror.GSClient(0, "")
		e.Err = err
		return e
	case errors.As(err, &verify):
		e := apierror.JwtVerification("invalid token")
		e.Err = err
		return e
	case errors.As(err, &payloadErr):
		return apierror.BadRequest(payloadErr.Error())
	}
	return apierror.Internal("unexpected error", err)
}
