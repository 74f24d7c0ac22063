package iam

import (
	"context"
	"net/http"

	"github.com/Amund-Fremming/tero.platform/internal/apierror"
	"github.com/Amund-Fremming/tero.platform/internal/auth"
)

// Identity is the result of a successful authentication.
type Identity struct {
	Subject auth.Subject
	Claims  *auth.Claims
}

// Authenticator validates one kind of credential.
//
// Return values:
//   - (identity, nil): credentials present and valid
//   - (nil, nil): credentials not present, try the next authenticator
//   - (nil, error): credentials present but rejected
type Authenticator interface {
	Authenticate(ctx context.Context, req AuthRequest) (*Identity, error)
}

// AuthRequest wraps the request data authenticators may inspect.
type AuthRequest struct {
	Headers http.Header
}

// Resolver runs authenticators in order.
type Resolver struct {
	chain []Authenticator
}

// NewResolver builds a resolver. Order is precedence.
func NewResolver(chain ...Authenticator) *Resolver {
	return &Resolver{chain: chain}
}

// Resolve returns the first identity produced by the chain. A request that no
// authenticator recognises is rejected with AccessDenied.
func (r *Resolver) Resolve(ctx context.Context, req AuthRequest) (*Identity, error) {
	for _, a := range r.chain {
		id, err := a.Authenticate(ctx, req)
		if err != nil {
			return nil, err
		}
		if id != nil {
			return id, nil
		}
	}
	return nil, apierror.AccessDenied()
}
