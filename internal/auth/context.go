package auth

import "context"

type subjectContextKey struct{}

type claimsContextKey struct{}

// WithSubject attaches the resolved subject and its claims to ctx.
func WithSubject(ctx context.Context, subject Subject, claims *Claims) context.Context {
	if claims == nil {
		claims = EmptyClaims()
	}
	ctx = context.WithValue(ctx, subjectContextKey{}, subject)
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// SubjectFromContext returns the subject set by the authentication middleware.
func SubjectFromContext(ctx context.Context) (Subject, bool) {
	subject, ok := ctx.Value(subjectContextKey{}).(Subject)
	return subject, ok
}

// ClaimsFromContext returns the claims set by the authentication middleware,
// or the empty sentinel.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, ok := ctx.Value(claimsContextKey{}).(*Claims)
	if !ok || claims == nil {
		return EmptyClaims()
	}
	return claims
}
