package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingKeyID = errors.New("token header has no kid")
	ErrUnknownKeyID = errors.New("no jwks key matches kid")
	ErrNotBearer    = errors.New("authorization header is not a bearer token")
)

const bearerPrefix = "Bearer "

// VerificationError is any failure to validate a bearer token.
type VerificationError struct {
	Err error
}

func (e *VerificationError) Error() string { return "jwt verification: " + e.Err.Error() }

func (e *VerificationError) Unwrap() error { return e.Err }

// Verifier validates RS256 access tokens against a KeySet.
type Verifier struct {
	keys   *KeySet
	parser *jwt.Parser
}

// NewVerifier requires aud and iss to match and exp and iat to be valid.
// Extra parser options are appended, e.g. jwt.WithTimeFunc in tests.
func NewVerifier(keys *KeySet, audience, issuer string, opts ...jwt.ParserOption) *Verifier {
	base := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithIssuer(issuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	return &Verifier{
		keys:   keys,
		parser: jwt.NewParser(append(base, opts...)...),
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok || strings.TrimSpace(token) == "" {
		return "", ErrNotBearer
	}
	return strings.TrimSpace(token), nil
}

// Verify checks the signature and standard claims and returns the decoded claims.
func (v *Verifier) Verify(raw string) (*Claims, error) {
	claims := new(Claims)
	_, err := v.parser.ParseWithClaims(raw, claims, v.keyFunc)
	if err != nil {
		return nil, &VerificationError{Err: err}
	}
	return claims, nil
}

func (v *Verifier) keyFunc(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, ErrMissingKeyID
	}
	key, ok := v.keys.Lookup(kid)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKeyID, kid)
	}
	return key, nil
}
