package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

const (
	// GrantClientCredentials marks machine-to-machine tokens.
	GrantClientCredentials = "client-credentials"

	guestSubject = "guest"
)

// Claims is the verified content of an identity-provider access token.
// Audience accepts either a string or an array of strings.
type Claims struct {
	jwt.RegisteredClaims

	GrantType       string        `json:"gty,omitempty"`
	AuthorizedParty string        `json:"azp,omitempty"`
	Scope           string        `json:"scope,omitempty"`
	Permissions     PermissionSet `json:"permissions,omitempty"`
}

// EmptyClaims is the sentinel attached to guest and webhook requests.
func EmptyClaims() *Claims {
	return &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: guestSubject}}
}

// IsMachine reports whether the token came from a client-credentials grant.
func (c *Claims) IsMachine() bool {
	return c.GrantType == GrantClientCredentials
}

// MissingPermission returns the required permissions the claims do not hold,
// or nil when every one is present.
func (c *Claims) MissingPermission(required ...Permission) PermissionSet {
	var missing PermissionSet
	for _, p := range required {
		if c.Permissions.Has(p) {
			continue
		}
		if missing == nil {
			missing = make(PermissionSet)
		}
		missing[p] = struct{}{}
	}
	return missing
}

// HasAll reports whether every permission in required is held.
func (c *Claims) HasAll(required ...Permission) bool {
	return c.MissingPermission(required...) == nil
}
