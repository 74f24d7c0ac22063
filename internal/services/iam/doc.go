// Package iam resolves who a request acts on behalf of.
//
// Two authenticators are chained in a fixed order:
//
//   - GuestAuthenticator: X-Guest-Authentication carrying a client-minted uuid
//   - BearerAuthenticator: Authorization: Bearer <RS256 token>
//
// The first authenticator that recognises its credentials wins. A request
// carrying both headers therefore resolves as a guest and the token is never
// inspected.
//
// Request Flow:
//
//	Request → Resolver.Resolve() → Identity{Subject, Claims}
//	       ↓
//	   middleware → AccessPolicy.Allowed(subject, action) → handler
package iam
