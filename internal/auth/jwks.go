package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-jose/go-jose/v4"
)

// maxJWKSBytes caps the JWKS document size.
const maxJWKSBytes = 1 << 20

// KeySet holds the RSA verification keys of the identity provider, by key id.
// Loaded once at startup.
type KeySet struct {
	keys map[string]*rsa.PublicKey
}

// ParseJWKS parses a JWKS document, keeping RSA keys that carry a key id.
func ParseJWKS(data []byte) (*KeySet, error) {
	var set jose.JSONWebKeySet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse jwks: %w", err)
	}

	ks := &KeySet{keys: make(map[string]*rsa.PublicKey, len(set.Keys))}
	for _, k := range set.Keys {
		if k.KeyID == "" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, ok := k.Key.(*rsa.PublicKey)
		if !ok {
			continue
		}
		ks.keys[k.KeyID] = pub
	}
	if len(ks.keys) == 0 {
		return nil, fmt.Errorf("parse jwks: no usable RSA signing keys")
	}
	return ks, nil
}

// FetchJWKS downloads and parses the JWKS document at url.
func FetchJWKS(ctx context.Context, client *http.Client, url string) (*KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build jwks request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch jwks: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSBytes))
	if err != nil {
		return nil, fmt.Errorf("read jwks: %w", err)
	}
	return ParseJWKS(body)
}

// Lookup returns the key with the exact key id.
func (k *KeySet) Lookup(kid string) (*rsa.PublicKey, bool) {
	key, ok := k.keys[kid]
	return key, ok
}

// Len returns the number of keys.
func (k *KeySet) Len() int { return len(k.keys) }
