// Package keyresolver resolves JWT signing keys by key identifier, fetching
// and caching the gateway's JWKS document. Key parsing is grounded on
// gopkg.in/square/go-jose.v2, the same library Vault's OIDC identity
// provider (pedrospdc-vault/vault/identity_store_oidc.go) uses to build and
// publish JSONWebKey/JSONWebKeySet values.
package keyresolver

import (
	"context"
	"crypto"
	"encoding/base64"
	"encoding/json"
	"strings"

	josev2 "gopkg.in/square/go-jose.v2"

	"github.com/tis-trainee/credential-broker/internal/apperrors"
	"github.com/tis-trainee/credential-broker/internal/correlation"
)

// JWKSFetcher fetches the raw JWKS document from the configured endpoint.
// Implemented by internal/gatewayclient's resty-backed client in production
// and by a fake in tests.
type JWKSFetcher interface {
	FetchJWKS(ctx context.Context) (*josev2.JSONWebKeySet, error)
}

// Config is the static trust configuration a Resolver is built from.
type Config struct {
	// TrustedIssuers is the set of iss values this broker accepts.
	TrustedIssuers map[string]struct{}
}

// Resolver is the KeyResolver component.
type Resolver struct {
	cfg     Config
	cache   *correlation.Cache
	fetcher JWKSFetcher
}

func New(cfg Config, cache *correlation.Cache, fetcher JWKSFetcher) *Resolver {
	return &Resolver{cfg: cfg, cache: cache, fetcher: fetcher}
}

// Header is the subset of a parsed JWT header this resolver needs.
type Header struct {
	Kid string
	X5t string
}

// Claims is the subset of claims this resolver needs (just iss).
type Claims struct {
	Issuer string
}

// extractIdentifier implements step 1: strip a trailing algorithm name from
// kid if present ("abc123-RS256" -> "abc123"); otherwise use x5t.
func extractIdentifier(h Header) string {
	if h.Kid != "" {
		if idx := strings.LastIndex(h.Kid, "-"); idx > 0 {
			suffix := h.Kid[idx+1:]
			if isAlgSuffix(suffix) {
				return h.Kid[:idx]
			}
		}
		return h.Kid
	}
	return h.X5t
}

func isAlgSuffix(s string) bool {
	switch s {
	case "RS256", "RS384", "RS512", "PS256", "PS384", "PS512", "ES256", "ES384", "ES512", "HS256", "HS384", "HS512":
		return true
	default:
		return false
	}
}

// Resolve implements the algorithm of spec.md section 4.2.
func (r *Resolver) Resolve(ctx context.Context, h Header, c Claims) (crypto.PublicKey, error) {
	identifier := extractIdentifier(h)
	if identifier == "" {
		return nil, &apperrors.BadToken{Reason: "no kid or x5t in token header"}
	}

	if cached, ok := r.cache.Peek(ctx, correlation.FamilyPublicKey, identifier); ok {
		key, err := decodeJWK(cached)
		if err == nil {
			return key, nil
		}
	}

	if _, trusted := r.cfg.TrustedIssuers[c.Issuer]; !trusted {
		return nil, &apperrors.UntrustedIssuer{Issuer: c.Issuer}
	}

	jwks, err := r.fetcher.FetchJWKS(ctx)
	if err != nil || jwks == nil || len(jwks.Keys) == 0 {
		return nil, &apperrors.UntrustedIssuer{Issuer: c.Issuer}
	}

	var match *josev2.JSONWebKey
	for i := range jwks.Keys {
		k := jwks.Keys[i]
		if k.KeyID == identifier || thumbprint(k) == identifier {
			match = &k
			break
		}
	}
	if match == nil {
		return nil, &apperrors.BadToken{Reason: "no matching jwk for " + identifier}
	}

	pub, err := buildPublicKey(*match)
	if err != nil {
		return nil, &apperrors.BadToken{Reason: err.Error()}
	}

	if encoded, err := encodeJWK(*match); err == nil {
		_ = r.cache.PutWithTTL(ctx, correlation.FamilyPublicKey, identifier, encoded, correlation.TTLPublicKey)
	}

	return pub, nil
}

// buildPublicKey implements step 7: n/e -> RSA, else x5c -> X.509 leaf, else BadToken.
func buildPublicKey(jwk josev2.JSONWebKey) (crypto.PublicKey, error) {
	if jwk.Key != nil {
		// go-jose already decoded n/e (or an EC/Ed25519 key) into jwk.Key.
		return jwk.Key, nil
	}
	if len(jwk.Certificates) > 0 {
		return jwk.Certificates[0].PublicKey, nil
	}
	return nil, errNoUsableKeyMaterial
}

func thumbprint(k josev2.JSONWebKey) string {
	tp, err := k.Thumbprint(crypto.SHA256)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(tp)
}

func encodeJWK(k josev2.JSONWebKey) (string, error) {
	b, err := json.Marshal(k)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeJWK(s string) (crypto.PublicKey, error) {
	var k josev2.JSONWebKey
	if err := json.Unmarshal([]byte(s), &k); err != nil {
		return nil, err
	}
	return buildPublicKey(k)
}

var errNoUsableKeyMaterial = &keyMaterialError{}

type keyMaterialError struct{}

func (e *keyMaterialError) Error() string { return "jwk has neither n/e nor x5c" }
