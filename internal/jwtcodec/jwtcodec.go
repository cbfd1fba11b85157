// Package jwtcodec signs outbound credential-data JWTs with a shared HMAC
// key and parses/verifies inbound JWTs from the gateway, delegating key
// resolution to internal/keyresolver. Signing follows the same
// jwt.NewWithClaims(jwt.SigningMethodHS256, claims) / token.SignedString(key)
// shape as the teacher's shared/middleware/auth.go and
// services/gateway/services/auth/domain/auth/auth.go.
package jwtcodec

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tis-trainee/credential-broker/internal/apperrors"
	"github.com/tis-trainee/credential-broker/internal/clock"
	"github.com/tis-trainee/credential-broker/internal/domain"
	"github.com/tis-trainee/credential-broker/internal/keyresolver"
)

// DefaultLifetime is the fallback validity window for outbound credential JWTs.
const DefaultLifetime = 30 * 24 * time.Hour

// Config configures outbound signing.
type Config struct {
	Audience string
	Issuer   string
	// SigningKey is the base64-encoded pre-shared HMAC key.
	SigningKey string
	// Lifetimes overrides DefaultLifetime per credential type; zero value falls back.
	Lifetimes map[domain.CredentialType]time.Duration
}

// Codec is the JwtCodec component.
type Codec struct {
	cfg      Config
	key      []byte
	resolver *keyresolver.Resolver
	clock    clock.Clock
}

func New(cfg Config, resolver *keyresolver.Resolver, clk clock.Clock) (*Codec, error) {
	key, err := base64.StdEncoding.DecodeString(cfg.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("jwtcodec: signing key is not valid base64: %w", err)
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Codec{cfg: cfg, key: key, resolver: resolver, clock: clk}, nil
}

func (c *Codec) lifetime(t domain.CredentialType) time.Duration {
	if d, ok := c.cfg.Lifetimes[t]; ok && d > 0 {
		return d
	}
	return DefaultLifetime
}

// Sign issues a token with aud/iss/iat/nbf/exp plus the wire claims mapped
// from data, per the wire-claim names in spec.md section 6.
func (c *Codec) Sign(data domain.CredentialData) (string, error) {
	now := c.clock.Now().UTC()
	claims := jwt.MapClaims{
		"aud": c.cfg.Audience,
		"iss": c.cfg.Issuer,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": now.Add(c.lifetime(data.Type)).Unix(),
	}
	for k, v := range wireClaims(data) {
		claims[k] = v
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.key)
}

// wireClaims maps each CredentialData field to its wire-level claim name,
// including the constant provenance block so it forms part of the signed
// credential body per spec.md section 9.
func wireClaims(data domain.CredentialData) map[string]any {
	out := map[string]any{}
	switch data.Type {
	case domain.TrainingProgramme:
		p := data.Programme
		out["TPR-Name"] = p.ProgrammeName
		out["TPR-ProgrammeStartDate"] = p.StartDate.Format("2006-01-02")
		out["TPR-ProgrammeEndDate"] = p.EndDate.Format("2006-01-02")
		metadataClaims(out, p.Metadata)
	case domain.TrainingPlacement:
		p := data.Placement
		out["TPL-Specialty"] = p.Specialty
		out["TPL-Grade"] = p.Grade
		out["TPL-PlacementNPN"] = p.NationalPostNumber
		out["TPL-EmployingBodyOfPost"] = p.EmployingBody
		out["TPL-Site"] = p.Site
		out["TPL-PlacementStartDate"] = p.StartDate.Format("2006-01-02")
		out["TPL-PlacementEndDate"] = p.EndDate.Format("2006-01-02")
		metadataClaims(out, p.Metadata)
	}
	return out
}

// metadataClaims appends the Metadata-* wire claims carrying the constant
// provenance block onto out.
func metadataClaims(out map[string]any, m domain.Metadata) {
	out["Metadata-Origin"] = m.Origin
	out["Metadata-AssurancePolicy"] = m.AssurancePolicy
	out["Metadata-AssuranceOutcome"] = m.AssuranceOutcome
	out["Metadata-Provider"] = m.Provider
	out["Metadata-Verifier"] = m.Verifier
	out["Metadata-VerificationMethod"] = m.VerificationMethod
	out["Metadata-Pedigree"] = m.Pedigree
	out["Metadata-LastRefresh"] = m.LastRefresh.Format("2006-01-02")
}

// ParseUnverified strips an optional "Bearer " prefix and the signature
// segment, returning the body claims without verification. Used only where
// the surrounding infrastructure (e.g. the caller's own IdP session) already
// supplies trust, such as extracting origin_jti/custom:tisId from the
// caller's own bearer token.
func (c *Codec) ParseUnverified(token string) (jwt.MapClaims, error) {
	token = strings.TrimPrefix(token, "Bearer ")
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, &apperrors.BadToken{Reason: err.Error()}
	}
	return claims, nil
}

// ParseVerified strips "Bearer ", resolves the signing key via KeyResolver,
// verifies the signature and standard temporal claims, and returns the claims.
func (c *Codec) ParseVerified(ctx context.Context, token string) (jwt.MapClaims, error) {
	token = strings.TrimPrefix(token, "Bearer ")

	var resolveErr error
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		kid, _ := t.Header["kid"].(string)
		x5t, _ := t.Header["x5t"].(string)
		issuer, _ := claims["iss"].(string)
		key, rerr := c.resolver.Resolve(ctx, keyresolver.Header{Kid: kid, X5t: x5t}, keyresolver.Claims{Issuer: issuer})
		if rerr != nil {
			resolveErr = rerr
			return nil, rerr
		}
		return key, nil
	}, jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}))

	if err != nil {
		if resolveErr != nil {
			return nil, resolveErr
		}
		return nil, &apperrors.BadToken{Reason: err.Error()}
	}
	if !parsed.Valid {
		return nil, &apperrors.BadToken{Reason: "token invalid"}
	}
	return claims, nil
}

// EpochClaim coerces an iat/exp claim that may be a json.Number, float64, or
// string (spec.md section 9, open question #3) into a time.Time.
func EpochClaim(v any) (time.Time, bool) {
	switch t := v.(type) {
	case float64:
		return time.Unix(int64(t), 0).UTC(), true
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(n, 0).UTC(), true
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(n, 0).UTC(), true
	default:
		return time.Time{}, false
	}
}
