// Package verification implements the VerificationFlow state machine:
// START -> AWAITING_CALLBACK -> MATCHED | REJECTED.
package verification

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/tis-trainee/credential-broker/internal/correlation"
	"github.com/tis-trainee/credential-broker/internal/domain"
	"github.com/tis-trainee/credential-broker/internal/gatewayclient"
	"github.com/tis-trainee/credential-broker/internal/jwtcodec"
)

// Flow is the VerificationFlow component.
type Flow struct {
	cache   *correlation.Cache
	codec   *jwtcodec.Codec
	gateway *gatewayclient.Client
}

func New(cache *correlation.Cache, codec *jwtcodec.Codec, gateway *gatewayclient.Client) *Flow {
	return &Flow{cache: cache, codec: codec, gateway: gateway}
}

// Start generates the nonce/state/PKCE pair, caches the identity claim and
// the caller's session id against nonce/state, and returns the authorize URL.
func (f *Flow) Start(ctx context.Context, authToken string, identity domain.IdentityData, clientState string) (string, error) {
	claims, err := f.codec.ParseUnverified(authToken)
	if err != nil {
		return "", err
	}
	sessionID, _ := claims["origin_jti"].(string)

	nonce := uuid.NewString()
	state := uuid.NewString()
	codeVerifier, err := newCodeVerifier()
	if err != nil {
		return "", err
	}
	codeChallenge := challengeFromVerifier(codeVerifier)

	if err := f.cache.Put(ctx, correlation.FamilyIdentityData, nonce, encodeIdentity(identity)); err != nil {
		return "", err
	}
	if clientState != "" {
		if err := f.cache.Put(ctx, correlation.FamilyClientState, state, clientState); err != nil {
			return "", err
		}
	}
	if err := f.cache.Put(ctx, correlation.FamilyCodeVerifier, state, codeVerifier); err != nil {
		return "", err
	}
	if err := f.cache.Put(ctx, correlation.FamilyUnverifiedSessionID, nonce, sessionID); err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("nonce", nonce)
	q.Set("state", state)
	q.Set("code_challenge_method", "S256")
	q.Set("code_challenge", codeChallenge)
	q.Set("scope", "openid Identity")

	return f.gateway.AuthorizeEndpoint() + "?" + q.Encode(), nil
}

// Complete validates the gateway callback and, on success, promotes the
// caller's session to verified.
func (f *Flow) Complete(ctx context.Context, code, scope, state string) string {
	codeVerifier, ok := f.cache.Take(ctx, correlation.FamilyCodeVerifier, state)
	if !ok {
		return redirectTo("/invalid-credential", "reason", "no_code_verifier")
	}

	if scope != "openid Identity" {
		return redirectTo("/invalid-credential", "reason", "unsupported_scope")
	}

	tok, err := f.gateway.ExchangeCode(ctx, code, codeVerifier, state, "")
	if err != nil || tok == nil {
		return redirectTo("/invalid-credential", "reason", "identity_verification_failed")
	}

	claims, err := f.codec.ParseVerified(ctx, tok.IDToken)
	if err != nil {
		return redirectTo("/invalid-credential", "reason", "identity_verification_failed")
	}
	nonce, _ := claims["nonce"].(string)

	encodedIdentity, ok := f.cache.Take(ctx, correlation.FamilyIdentityData, nonce)
	if !ok {
		return redirectTo("/invalid-credential", "reason", "identity_verification_failed")
	}
	sessionID, ok := f.cache.Take(ctx, correlation.FamilyUnverifiedSessionID, nonce)
	if !ok {
		return redirectTo("/invalid-credential", "reason", "identity_verification_failed")
	}

	identity, err := decodeIdentity(encodedIdentity)
	if err != nil {
		return redirectTo("/invalid-credential", "reason", "identity_verification_failed")
	}

	forenames, _ := claims["Identity.ID-LegalFirstName"].(string)
	surname, _ := claims["Identity.ID-LegalSurname"].(string)
	dob, _ := claims["Identity.ID-BirthDate"].(string)

	if !identity.Matches(forenames, surname, dob) {
		logx.WithContext(ctx).Infof("verification: identity mismatch for session %s", sessionID)
		return redirectTo("/invalid-credential", "reason", "identity_verification_failed")
	}

	if err := f.cache.PutWithTTL(ctx, correlation.FamilyVerifiedSessionID, sessionID, "true", correlation.TTLVerifiedSession); err != nil {
		return redirectTo("/invalid-credential", "reason", "identity_verification_failed")
	}

	clientState, _ := f.cache.Take(ctx, correlation.FamilyClientState, state)
	if clientState == "" {
		return "/credential-verified"
	}
	return redirectTo("/credential-verified", "state", clientState)
}

// HasVerifiedSession reports whether the session carried by authToken has a
// live VERIFIED_SESSION cache entry.
func (f *Flow) HasVerifiedSession(ctx context.Context, authToken string) bool {
	claims, err := f.codec.ParseUnverified(authToken)
	if err != nil {
		return false
	}
	sessionID, _ := claims["origin_jti"].(string)
	if sessionID == "" {
		return false
	}
	_, ok := f.cache.Peek(ctx, correlation.FamilyVerifiedSessionID, sessionID)
	return ok
}

func newCodeVerifier() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func challengeFromVerifier(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func redirectTo(path string, kv ...string) string {
	q := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			q.Set(kv[i], kv[i+1])
		}
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func encodeIdentity(i domain.IdentityData) string {
	return fmt.Sprintf("%s\x1f%s\x1f%s", i.Forenames, i.Surname, i.DateOfBirth.Format("2006-01-02"))
}

func decodeIdentity(s string) (domain.IdentityData, error) {
	parts := strings.Split(s, "\x1f")
	if len(parts) != 3 {
		return domain.IdentityData{}, fmt.Errorf("verification: malformed cached identity")
	}
	dob, err := time.Parse("2006-01-02", parts[2])
	if err != nil {
		return domain.IdentityData{}, err
	}
	return domain.IdentityData{Forenames: parts[0], Surname: parts[1], DateOfBirth: dob}, nil
}
