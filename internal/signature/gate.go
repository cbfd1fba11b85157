// Package signature implements the admission filters gating the issuance
// HTTP surface: the HMAC envelope signature check (SignatureGate) and the
// verified-session check (SessionGate). Both are shaped as the teacher's
// services/gateway/api/internal/middleware/auth.go idiom — a struct with a
// Handle(next http.HandlerFunc) http.HandlerFunc method, composed per route
// group in internal/handler/routes.go.
package signature

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/tis-trainee/credential-broker/internal/clock"
	"github.com/tis-trainee/credential-broker/internal/correlation"
	"github.com/tis-trainee/credential-broker/internal/domain"
	"github.com/tis-trainee/credential-broker/internal/jwtcodec"
	"github.com/tis-trainee/credential-broker/internal/modlog"
)

type contextKey string

// BodyContextKey is where Gate stashes the raw, already-validated payload
// bytes so downstream handlers can read a body that has already been consumed.
const BodyContextKey contextKey = "signature.payload"

type wireSignature struct {
	SignedAt   string `json:"signedAt"`
	ValidUntil string `json:"validUntil"`
	HMAC       string `json:"hmac"`
}

type wireEnvelope struct {
	Payload   json.RawMessage `json:"payload"`
	Signature wireSignature   `json:"signature"`
}

// Gate is the SignatureGate component. It wraps the issuance POST routes and
// the identity-start route; the modification-log staleness check runs only
// when issuanceCredentialType is set. Callback paths are not wrapped with it.
type Gate struct {
	secret      []byte
	modlog      *modlog.Log
	clock       clock.Clock
	// issuanceCredentialType, when non-nil, names the CredentialType this
	// route issues, enabling the staleness cross-check of step 4. Routes
	// that don't issue a specific credential type (e.g. identity verify)
	// leave this nil.
	issuanceCredentialType *domain.CredentialType
}

func New(secret []byte, log *modlog.Log, clk clock.Clock, issuanceType *domain.CredentialType) *Gate {
	return &Gate{secret: secret, modlog: log, clock: clk, issuanceCredentialType: issuanceType}
}

// Handle enforces steps 1-4 of spec.md section 4.4. Any non-200 outcome
// never invokes next and has no side effects.
func (g *Gate) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		_ = r.Body.Close()
		if err != nil || len(body) == 0 {
			forbidden(w)
			return
		}

		var env wireEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			forbidden(w)
			return
		}
		if len(env.Payload) == 0 || env.Signature.HMAC == "" || env.Signature.SignedAt == "" || env.Signature.ValidUntil == "" {
			forbidden(w)
			return
		}

		signedAt, err := time.Parse(time.RFC3339, env.Signature.SignedAt)
		if err != nil {
			forbidden(w)
			return
		}
		validUntil, err := time.Parse(time.RFC3339, env.Signature.ValidUntil)
		if err != nil {
			forbidden(w)
			return
		}

		now := g.clock.Now().UTC()
		if signedAt.After(now) {
			forbidden(w)
			return
		}
		if !validUntil.After(now) {
			forbidden(w)
			return
		}

		if !g.verifyHMAC(env.Payload, env.Signature.SignedAt, env.Signature.ValidUntil, env.Signature.HMAC) {
			forbidden(w)
			return
		}

		if g.issuanceCredentialType != nil {
			entityID, ok := extractEntityID(env.Payload)
			if ok && entityID != "" {
				if lastModified, found := g.modlog.Get(r.Context(), entityID, *g.issuanceCredentialType); found {
					if !lastModified.Before(signedAt) {
						logx.WithContext(r.Context()).Infof(
							"signature gate: rejecting %s/%s, modified at %s >= signed at %s",
							*g.issuanceCredentialType, entityID, lastModified, signedAt)
						forbidden(w)
						return
					}
				}
			}
		}

		ctx := context.WithValue(r.Context(), BodyContextKey, env.Payload)
		r = r.WithContext(ctx)
		r.Body = io.NopCloser(bytes.NewReader(body))
		next(w, r)
	}
}

// verifyHMAC recomputes the HMAC over the canonical payload bytes plus
// signedAt||validUntil, per the canonicalization rule in spec.md section 6:
// JSON object field order irrelevant, whitespace trimmed.
func (g *Gate) verifyHMAC(payload json.RawMessage, signedAt, validUntil, wantHex string) bool {
	canonical, err := Canonicalize(payload)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, g.secret)
	mac.Write(canonical)
	mac.Write([]byte(signedAt))
	mac.Write([]byte(validUntil))
	want, err := base64.StdEncoding.DecodeString(wantHex)
	if err != nil {
		return false
	}
	return hmac.Equal(mac.Sum(nil), want)
}

// Canonicalize re-marshals an arbitrary JSON payload with object keys in
// sorted order and no insignificant whitespace, matching encoding/json's
// own map-key-sorting behaviour for map[string]interface{}.
func Canonicalize(payload json.RawMessage) ([]byte, error) {
	var generic interface{}
	if err := json.Unmarshal(payload, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

func extractEntityID(payload json.RawMessage) (string, bool) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return "", false
	}
	raw, ok := m["tisId"]
	if !ok {
		raw, ok = m["entityId"]
	}
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func forbidden(w http.ResponseWriter) {
	w.WriteHeader(http.StatusForbidden)
}

// SessionGate enforces that the caller's bearer token maps to a verified
// session before an issuance flow may start.
type SessionGate struct {
	cache *correlation.Cache
	codec *jwtcodec.Codec
}

func NewSessionGate(cache *correlation.Cache, codec *jwtcodec.Codec) *SessionGate {
	return &SessionGate{cache: cache, codec: codec}
}

const realm = `IdentityVerification realm="/api/verify/identity"`

func (g *SessionGate) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		claims, err := g.codec.ParseUnverified(authHeader)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		sessionID, _ := claims["origin_jti"].(string)
		if sessionID == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if _, ok := g.cache.Peek(r.Context(), correlation.FamilyVerifiedSessionID, sessionID); !ok {
			w.Header().Set("WWW-Authenticate", realm)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}
