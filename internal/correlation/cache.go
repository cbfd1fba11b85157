// Package correlation implements the short-lived request correlation store
// that bridges the asynchronous legs of the verification and issuance flows:
// app start -> gateway authorize -> app callback -> token exchange -> app
// final redirect. It is backed by redis/go-redis/v9, the same client the
// teacher wraps in third_party/cache, adapted here to a keyed-by-family TTL
// store instead of one field per key.
package correlation

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zeromicro/go-zero/core/logx"
)

// Family names a correlation-entry kind and determines its TTL and whether
// reads evict (single-use) or not (read-many).
type Family string

const (
	FamilyCodeVerifier         Family = "code_verifier"
	FamilyClientState          Family = "client_state"
	FamilyIdentityData         Family = "identity_data"
	FamilyCredentialData       Family = "credential_data"
	FamilyTraineeSubjectID     Family = "trainee_subject_id"
	FamilyIssuanceTimestamp    Family = "issuance_timestamp"
	FamilyUnverifiedSessionID  Family = "unverified_session_id"
	FamilyVerifiedSessionID    Family = "verified_session_id"
	FamilyPublicKey            Family = "public_key"
)

// Default TTLs per spec.md section 3.
const (
	TTLVerificationRequest = 10 * time.Minute
	TTLVerifiedSession     = 60 * time.Minute
	TTLPublicKey           = 24 * time.Hour
)

func defaultTTL(f Family) time.Duration {
	switch f {
	case FamilyVerifiedSessionID:
		return TTLVerifiedSession
	case FamilyPublicKey:
		return TTLPublicKey
	default:
		return TTLVerificationRequest
	}
}

// readMany reports whether this family is read-many (peek never evicts) as
// opposed to single-use (reading via Take evicts the entry).
func readMany(f Family) bool {
	return f == FamilyVerifiedSessionID || f == FamilyPublicKey
}

// Cache is the CorrelationCache component: a TTL-bounded mapping store keyed
// by opaque identifiers, parameterized by Family instead of one field per key.
type Cache struct {
	client *redis.Client
}

// New wraps an existing redis client. The caller owns the client's lifecycle.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func keyFor(f Family, key string) string {
	return "corr:" + string(f) + ":" + key
}

// Put stores value under key for the family's default TTL.
func (c *Cache) Put(ctx context.Context, family Family, key, value string) error {
	return c.PutWithTTL(ctx, family, key, value, defaultTTL(family))
}

// PutWithTTL stores value under key with an explicit TTL, overriding the family default.
func (c *Cache) PutWithTTL(ctx context.Context, family Family, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, keyFor(family, key), value, ttl).Err(); err != nil {
		logx.WithContext(ctx).Errorf("correlation: put %s/%s failed: %v", family, key, err)
		return err
	}
	return nil
}

// Take reads and evicts the entry for a single-use family, or behaves like
// Peek for a read-many family. Missing or expired keys return ("", false)
// with no error: absence is not a failure condition for this cache.
func (c *Cache) Take(ctx context.Context, family Family, key string) (string, bool) {
	if readMany(family) {
		return c.Peek(ctx, family, key)
	}

	val, err := c.client.GetDel(ctx, keyFor(family, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		logx.WithContext(ctx).Errorf("correlation: take %s/%s failed: %v", family, key, err)
		return "", false
	}
	return val, true
}

// Peek reads the entry without evicting it. Valid for any family, but the
// spec reserves its use to VERIFIED_SESSION and PUBLIC_KEY.
func (c *Cache) Peek(ctx context.Context, family Family, key string) (string, bool) {
	val, err := c.client.Get(ctx, keyFor(family, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		logx.WithContext(ctx).Errorf("correlation: peek %s/%s failed: %v", family, key, err)
		return "", false
	}
	return val, true
}
