package keyresolver

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	josev2 "gopkg.in/square/go-jose.v2"

	"github.com/tis-trainee/credential-broker/internal/apperrors"
	"github.com/tis-trainee/credential-broker/internal/correlation"
)

type fakeFetcher struct {
	jwks *josev2.JSONWebKeySet
	err  error
}

func (f *fakeFetcher) FetchJWKS(ctx context.Context) (*josev2.JSONWebKeySet, error) {
	return f.jwks, f.err
}

func newTestResolverCache(t *testing.T) *correlation.Cache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return correlation.New(client)
}

func TestResolve_UntrustedIssuer(t *testing.T) {
	cache := newTestResolverCache(t)
	r := New(Config{TrustedIssuers: map[string]struct{}{"https://trusted.example": {}}}, cache, &fakeFetcher{})

	_, err := r.Resolve(context.Background(), Header{Kid: "key-1"}, Claims{Issuer: "https://evil.example"})
	require.Error(t, err)
	require.IsType(t, &apperrors.UntrustedIssuer{}, err)
}

func TestResolve_FetchesAndCachesMatchingKey(t *testing.T) {
	cache := newTestResolverCache(t)
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwk := josev2.JSONWebKey{Key: &priv.PublicKey, KeyID: "key-1", Algorithm: "RS256", Use: "sig"}
	jwks := &josev2.JSONWebKeySet{Keys: []josev2.JSONWebKey{jwk}}

	r := New(Config{TrustedIssuers: map[string]struct{}{"https://trusted.example": {}}}, cache, &fakeFetcher{jwks: jwks})

	key, err := r.Resolve(context.Background(), Header{Kid: "key-1-RS256"}, Claims{Issuer: "https://trusted.example"})
	require.NoError(t, err)
	require.NotNil(t, key)

	pub, ok := key.(*rsa.PublicKey)
	require.True(t, ok)
	require.Equal(t, priv.PublicKey.N, pub.N)

	cached, ok := cache.Peek(context.Background(), correlation.FamilyPublicKey, "key-1")
	require.True(t, ok)
	require.NotEmpty(t, cached)
}

func TestResolve_NoMatchingKey(t *testing.T) {
	cache := newTestResolverCache(t)
	jwks := &josev2.JSONWebKeySet{Keys: []josev2.JSONWebKey{}}
	r := New(Config{TrustedIssuers: map[string]struct{}{"https://trusted.example": {}}}, cache, &fakeFetcher{jwks: jwks})

	_, err := r.Resolve(context.Background(), Header{Kid: "unknown"}, Claims{Issuer: "https://trusted.example"})
	require.Error(t, err)
}

func TestExtractIdentifier(t *testing.T) {
	require.Equal(t, "abc123", extractIdentifier(Header{Kid: "abc123-RS256"}))
	require.Equal(t, "abc123-custom", extractIdentifier(Header{Kid: "abc123-custom"}))
	require.Equal(t, "thumb", extractIdentifier(Header{X5t: "thumb"}))
}
