package gatewayclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tis-trainee/credential-broker/internal/apperrors"
)

func TestPAR_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "issue.TrainingProgramme", r.FormValue("scope"))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"request_uri": "urn:ietf:params:oauth:request_uri:abc"})
	}))
	defer srv.Close()

	c := New(Config{PAREndpoint: srv.URL})
	result, err := c.PAR(context.Background(), "id-token-hint", "nonce-1", "state-1", "issue.TrainingProgramme")
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, "urn:ietf:params:oauth:request_uri:abc", result.RequestURI)
}

func TestPAR_NonCreatedDegradesGracefully(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(Config{PAREndpoint: srv.URL})
	result, err := c.PAR(context.Background(), "hint", "nonce", "state", "scope")
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestExchangeCode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"id_token": "a.b.c"})
	}))
	defer srv.Close()

	c := New(Config{TokenEndpoint: srv.URL})
	result, err := c.ExchangeCode(context.Background(), "code-1", "", "state-1", "https://broker.example/callback")
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, "a.b.c", result.IDToken)
}

func TestExchangeCode_EmptyIDTokenDegradesGracefully(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	c := New(Config{TokenEndpoint: srv.URL})
	result, err := c.ExchangeCode(context.Background(), "code-1", "", "state-1", "redirect")
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestRevoke_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "TrainingProgramme", body["CredentialTemplateName"])
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(Config{RevokeEndpoint: srv.URL})
	err := c.Revoke(context.Background(), "TrainingProgramme", "serial-1")
	require.NoError(t, err)
}

func TestRevoke_NonNoContentIsGatewayFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Config{RevokeEndpoint: srv.URL})
	err := c.Revoke(context.Background(), "TrainingProgramme", "serial-1")
	require.Error(t, err)
	require.IsType(t, &apperrors.GatewayFailure{}, err)
}

func TestFetchJWKS_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []any{}})
	}))
	defer srv.Close()

	c := New(Config{JWKSEndpoint: srv.URL})
	jwks, err := c.FetchJWKS(context.Background())
	require.NoError(t, err)
	require.NotNil(t, jwks)
}
