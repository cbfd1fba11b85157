package verify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/tis-trainee/credential-broker/internal/apperrors"
	"github.com/tis-trainee/credential-broker/internal/correlation"
	"github.com/tis-trainee/credential-broker/internal/gatewayclient"
	"github.com/tis-trainee/credential-broker/internal/svc"
	"github.com/tis-trainee/credential-broker/internal/verification"
)

func newTestSvcCtx(t *testing.T) *svc.ServiceContext {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	cache := correlation.New(client)

	gwSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(gwSrv.Close)
	gw := gatewayclient.New(gatewayclient.Config{AuthorizeEndpoint: gwSrv.URL + "/authorize"})

	return &svc.ServiceContext{Verify: verification.New(cache, nil, gw)}
}

func TestStartLogic_MalformedPayloadRejected(t *testing.T) {
	l := NewStartLogic(context.Background(), newTestSvcCtx(t))
	_, err := l.Start("token", json.RawMessage(`not json`), "")
	require.Error(t, err)
	require.IsType(t, &apperrors.BadRequest{}, err)
}

func TestStartLogic_BadDateOfBirthRejected(t *testing.T) {
	l := NewStartLogic(context.Background(), newTestSvcCtx(t))
	_, err := l.Start("token", json.RawMessage(`{"forenames":"Jane","surname":"Doe","dateOfBirth":"not-a-date"}`), "")
	require.Error(t, err)
	require.IsType(t, &apperrors.BadRequest{}, err)
}

func TestStartLogic_MissingRequiredFieldRejected(t *testing.T) {
	l := NewStartLogic(context.Background(), newTestSvcCtx(t))
	_, err := l.Start("token", json.RawMessage(`{"forenames":"","surname":"Doe","dateOfBirth":"1990-05-01"}`), "")
	require.Error(t, err)
}
