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

	"github.com/tis-trainee/credential-broker/internal/correlation"
	"github.com/tis-trainee/credential-broker/internal/gatewayclient"
	"github.com/tis-trainee/credential-broker/internal/handler"
	"github.com/tis-trainee/credential-broker/internal/signature"
	"github.com/tis-trainee/credential-broker/internal/svc"
	"github.com/tis-trainee/credential-broker/internal/verification"
)

func init() {
	handler.RegisterErrorHandler()
}

func TestStartHandler_MissingAuthorizationRejected(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	cache := correlation.New(client)
	gw := gatewayclient.New(gatewayclient.Config{AuthorizeEndpoint: "https://gateway.example/authorize"})
	svcCtx := &svc.ServiceContext{Verify: verification.New(cache, nil, gw)}

	payload, _ := json.Marshal(map[string]string{"forenames": "Jane", "surname": "Doe", "dateOfBirth": "1990-05-01"})
	req := httptest.NewRequest(http.MethodPost, "/api/verify/identity?state=abc", nil)
	req = req.WithContext(context.WithValue(req.Context(), signature.BodyContextKey, json.RawMessage(payload)))
	rec := httptest.NewRecorder()

	StartHandler(svcCtx)(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
