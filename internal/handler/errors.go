package handler

import (
	"context"
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/tis-trainee/credential-broker/internal/apperrors"
)

type errorBody struct {
	Error string `json:"error"`
}

// RegisterErrorHandler maps the apperrors taxonomy to wire status codes in
// one place, the same way a goctl-scaffolded service centralizes error
// encoding instead of switching on error types in every handler.
func RegisterErrorHandler() {
	httpx.SetErrorHandlerCtx(func(_ context.Context, err error) (int, interface{}) {
		switch e := err.(type) {
		case *apperrors.BadRequest:
			return http.StatusBadRequest, errorBody{Error: e.Error()}
		case *apperrors.Forbidden:
			return http.StatusForbidden, errorBody{Error: e.Error()}
		case *apperrors.Unauthorized:
			return http.StatusUnauthorized, errorBody{Error: e.Error()}
		case *apperrors.BadToken:
			return http.StatusUnauthorized, errorBody{Error: e.Error()}
		case *apperrors.UntrustedIssuer:
			return http.StatusUnauthorized, errorBody{Error: e.Error()}
		case *apperrors.GatewayFailure:
			return http.StatusInternalServerError, errorBody{Error: e.Error()}
		case *apperrors.NotFound:
			return http.StatusNotFound, errorBody{Error: e.Error()}
		default:
			return http.StatusBadRequest, errorBody{Error: err.Error()}
		}
	})
}
