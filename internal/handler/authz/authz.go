// Package authz holds the bearer-token extraction shared by every HTTP
// handler package. It is a leaf package so both internal/handler (routes)
// and internal/handler/{issue,verify,credentials} (sub-handlers) can import
// it without creating an import cycle.
package authz

import (
	"net/http"
	"strings"

	"github.com/tis-trainee/credential-broker/internal/apperrors"
)

const (
	authorizationHeaderKey = "Authorization"
	bearerPrefix           = "Bearer "
)

// BearerToken extracts the Authorization header verbatim (with the Bearer
// prefix retained), since JwtCodec.ParseUnverified/ParseVerified strip it
// themselves. Missing or malformed headers are a BadRequest, per spec.md
// section 6's "400 missing Authorization".
func BearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get(authorizationHeaderKey)
	if authHeader == "" || !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", &apperrors.BadRequest{Reason: "missing or malformed Authorization header"}
	}
	return authHeader, nil
}
