package verify

import (
	"encoding/json"
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/tis-trainee/credential-broker/internal/handler/authz"
	"github.com/tis-trainee/credential-broker/internal/logic/verify"
	"github.com/tis-trainee/credential-broker/internal/signature"
	"github.com/tis-trainee/credential-broker/internal/svc"
	"github.com/tis-trainee/credential-broker/internal/types"
)

// StartHandler handles POST /api/verify/identity. The signed envelope's
// payload has already been validated and stashed on the context by
// SignatureGate; this handler only needs the bearer token and query state.
func StartHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.VerifyIdentityRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		authHeader, err := authz.BearerToken(r)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		payload, _ := r.Context().Value(signature.BodyContextKey).(json.RawMessage)

		l := verify.NewStartLogic(r.Context(), svcCtx)
		url, err := l.Start(authHeader, payload, req.State)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		http.Redirect(w, r, url, http.StatusFound)
	}
}
