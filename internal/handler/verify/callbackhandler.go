package verify

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/tis-trainee/credential-broker/internal/logic/verify"
	"github.com/tis-trainee/credential-broker/internal/svc"
	"github.com/tis-trainee/credential-broker/internal/types"
)

// CallbackHandler handles GET /api/verify/callback. It bypasses both gates:
// the gateway, not the original caller, invokes this endpoint.
func CallbackHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.VerifyCallbackRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		l := verify.NewCallbackLogic(r.Context(), svcCtx)
		target := l.Callback(req.Code, req.Scope, req.State)
		http.Redirect(w, r, target, http.StatusFound)
	}
}
