package issue

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/tis-trainee/credential-broker/internal/logic/issue"
	"github.com/tis-trainee/credential-broker/internal/svc"
	"github.com/tis-trainee/credential-broker/internal/types"
)

// CallbackHandler handles GET /api/issue/callback. Bypasses both gates: the
// gateway, not the original caller, invokes this endpoint.
func CallbackHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.IssueCallbackRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		l := issue.NewCallbackLogic(r.Context(), svcCtx)
		target := l.Callback(req.Code, req.State, req.Error, req.ErrorDescription, svcCtx.Config.Gateway.RedirectURICredential)
		http.Redirect(w, r, target, http.StatusFound)
	}
}
