package issue

import (
	"encoding/json"
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/tis-trainee/credential-broker/internal/handler/authz"
	"github.com/tis-trainee/credential-broker/internal/logic/issue"
	"github.com/tis-trainee/credential-broker/internal/signature"
	"github.com/tis-trainee/credential-broker/internal/svc"
	"github.com/tis-trainee/credential-broker/internal/types"
)

// ProgrammeHandler handles POST /api/issue/programme-membership.
func ProgrammeHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.IssueRequest
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

		l := issue.NewProgrammeLogic(r.Context(), svcCtx)
		url, err := l.Start(authHeader, payload, req.State)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		w.Header().Set("Location", url)
		w.WriteHeader(http.StatusCreated)
	}
}
