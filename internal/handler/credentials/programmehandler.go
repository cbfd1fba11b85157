package credentials

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/tis-trainee/credential-broker/internal/handler/authz"
	"github.com/tis-trainee/credential-broker/internal/logic/credentials"
	"github.com/tis-trainee/credential-broker/internal/svc"
)

// ProgrammeHandler handles GET /api/programme-membership.
func ProgrammeHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader, err := authz.BearerToken(r)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		l := credentials.NewProgrammeLogic(r.Context(), svcCtx)
		resp, err := l.List(authHeader)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		httpx.OkJsonCtx(r.Context(), w, resp)
	}
}
