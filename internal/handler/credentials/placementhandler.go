package credentials

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/tis-trainee/credential-broker/internal/handler/authz"
	"github.com/tis-trainee/credential-broker/internal/logic/credentials"
	"github.com/tis-trainee/credential-broker/internal/svc"
)

// PlacementHandler handles GET /api/placement.
func PlacementHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader, err := authz.BearerToken(r)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		l := credentials.NewPlacementLogic(r.Context(), svcCtx)
		resp, err := l.List(authHeader)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		httpx.OkJsonCtx(r.Context(), w, resp)
	}
}
