package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest"

	credentialshandler "github.com/tis-trainee/credential-broker/internal/handler/credentials"
	issuehandler "github.com/tis-trainee/credential-broker/internal/handler/issue"
	verifyhandler "github.com/tis-trainee/credential-broker/internal/handler/verify"
	"github.com/tis-trainee/credential-broker/internal/svc"
)

// RegisterHandlers reconstructs the []rest.Route + server.AddRoutes idiom
// goctl emits from an .api file; no .api file survived retrieval, so the
// route table is rebuilt here directly from spec.md section 6.
func RegisterHandlers(server *rest.Server, svcCtx *svc.ServiceContext) {
	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodPost,
				Path:    "/verify/identity",
				Handler: verifyhandler.StartHandler(svcCtx),
			},
		},
		rest.WithMiddlewares([]rest.Middleware{svcCtx.SignatureGateVerify}),
		rest.WithPrefix("/api"),
	)

	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodGet,
				Path:    "/verify/callback",
				Handler: verifyhandler.CallbackHandler(svcCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/issue/callback",
				Handler: issuehandler.CallbackHandler(svcCtx),
			},
		},
		rest.WithPrefix("/api"),
	)

	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodPost,
				Path:    "/issue/programme-membership",
				Handler: issuehandler.ProgrammeHandler(svcCtx),
			},
		},
		rest.WithMiddlewares([]rest.Middleware{svcCtx.SignatureGateIssueP, svcCtx.SessionGate}),
		rest.WithPrefix("/api"),
	)

	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodPost,
				Path:    "/issue/placement",
				Handler: issuehandler.PlacementHandler(svcCtx),
			},
		},
		rest.WithMiddlewares([]rest.Middleware{svcCtx.SignatureGateIssuePl, svcCtx.SessionGate}),
		rest.WithPrefix("/api"),
	)

	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodGet,
				Path:    "/programme-membership",
				Handler: credentialshandler.ProgrammeHandler(svcCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/placement",
				Handler: credentialshandler.PlacementHandler(svcCtx),
			},
		},
		rest.WithPrefix("/api"),
	)
}
