package issue

import (
	"context"
	"encoding/json"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/tis-trainee/credential-broker/internal/apperrors"
	"github.com/tis-trainee/credential-broker/internal/svc"
	"github.com/tis-trainee/credential-broker/internal/types"
)

type ProgrammeLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewProgrammeLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ProgrammeLogic {
	return &ProgrammeLogic{Logger: logx.WithContext(ctx), ctx: ctx, svcCtx: svcCtx}
}

func (l *ProgrammeLogic) Start(authToken string, payload json.RawMessage, clientState string) (string, error) {
	var body types.ProgrammePayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return "", &apperrors.BadRequest{Reason: "malformed programme payload"}
	}
	meta := buildMetadata(l.svcCtx.Config.Metadata, l.svcCtx.Clock.Now())
	data, err := toProgrammeData(body, meta)
	if err != nil {
		return "", err
	}
	return l.svcCtx.Issue.Start(l.ctx, authToken, data, clientState)
}
