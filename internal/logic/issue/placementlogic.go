package issue

import (
	"context"
	"encoding/json"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/tis-trainee/credential-broker/internal/apperrors"
	"github.com/tis-trainee/credential-broker/internal/svc"
	"github.com/tis-trainee/credential-broker/internal/types"
)

type PlacementLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewPlacementLogic(ctx context.Context, svcCtx *svc.ServiceContext) *PlacementLogic {
	return &PlacementLogic{Logger: logx.WithContext(ctx), ctx: ctx, svcCtx: svcCtx}
}

func (l *PlacementLogic) Start(authToken string, payload json.RawMessage, clientState string) (string, error) {
	var body types.PlacementPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return "", &apperrors.BadRequest{Reason: "malformed placement payload"}
	}
	meta := buildMetadata(l.svcCtx.Config.Metadata, l.svcCtx.Clock.Now())
	data, err := toPlacementData(body, meta)
	if err != nil {
		return "", err
	}
	return l.svcCtx.Issue.Start(l.ctx, authToken, data, clientState)
}
