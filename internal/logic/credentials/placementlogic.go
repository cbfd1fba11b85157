package credentials

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/tis-trainee/credential-broker/internal/domain"
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

// List returns the latest non-revoked placement credential per distinct
// entityId for the trainee carried in authToken.
func (l *PlacementLogic) List(authToken string) (*types.CredentialsResponse, error) {
	claims, err := l.svcCtx.JWT.ParseUnverified(authToken)
	if err != nil {
		return nil, err
	}
	subjectID, _ := claims["custom:tisId"].(string)

	rows, err := l.svcCtx.CredStore.LatestBySubject(l.ctx, domain.TrainingPlacement, subjectID)
	if err != nil {
		return nil, err
	}
	return &types.CredentialsResponse{Credentials: toViews(rows)}, nil
}
