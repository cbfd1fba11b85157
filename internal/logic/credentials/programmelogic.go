package credentials

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/tis-trainee/credential-broker/internal/domain"
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

// List returns the latest non-revoked programme-membership credential per
// distinct entityId for the trainee carried in authToken.
func (l *ProgrammeLogic) List(authToken string) (*types.CredentialsResponse, error) {
	claims, err := l.svcCtx.JWT.ParseUnverified(authToken)
	if err != nil {
		return nil, err
	}
	subjectID, _ := claims["custom:tisId"].(string)

	rows, err := l.svcCtx.CredStore.LatestBySubject(l.ctx, domain.TrainingProgramme, subjectID)
	if err != nil {
		return nil, err
	}
	return &types.CredentialsResponse{Credentials: toViews(rows)}, nil
}
