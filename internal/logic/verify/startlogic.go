package verify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/tis-trainee/credential-broker/internal/apperrors"
	"github.com/tis-trainee/credential-broker/internal/domain"
	"github.com/tis-trainee/credential-broker/internal/svc"
	"github.com/tis-trainee/credential-broker/internal/types"
)

type StartLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewStartLogic(ctx context.Context, svcCtx *svc.ServiceContext) *StartLogic {
	return &StartLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Start builds the authorize URL for VerificationFlow.start and returns it
// as the Location the handler redirects to.
func (l *StartLogic) Start(authToken string, payload json.RawMessage, clientState string) (string, error) {
	var body types.IdentityPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return "", &apperrors.BadRequest{Reason: "malformed identity payload"}
	}

	dob, err := time.Parse("2006-01-02", body.DateOfBirth)
	if err != nil {
		return "", &apperrors.BadRequest{Reason: "dateOfBirth must be an ISO date"}
	}

	identity := domain.IdentityData{
		Forenames:   body.Forenames,
		Surname:     body.Surname,
		DateOfBirth: dob,
	}
	if err := identity.Validate(); err != nil {
		return "", &apperrors.BadRequest{Reason: err.Error()}
	}

	return l.svcCtx.Verify.Start(l.ctx, authToken, identity, clientState)
}
