package verify

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/tis-trainee/credential-broker/internal/svc"
)

type CallbackLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewCallbackLogic(ctx context.Context, svcCtx *svc.ServiceContext) *CallbackLogic {
	return &CallbackLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Callback completes VerificationFlow and returns the redirect target.
// Never errors: every outcome, success or failure, is a redirect.
func (l *CallbackLogic) Callback(code, scope, state string) string {
	return l.svcCtx.Verify.Complete(l.ctx, code, scope, state)
}
