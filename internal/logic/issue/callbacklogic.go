package issue

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
	return &CallbackLogic{Logger: logx.WithContext(ctx), ctx: ctx, svcCtx: svcCtx}
}

func (l *CallbackLogic) Callback(code, state, errParam, errDescription, redirectURI string) string {
	return l.svcCtx.Issue.Complete(l.ctx, code, state, errParam, errDescription, redirectURI)
}
