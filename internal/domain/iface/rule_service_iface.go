package iface

import (
	"context"

	model "go_stub_server/internal/domain/model/mock_rule"
)

// RuleService 规则服务接口
type RuleService interface {
	// CreateRule 创建规则, 返回实际存储的规则 (含 ID)
	CreateRule(ctx context.Context, rule *model.MockRule) (*model.MockRule, error)
	ListRules(ctx context.Context) ([]*model.MockRule, error)
	ResetRules(ctx context.Context) error
}

type RuleMatchService interface {
	// MatchRule 匹配规则
	MatchRule(ctx context.Context, reqInfo model.RequestInfo) (*model.MockRule, error)
	// Handle 匹配并构造响应, 不返回错误
	Handle(ctx context.Context, reqInfo model.RequestInfo) model.ResponseInfo
}
