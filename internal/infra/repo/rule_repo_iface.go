package repo

import (
	"context"

	model "go_stub_server/internal/domain/model/mock_rule"
)

// RuleRepositoryIface 规则仓库: 内存存储负责匹配, 镜像只做持久化副本
type RuleRepositoryIface interface {
	SaveRule(ctx context.Context, rule *model.MockRule) error
	// FindBestMatchRule returns model.ErrNoMatchingRule when nothing matches.
	FindBestMatchRule(ctx context.Context, req model.RequestInfo) (*model.MockRule, error)
	ListRules(ctx context.Context) ([]*model.MockRule, error)
	Reset(ctx context.Context) error
	// Restore 从镜像重新加载规则, 返回加载数量
	Restore(ctx context.Context) (int, error)
}
