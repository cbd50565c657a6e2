package storage

import (
	"context"

	model "go_stub_server/internal/domain/model/mock_rule"
)

// RuleStoreIface 进程内规则存储, 所有匹配都在这里完成
type RuleStoreIface interface {
	Insert(rule *model.MockRule)
	Lookup(req model.RequestInfo) (*model.MockRule, bool)
	List() []*model.MockRule
	Reset()
	Len() int
}

// RuleMirrorIface 规则镜像 (redis / mysql), 只用于重启后恢复, 不参与匹配
type RuleMirrorIface interface {
	// SaveRule stores rule in its slot unless the slot already holds a write
	// with seq greater than or equal to this one. seq is assigned at
	// registration time, so late or retried writes never roll a slot back.
	SaveRule(ctx context.Context, rule *model.MockRule, seq int64) error
	// ListRules returns mirrored rules in registration order.
	ListRules(ctx context.Context) ([]*model.MockRule, error)
	Clear(ctx context.Context) error
	Close() error
}

// ruleSlot 镜像中的唯一键: 常用方法按 method+path 覆盖, 其他方法按规则 ID 追加
func ruleSlot(rule *model.MockRule) string {
	if rule.Method.IsOther() {
		return "OTHER " + rule.ID
	}
	return rule.Method.String() + " " + rule.Key()
}
