package storage

import (
	"context"
	"fmt"

	"github.com/google/wire"
	"gorm.io/gorm"

	model "go_stub_server/internal/domain/model/mock_rule"
	configs "go_stub_server/internal/infra/config"
)

// StorageSet is a Wire provider set that includes all storage-related providers
var StorageSet = wire.NewSet(
	NewMemoryRuleStore,
	wire.Bind(new(RuleStoreIface), new(*MemoryRuleStore)),
	NewRuleMirror,
)

// NewRuleMirror builds the mirror selected by mirror.driver. The cleanup
// function closes the underlying connection.
func NewRuleMirror(c *configs.RuleConfig) (RuleMirrorIface, func(), error) {
	var mirror RuleMirrorIface
	switch c.MirrorConfig.Driver {
	case configs.MirrorDriverRedis:
		client, err := NewRedisClient(c)
		if err != nil {
			return nil, nil, err
		}
		mirror = NewRedisRuleMirror(client, c.MirrorConfig.KeyPrefix)
	case configs.MirrorDriverMySQL:
		db, err := NewMySQLClient(c)
		if err != nil {
			return nil, nil, err
		}
		m, err := newMysqlMirror(db)
		if err != nil {
			return nil, nil, err
		}
		mirror = m
	case configs.MirrorDriverNone, "":
		mirror = NopRuleMirror{}
	default:
		return nil, nil, fmt.Errorf("unknown mirror driver %q", c.MirrorConfig.Driver)
	}
	return mirror, func() { _ = mirror.Close() }, nil
}

// newMysqlMirror 建表失败时关闭连接
func newMysqlMirror(db *gorm.DB) (RuleMirrorIface, error) {
	m, err := NewMysqlRuleMirror(db)
	if err != nil {
		closeGormDB(db)
		return nil, err
	}
	return m, nil
}

func closeGormDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// NopRuleMirror 未配置镜像时使用
type NopRuleMirror struct{}

var _ RuleMirrorIface = NopRuleMirror{}

func (NopRuleMirror) SaveRule(context.Context, *model.MockRule, int64) error { return nil }

func (NopRuleMirror) ListRules(context.Context) ([]*model.MockRule, error) { return nil, nil }

func (NopRuleMirror) Clear(context.Context) error { return nil }

func (NopRuleMirror) Close() error { return nil }
