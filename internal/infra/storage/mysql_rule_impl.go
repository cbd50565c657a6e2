package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	model "go_stub_server/internal/domain/model/mock_rule"
	configs "go_stub_server/internal/infra/config"
)

// MockRuleRecord 镜像表, 一行对应一个 slot
type MockRuleRecord struct {
	Slot      string    `gorm:"primaryKey;type:varchar(320)"`
	RuleID    string    `gorm:"type:varchar(36);index"`
	Method    string    `gorm:"type:varchar(20)"`
	Path      string    `gorm:"type:varchar(255)"`
	Payload   string    `gorm:"type:mediumtext"` // MockRule JSON
	Seq       int64     `gorm:"index"`           // 注册序号, 恢复时按此排序
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (MockRuleRecord) TableName() string {
	return "stub_rules"
}

type MysqlRuleMirror struct {
	mysqlClient *gorm.DB
}

var _ RuleMirrorIface = (*MysqlRuleMirror)(nil)

// new mysql client
func NewMySQLClient(c *configs.RuleConfig) (*gorm.DB, error) {
	logLevel := logger.Warn
	switch c.DatabaseOptionConfig.LogLevel {
	case "silent":
		logLevel = logger.Silent
	case "error":
		logLevel = logger.Error
	case "info":
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(c.DatabaseConfig.GetDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	opts := c.DatabaseOptionConfig
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	return db, nil
}

func NewMysqlRuleMirror(mysqlClient *gorm.DB) (*MysqlRuleMirror, error) {
	if err := mysqlClient.AutoMigrate(&MockRuleRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate %s: %w", MockRuleRecord{}.TableName(), err)
	}
	return &MysqlRuleMirror{mysqlClient: mysqlClient}, nil
}

func toRecord(rule *model.MockRule, seq int64) (*MockRuleRecord, error) {
	payload, err := json.Marshal(rule)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rule to JSON: %w", err)
	}
	return &MockRuleRecord{
		Slot:    ruleSlot(rule),
		RuleID:  rule.ID,
		Method:  rule.Method.String(),
		Path:    rule.Key(),
		Payload: string(payload),
		Seq:     seq,
	}, nil
}

// newerWinsAssignments 冲突时仅在新序号更大时覆盖; MySQL 按顺序求值, seq 必须最后更新
func newerWinsAssignments() clause.Set {
	columns := []string{"rule_id", "method", "path", "payload", "updated_at"}
	set := make(clause.Set, 0, len(columns)+1)
	for _, col := range columns {
		set = append(set, clause.Assignment{
			Column: clause.Column{Name: col},
			Value:  gorm.Expr(fmt.Sprintf("IF(VALUES(seq) > seq, VALUES(%s), %s)", col, col)),
		})
	}
	return append(set, clause.Assignment{
		Column: clause.Column{Name: "seq"},
		Value:  gorm.Expr("GREATEST(seq, VALUES(seq))"),
	})
}

func fromRecord(record *MockRuleRecord) (*model.MockRule, error) {
	rule := &model.MockRule{}
	if err := json.Unmarshal([]byte(record.Payload), rule); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rule %q: %w", record.Slot, err)
	}
	return rule, nil
}

func (s *MysqlRuleMirror) SaveRule(ctx context.Context, rule *model.MockRule, seq int64) error {
	record, err := toRecord(rule, seq)
	if err != nil {
		return err
	}
	err = s.mysqlClient.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slot"}},
			DoUpdates: newerWinsAssignments(),
		}).
		Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to save rule to mysql: %w", err)
	}
	return nil
}

func (s *MysqlRuleMirror) ListRules(ctx context.Context) ([]*model.MockRule, error) {
	var records []*MockRuleRecord
	if err := s.mysqlClient.WithContext(ctx).Order("seq asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list rules from mysql: %w", err)
	}

	rules := make([]*model.MockRule, 0, len(records))
	for _, record := range records {
		rule, err := fromRecord(record)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (s *MysqlRuleMirror) Clear(ctx context.Context) error {
	if err := s.mysqlClient.WithContext(ctx).Where("1 = 1").Delete(&MockRuleRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete rules from mysql: %w", err)
	}
	return nil
}

func (s *MysqlRuleMirror) Close() error {
	sqlDB, err := s.mysqlClient.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
