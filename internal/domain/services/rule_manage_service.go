package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"go_stub_server/internal/domain/iface"
	model "go_stub_server/internal/domain/model/mock_rule"
	"go_stub_server/internal/infra/repo"
	"go_stub_server/utils"
)

type RuleManageService struct {
	ruleRepo repo.RuleRepositoryIface
}

var _ iface.RuleService = (*RuleManageService)(nil)

func NewRuleManageService(ruleRepo repo.RuleRepositoryIface) *RuleManageService {
	return &RuleManageService{
		ruleRepo: ruleRepo,
	}
}

// CreateRule 创建规则, 同一方法+路径的旧规则被替换 (非常用方法除外)
func (s *RuleManageService) CreateRule(ctx context.Context, rule *model.MockRule) (*model.MockRule, error) {
	if rule == nil {
		return nil, fmt.Errorf("rule is nil: %w", model.ErrMalformedRegistration)
	}
	if err := rule.Validate(); err != nil {
		return nil, fmt.Errorf("rule validation failed: %v: %w", err, model.ErrMalformedRegistration)
	}

	stored := rule.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	if stored.ReturnCode == 0 {
		stored.ReturnCode = model.DefaultReturnCode
	}
	if stored.ResponseBody == nil {
		stored.ResponseBody = []byte{}
	}

	if err := s.ruleRepo.SaveRule(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to save rule to repository: %w", err)
	}

	utils.GetLogger().WithFields(logrus.Fields{
		"rule_id":     stored.ID,
		"method":      stored.Method.String(),
		"path":        stored.Key(),
		"return_code": stored.ReturnCode,
	}).Info("mock rule registered")
	return stored, nil
}

func (s *RuleManageService) ListRules(ctx context.Context) ([]*model.MockRule, error) {
	return s.ruleRepo.ListRules(ctx)
}

func (s *RuleManageService) ResetRules(ctx context.Context) error {
	if err := s.ruleRepo.Reset(ctx); err != nil {
		return err
	}
	utils.GetLogger().Info("all mock rules removed")
	return nil
}

// RestoreRules 从镜像恢复规则 (启动时调用)
func (s *RuleManageService) RestoreRules(ctx context.Context) (int, error) {
	return s.ruleRepo.Restore(ctx)
}
