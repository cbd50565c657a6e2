package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"go_stub_server/internal/domain/iface"
	model "go_stub_server/internal/domain/model/mock_rule"
	configs "go_stub_server/internal/infra/config"
	"go_stub_server/internal/infra/repo"
	"go_stub_server/utils"
)

type RuleMatchService struct {
	ruleRepo    repo.RuleRepositoryIface
	logPayloads bool
}

var _ iface.RuleMatchService = (*RuleMatchService)(nil)

func NewRuleMatchService(ruleRepo repo.RuleRepositoryIface, c *configs.RuleConfig) *RuleMatchService {
	return &RuleMatchService{
		ruleRepo:    ruleRepo,
		logPayloads: c.LogConfig.LogPayloads,
	}
}

func (s *RuleMatchService) MatchRule(ctx context.Context, reqInfo model.RequestInfo) (*model.MockRule, error) {
	return s.ruleRepo.FindBestMatchRule(ctx, reqInfo)
}

// Handle 匹配请求并构造响应; 未命中返回 404 空 JSON 响应
func (s *RuleMatchService) Handle(ctx context.Context, reqInfo model.RequestInfo) model.ResponseInfo {
	log := utils.GetLogger().WithFields(logrus.Fields{
		"method": reqInfo.GetMethod(),
		"path":   reqInfo.GetPath(),
	})

	rule, err := s.MatchRule(ctx, reqInfo)
	if err != nil {
		if errors.Is(err, model.ErrNoMatchingRule) {
			log.Info("no mock rule matched")
		} else {
			log.Errorf("failed to match mock rule: %v", err)
		}
		return model.NotFoundResponse()
	}

	resp := rule.BuildResponse()
	log.WithFields(logrus.Fields{
		"rule_id": rule.ID,
		"status":  resp.GetStatus(),
	}).Info("mock rule matched")

	if s.logPayloads {
		if r, ok := resp.(*model.BaseResponse); ok {
			if pretty, ok := r.PrettyBody(); ok {
				log.Debugf("response payload:\n%s", pretty)
			}
		}
	}
	return resp
}
