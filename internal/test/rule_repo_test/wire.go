//go:build wireinject
// +build wireinject

package rulerepotest

import (
	"github.com/google/wire"

	configs "go_stub_server/internal/infra/config"
	"go_stub_server/internal/infra/repo"
)

type RepoRuleTestSuite struct {
	Repo repo.RuleRepositoryIface
}

func NewRepoRuleTestSuite(r repo.RuleRepositoryIface) *RepoRuleTestSuite {
	return &RepoRuleTestSuite{Repo: r}
}

func InitializeRepoTest(c *configs.RuleConfig) (*RepoRuleTestSuite, func(), error) {
	wire.Build(repo.Reposet, NewRepoRuleTestSuite)
	return &RepoRuleTestSuite{}, nil, nil
}
