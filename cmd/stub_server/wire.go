//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"go_stub_server/app/http_mock_app"
	"go_stub_server/internal/domain/services"
	configs "go_stub_server/internal/infra/config"
	"go_stub_server/internal/infra/repo"
)

func InitializeApp(c *configs.RuleConfig) (*App, func(), error) {
	wire.Build(repo.Reposet, services.ServiceSet, http_mock_app.AppSet, NewApp)
	return &App{}, nil, nil
}
