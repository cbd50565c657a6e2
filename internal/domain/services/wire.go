package services

import (
	"github.com/google/wire"

	"go_stub_server/internal/domain/iface"
)

var ServiceSet = wire.NewSet(
	NewRuleManageService,
	wire.Bind(new(iface.RuleService), new(*RuleManageService)),
	NewRuleMatchService,
	wire.Bind(new(iface.RuleMatchService), new(*RuleMatchService)),
)
