package repo

import (
	"github.com/google/wire"

	"go_stub_server/internal/infra/storage"
)

var Reposet = wire.NewSet(
	NewRuleRepoConfig,
	storage.StorageSet,
	NewRuleRepoImpl,
)
