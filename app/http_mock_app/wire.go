package http_mock_app

import (
	"github.com/google/wire"
)

var AppSet = wire.NewSet(
	NewMockHandler,
	NewMockController,
)
