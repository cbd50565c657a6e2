package http_mock_app

import (
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/go-chassis/go-chassis/v2/pkg/metrics"
	rf "github.com/go-chassis/go-chassis/v2/server/restful"
	"github.com/sirupsen/logrus"

	"go_stub_server/internal/domain/iface"
	configs "go_stub_server/internal/infra/config"
	"go_stub_server/utils"
)

const RequestCounter = "stub_request_counter"

// catch-all 路由覆盖的常用方法
var dispatchMethods = []string{
	http.MethodGet, http.MethodPut, http.MethodHead, http.MethodPost,
	http.MethodPatch, http.MethodDelete, http.MethodOptions,
}

// MockController go-chassis REST schema, 逻辑委托给 MockHandler
type MockController struct {
	RuleManageService iface.RuleService
	handler           *MockHandler
	extraMethods      []string
}

func NewMockController(ruleManageService iface.RuleService, handler *MockHandler, c *configs.RuleConfig) *MockController {
	extra := make([]string, 0, len(c.ServerConfig.ExtraMethods))
	for _, m := range c.ServerConfig.ExtraMethods {
		extra = append(extra, strings.ToUpper(strings.TrimSpace(m)))
	}
	return &MockController{
		RuleManageService: ruleManageService,
		handler:           handler,
		extraMethods:      extra,
	}
}

// RegisterMetrics 需在 chassis.Init 之后调用
func RegisterMetrics() error {
	return metrics.CreateCounter(metrics.CounterOpts{
		Name:   RequestCounter,
		Help:   "requests served by the stub server",
		Labels: []string{"method", "endpoint"},
	})
}

func (c *MockController) countRequest(b *rf.Context, endpoint string) {
	// Record request metrics
	err := metrics.CounterAdd(RequestCounter, 1, map[string]string{
		"method":   b.ReadRequest().Method,
		"endpoint": endpoint,
	})
	if err != nil {
		utils.GetLogger().Debugf("record request metric err: %v", err)
	}
}

func (c *MockController) recoverPanic(b *rf.Context) {
	if err := recover(); err != nil {
		utils.GetLogger().WithFields(logrus.Fields{
			"panic": err,
			"stack": string(debug.Stack()),
		}).Error("handle request panic")
		writeRaw(b.ReadResponseWriter(), http.StatusInternalServerError, jsonError("Internal server error"))
	}
}

func (c *MockController) SetMock(b *rf.Context) {
	c.countRequest(b, SetMockPath)
	defer c.recoverPanic(b)

	w, r := b.ReadResponseWriter(), b.ReadRequest()
	body, err := readLimited(w, r, c.handler.maxBodySize)
	if err != nil {
		utils.GetLogger().Errorf("read request body err: %v", err)
		writeRaw(w, statusForReadError(err), jsonError(err.Error()))
		return
	}
	status, out := registerMock(b.Ctx, c.RuleManageService, body)
	writeRaw(w, status, out)
}

func (c *MockController) ListMocks(b *rf.Context) {
	c.countRequest(b, ListMocksPath)
	defer c.recoverPanic(b)

	status, out := listMocks(b.Ctx, c.RuleManageService)
	writeRaw(b.ReadResponseWriter(), status, out)
}

func (c *MockController) ResetMocks(b *rf.Context) {
	c.countRequest(b, ResetMocksPath)
	defer c.recoverPanic(b)

	status, out := resetMocks(b.Ctx, c.RuleManageService)
	writeRaw(b.ReadResponseWriter(), status, out)
}

// Dispatch 其余所有请求交给匹配引擎
func (c *MockController) Dispatch(b *rf.Context) {
	c.countRequest(b, "dispatch")
	defer c.recoverPanic(b)

	c.handler.dispatch(b.ReadResponseWriter(), b.ReadRequest())
}

func (c *MockController) URLPatterns() []rf.Route {
	routes := []rf.Route{
		{Method: http.MethodPost, Path: SetMockPath, ResourceFunc: c.SetMock,
			Returns: []*rf.Returns{{Code: 200}, {Code: 400}}},
		{Method: http.MethodGet, Path: ListMocksPath, ResourceFunc: c.ListMocks,
			Returns: []*rf.Returns{{Code: 200}}},
		{Method: http.MethodPost, Path: ResetMocksPath, ResourceFunc: c.ResetMocks,
			Returns: []*rf.Returns{{Code: 200}}},
	}

	methods := append(append([]string{}, dispatchMethods...), c.extraMethods...)
	for _, m := range methods {
		routes = append(routes,
			rf.Route{Method: m, Path: "/", ResourceFunc: c.Dispatch,
				Returns: []*rf.Returns{{Code: 200}, {Code: 404}}},
			rf.Route{Method: m, Path: "/{subpath:*}", ResourceFunc: c.Dispatch,
				Returns: []*rf.Returns{{Code: 200}, {Code: 404}}},
		)
	}
	return routes
}
