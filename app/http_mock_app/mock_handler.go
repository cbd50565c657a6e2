package http_mock_app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"go_stub_server/internal/domain/iface"
	model "go_stub_server/internal/domain/model/mock_rule"
	configs "go_stub_server/internal/infra/config"
	"go_stub_server/utils"
)

// 保留路径, 其余请求全部交给匹配引擎
const (
	SetMockPath    = "/setMock"
	ListMocksPath  = "/listMocks"
	ResetMocksPath = "/resetMocks"
)

type errorBody struct {
	Error string `json:"error"`
}

func jsonError(msg string) []byte {
	out, _ := json.Marshal(errorBody{Error: msg})
	return out
}

// MockHandler 是 net/http 形式的入口, 内嵌服务器和独立服务共用同一套逻辑
type MockHandler struct {
	matchService iface.RuleMatchService
	ruleService  iface.RuleService
	maxBodySize  int64
}

var _ http.Handler = (*MockHandler)(nil)

func NewMockHandler(matchService iface.RuleMatchService, ruleService iface.RuleService, c *configs.RuleConfig) *MockHandler {
	maxBodySize := c.ServerConfig.MaxBodySize
	if maxBodySize <= 0 {
		maxBodySize = model.DefaultMaxBodySize
	}
	return &MockHandler{
		matchService: matchService,
		ruleService:  ruleService,
		maxBodySize:  maxBodySize,
	}
}

func (h *MockHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if err := recover(); err != nil {
			utils.GetLogger().WithFields(logrus.Fields{
				"panic": err,
				"stack": string(debug.Stack()),
			}).Error("handle request panic")
			writeRaw(w, http.StatusInternalServerError, jsonError("Internal server error"))
		}
	}()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == SetMockPath:
		body, err := readLimited(w, r, h.maxBodySize)
		if err != nil {
			writeRaw(w, statusForReadError(err), jsonError(err.Error()))
			return
		}
		status, out := registerMock(r.Context(), h.ruleService, body)
		writeRaw(w, status, out)
	case r.Method == http.MethodGet && r.URL.Path == ListMocksPath:
		status, out := listMocks(r.Context(), h.ruleService)
		writeRaw(w, status, out)
	case r.Method == http.MethodPost && r.URL.Path == ResetMocksPath:
		status, out := resetMocks(r.Context(), h.ruleService)
		writeRaw(w, status, out)
	default:
		h.dispatch(w, r)
	}
}

func (h *MockHandler) dispatch(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxBodySize {
		writeRaw(w, http.StatusRequestEntityTooLarge, jsonError(model.ErrBodyTooLarge.Error()))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	reqInfo := model.NewHTTPRequest(r, h.maxBodySize)
	resp := h.matchService.Handle(r.Context(), reqInfo)
	if resp.GetStatus() == http.StatusNotFound && reqInfo.BodyTooLarge() {
		writeRaw(w, http.StatusRequestEntityTooLarge, jsonError(model.ErrBodyTooLarge.Error()))
		return
	}
	writeResponse(w, resp)
}

func readLimited(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, model.ErrBodyTooLarge
		}
		return nil, err
	}
	return body, nil
}

func statusForReadError(err error) int {
	if errors.Is(err, model.ErrBodyTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// registerMock 解析并注册规则: 成功 200 空响应, 请求体非法 400
func registerMock(ctx context.Context, ruleService iface.RuleService, body []byte) (int, []byte) {
	logger := utils.GetLogger()

	req, err := ParseSetMockRequest(body)
	if err != nil {
		logger.Warnf("invalid mock registration: %v", err)
		return http.StatusBadRequest, jsonError(err.Error())
	}

	rule, err := req.ConvertToMockRule()
	if err != nil {
		logger.Warnf("convert request to model err: %v", err)
		return http.StatusBadRequest, jsonError(err.Error())
	}

	if _, err := ruleService.CreateRule(ctx, rule); err != nil {
		if errors.Is(err, model.ErrMalformedRegistration) {
			logger.Warnf("invalid mock registration: %v", err)
			return http.StatusBadRequest, jsonError(err.Error())
		}
		logger.Errorf("create mock rule err: %v", err)
		return http.StatusInternalServerError, jsonError(err.Error())
	}
	return http.StatusOK, nil
}

func listMocks(ctx context.Context, ruleService iface.RuleService) (int, []byte) {
	rules, err := ruleService.ListRules(ctx)
	if err != nil {
		utils.GetLogger().Errorf("list mock rules err: %v", err)
		return http.StatusInternalServerError, jsonError(err.Error())
	}
	if rules == nil {
		rules = []*model.MockRule{}
	}
	out, err := json.Marshal(rules)
	if err != nil {
		utils.GetLogger().Errorf("marshal mock rules err: %v", err)
		return http.StatusInternalServerError, jsonError(err.Error())
	}
	return http.StatusOK, out
}

func resetMocks(ctx context.Context, ruleService iface.RuleService) (int, []byte) {
	if err := ruleService.ResetRules(ctx); err != nil {
		utils.GetLogger().Errorf("reset mock rules err: %v", err)
		return http.StatusInternalServerError, jsonError(err.Error())
	}
	return http.StatusOK, nil
}

func writeResponse(w http.ResponseWriter, resp model.ResponseInfo) {
	for k, values := range resp.GetHeaders() {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.GetStatus())
	_, _ = w.Write(resp.GetBody())
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", model.ContentTypeJSON)
	w.WriteHeader(status)
	if len(body) > 0 {
		_, _ = w.Write(body)
	}
}
