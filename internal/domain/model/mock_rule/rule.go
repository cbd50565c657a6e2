package model

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

type MockRuleIface interface {
	IsMatch(requestInfo RequestInfo) bool
	BuildResponse() ResponseInfo
}

var _ MockRuleIface = (*MockRule)(nil)

type QueryParameter struct {
	Name  string `json:"name" validate:"required"`
	Value string `json:"value"`
}

// Mock规则 (核心领域对象), 注册后不可修改, 更新即重新注册
type MockRule struct {
	ID              string            `json:"id"`
	Method          Method            `json:"method"`
	Path            string            `json:"path"`                      // 路径模板, 段可以是 * :id {id}
	QueryParameters []QueryParameter  `json:"queryParameters,omitempty"` // 查询参数子集约束
	RequestHeaders  map[string]string `json:"requestHeaders,omitempty"`  // 请求头子集约束
	RequestBody     *JSONValue        `json:"requestBody,omitempty"`     // JSON 子集模板
	ReturnCode      int               `json:"returnCode"`
	ResponseBody    []byte            `json:"responseBody,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
}

// Key is the replacement key inside a per-method map.
func (m *MockRule) Key() string {
	return NormalizePath(m.Path)
}

func (m *MockRule) Segments() []string {
	return SplitPath(NormalizePath(m.Path))
}

func (m *MockRule) Validate() error {
	if m.Method.IsZero() {
		return errors.New("method is required")
	}
	if m.Path == "" {
		return errors.New("path is required")
	}
	if m.ReturnCode != 0 && (m.ReturnCode < 100 || m.ReturnCode > 599) {
		return fmt.Errorf("invalid return code %d", m.ReturnCode)
	}
	for i, q := range m.QueryParameters {
		if q.Name == "" {
			return fmt.Errorf("queryParameters[%d].name is required", i)
		}
	}
	for name := range m.RequestHeaders {
		if name == "" {
			return errors.New("request header name must not be empty")
		}
	}
	return nil
}

// IsMatch checks method, path and every optional constraint.
func (m *MockRule) IsMatch(req RequestInfo) bool {
	if ParseMethod(req.GetMethod()) != m.Method {
		return false
	}
	if !MatchPath(m.Path, req.GetPath()) {
		return false
	}
	return m.MatchConstraints(req)
}

func (m *MockRule) BuildResponse() ResponseInfo {
	status := m.ReturnCode
	if status == 0 {
		status = DefaultReturnCode
	}
	return NewResponse(status, m.ResponseBody)
}

func (m *MockRule) Clone() *MockRule {
	if m == nil {
		return nil
	}
	out := *m
	if m.QueryParameters != nil {
		out.QueryParameters = append([]QueryParameter(nil), m.QueryParameters...)
	}
	if m.RequestHeaders != nil {
		out.RequestHeaders = make(map[string]string, len(m.RequestHeaders))
		for k, v := range m.RequestHeaders {
			out.RequestHeaders[k] = v
		}
	}
	if m.RequestBody != nil {
		body := m.RequestBody.Clone()
		out.RequestBody = &body
	}
	if m.ResponseBody != nil {
		out.ResponseBody = append([]byte(nil), m.ResponseBody...)
	}
	return &out
}

func (m *MockRule) String() string {
	return fmt.Sprintf("%s %s (id=%s, returnCode=%d)", m.Method, NormalizePath(m.Path), m.ID, m.ReturnCode)
}

// NotFoundResponse is returned when no rule matches.
func NotFoundResponse() ResponseInfo {
	return NewResponse(http.StatusNotFound, nil)
}
