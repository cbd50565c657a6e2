package model

import (
	"mime"
	"strings"

	"go_stub_server/utils"
)

// MatchConstraints 查询参数 / 请求头 / 请求体 三项约束, 全部满足才算匹配, 未配置的约束视为满足
func (m *MockRule) MatchConstraints(req RequestInfo) bool {
	return m.matchQuery(req) && m.matchHeaders(req) && m.matchBodyJSON(req)
}

func (m *MockRule) matchQuery(req RequestInfo) bool {
	if len(m.QueryParameters) == 0 {
		return true
	}
	query := req.GetQuery()
	for _, q := range m.QueryParameters {
		values, ok := query[q.Name]
		if !ok || len(values) == 0 {
			return false
		}
		// 同名参数取第一个
		if values[0] != q.Value {
			return false
		}
	}
	return true
}

func (m *MockRule) matchHeaders(req RequestInfo) bool {
	if len(m.RequestHeaders) == 0 {
		return true
	}
	headers := req.GetHeaders()
	for name, expected := range m.RequestHeaders {
		found := false
		for _, v := range headers.Values(name) {
			if v == expected {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (m *MockRule) matchBodyJSON(req RequestInfo) bool {
	if m.RequestBody == nil || !IsJSONContentType(req.GetContentType()) {
		return true
	}

	body, err := req.GetBody()
	if err != nil {
		utils.GetLogger().Warnf("failed to read request body for rule %s: %v", m.ID, err)
		return false
	}
	actual, err := ParseJSONValue(body)
	if err != nil {
		utils.GetLogger().Debugf("rule %s skipped: %v", m.ID, err)
		return false
	}
	return m.RequestBody.Contains(actual)
}

// IsJSONContentType accepts application/json, text/json and any +json type.
func IsJSONContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch {
	case mediaType == ContentTypeJSON, mediaType == "text/json":
		return true
	case strings.HasSuffix(mediaType, "+json"):
		return true
	}
	return false
}
