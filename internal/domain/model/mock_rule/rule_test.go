package model

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMethod(t *testing.T) {
	assert.Equal(t, MethodGET, ParseMethod("GET"))
	assert.Equal(t, MethodPATCH, ParseMethod("patch"))
	assert.Equal(t, MethodDELETE, ParseMethod(" Delete "))

	purge := ParseMethod("purge")
	assert.True(t, purge.IsOther())
	assert.Equal(t, "PURGE", purge.String())
	assert.Equal(t, OtherMethod("PURGE"), purge)
	assert.NotEqual(t, OtherMethod("LINK"), purge)
	assert.True(t, ParseMethod("").IsZero())
}

func TestMethodJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Method
	}{
		{"well-known", `"POST"`, MethodPOST},
		{"lower case", `"head"`, MethodHEAD},
		{"other object", `{"OTHER":"PURGE"}`, OtherMethod("PURGE")},
		{"other associated value", `{"OTHER":{"_0":"LINK"}}`, OtherMethod("LINK")},
		{"bare non-standard verb", `"OPTIONS"`, OtherMethod("OPTIONS")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Method
			require.NoError(t, json.Unmarshal([]byte(tt.input), &m))
			assert.Equal(t, tt.want, m)
		})
	}

	for _, bad := range []string{`""`, `{}`, `{"OTHER":""}`, `{"OTHER":{"_0":""}}`, `42`, `{"OTHER":7}`} {
		var m Method
		assert.Error(t, json.Unmarshal([]byte(bad), &m), bad)
	}

	out, err := json.Marshal(OtherMethod("purge"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"OTHER":"PURGE"}`, string(out))

	out, err = json.Marshal(MethodGET)
	require.NoError(t, err)
	assert.Equal(t, `"GET"`, string(out))
}

func TestMockRuleIsMatch(t *testing.T) {
	rule := &MockRule{Method: MethodGET, Path: "/users/*"}

	assert.True(t, rule.IsMatch(newRequest(http.MethodGet, "/users/42", "", "")))
	assert.False(t, rule.IsMatch(newRequest(http.MethodPost, "/users/42", "", "")))
	assert.False(t, rule.IsMatch(newRequest(http.MethodGet, "/users", "", "")))

	other := &MockRule{Method: OtherMethod("PURGE"), Path: "/cache"}
	assert.True(t, other.IsMatch(newRequest("PURGE", "/cache", "", "")))
	assert.False(t, other.IsMatch(newRequest("LINK", "/cache", "", "")))
}

func TestMockRuleValidate(t *testing.T) {
	valid := &MockRule{Method: MethodGET, Path: "/ok"}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name string
		rule *MockRule
	}{
		{"missing method", &MockRule{Path: "/x"}},
		{"missing path", &MockRule{Method: MethodGET}},
		{"bad return code", &MockRule{Method: MethodGET, Path: "/x", ReturnCode: 42}},
		{"empty query name", &MockRule{Method: MethodGET, Path: "/x", QueryParameters: []QueryParameter{{Value: "v"}}}},
		{"empty header name", &MockRule{Method: MethodGET, Path: "/x", RequestHeaders: map[string]string{"": "v"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.rule.Validate())
		})
	}
}

func TestMockRuleBuildResponse(t *testing.T) {
	rule := &MockRule{Method: MethodGET, Path: "/x", ResponseBody: []byte(`[{"text":"Cats have 9 lives"}]`)}
	resp := rule.BuildResponse()
	assert.Equal(t, http.StatusOK, resp.GetStatus())
	assert.Equal(t, ContentTypeJSON, resp.GetHeaders().Get("Content-Type"))
	assert.Equal(t, `[{"text":"Cats have 9 lives"}]`, string(resp.GetBody()))

	empty := (&MockRule{Method: MethodGET, Path: "/x", ReturnCode: http.StatusCreated}).BuildResponse()
	assert.Equal(t, http.StatusCreated, empty.GetStatus())
	assert.Empty(t, empty.GetBody())

	notFound := NotFoundResponse()
	assert.Equal(t, http.StatusNotFound, notFound.GetStatus())
	assert.Empty(t, notFound.GetBody())
	assert.Equal(t, ContentTypeJSON, notFound.GetHeaders().Get("Content-Type"))
}

func TestMockRuleCloneAndJSON(t *testing.T) {
	body, err := ParseJSONValue([]byte(`{"name":"Alice"}`))
	require.NoError(t, err)

	rule := &MockRule{
		ID:              "r1",
		Method:          OtherMethod("PURGE"),
		Path:            "/cache/*",
		QueryParameters: []QueryParameter{{Name: "a", Value: "b"}},
		RequestHeaders:  map[string]string{"X-A": "1"},
		RequestBody:     &body,
		ReturnCode:      202,
		ResponseBody:    []byte("raw"),
	}

	clone := rule.Clone()
	clone.QueryParameters[0].Value = "changed"
	clone.RequestHeaders["X-A"] = "changed"
	clone.ResponseBody[0] = 'R'
	assert.Equal(t, "b", rule.QueryParameters[0].Value)
	assert.Equal(t, "1", rule.RequestHeaders["X-A"])
	assert.Equal(t, "raw", string(rule.ResponseBody))

	data, err := json.Marshal(rule)
	require.NoError(t, err)
	var decoded MockRule
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rule.Method, decoded.Method)
	assert.Equal(t, rule.ResponseBody, decoded.ResponseBody)
	require.NotNil(t, decoded.RequestBody)
	assert.True(t, decoded.RequestBody.Contains(body))
	assert.Equal(t, "/cache/*", decoded.Key())
}
