package model

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// 实现 ResponseInfo 接口的具体类型
type BaseResponse struct {
	status  int
	headers http.Header
	body    []byte
}

var _ ResponseInfo = (*BaseResponse)(nil)

// NewResponse 所有响应都带 Content-Type: application/json, body 原样返回
func NewResponse(status int, body []byte) *BaseResponse {
	headers := make(http.Header)
	headers.Set("Content-Type", ContentTypeJSON)
	if body == nil {
		body = []byte{}
	}
	return &BaseResponse{
		status:  status,
		headers: headers,
		body:    body,
	}
}

func (r *BaseResponse) GetStatus() int {
	if r.status == 0 { // 默认状态码处理
		return http.StatusOK
	}
	return r.status
}

func (r *BaseResponse) GetHeaders() http.Header {
	return r.headers
}

func (r *BaseResponse) GetBody() []byte {
	return r.body
}

// PrettyBody returns the body re-indented when it is valid JSON.
func (r *BaseResponse) PrettyBody() (string, bool) {
	if len(r.body) == 0 || !json.Valid(r.body) {
		return "", false
	}
	var v any
	if err := json.Unmarshal(r.body, &v); err != nil {
		return "", false
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", false
	}
	return string(out), true
}

func (r *BaseResponse) String() string {
	return fmt.Sprintf("Status: %d, Headers: %v, Body: %s",
		r.GetStatus(),
		r.headers,
		string(r.body))
}
