package http_mock_app

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	model "go_stub_server/internal/domain/model/mock_rule"
)

var validate = validator.New()

// SetMockRequest POST /setMock 的请求体
type SetMockRequest struct {
	Path            string                 `json:"path" validate:"required"`
	Method          *model.Method          `json:"method" validate:"required"`
	ResponseBody    FlexibleBytes          `json:"responseBody"`
	Payload         FlexibleBytes          `json:"payload"` // responseBody 的别名
	ReturnCode      int                    `json:"returnCode" validate:"omitempty,min=100,max=599"`
	QueryParameters []model.QueryParameter `json:"queryParameters" validate:"omitempty,dive"`
	RequestBody     FlexibleBytes          `json:"requestBody"`
	RequestHeaders  map[string]string      `json:"requestHeaders" validate:"omitempty,dive,keys,required,endkeys"`
}

// FlexibleBytes 接受三种写法: base64 字符串, 普通字符串 (原样), JSON 对象/数组 (原始文本)
//
// A string that is valid standard base64 is always decoded, even when it was
// meant as plain text: "done" and "test" decode to three bytes each. Send such
// bodies base64-encoded ("ZG9uZQ==") or as a JSON value to keep them verbatim.
type FlexibleBytes []byte

func (b *FlexibleBytes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*b = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if decoded, err := base64.StdEncoding.DecodeString(s); err == nil {
			*b = decoded
			return nil
		}
		*b = []byte(s)
		return nil
	}
	*b = append(FlexibleBytes{}, data...)
	return nil
}

// ParseSetMockRequest decodes and validates a registration body.
func ParseSetMockRequest(body []byte) (*SetMockRequest, error) {
	var req SetMockRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedRegistration, err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// Validate performs validation on SetMockRequest
func (req *SetMockRequest) Validate() error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: invalid request: %v", model.ErrMalformedRegistration, err)
	}
	if req.Method.IsZero() {
		return fmt.Errorf("%w: method must not be empty", model.ErrMalformedRegistration)
	}
	return nil
}

// ConvertToMockRule converts SetMockRequest DTO to MockRule model
func (req *SetMockRequest) ConvertToMockRule() (*model.MockRule, error) {
	rule := &model.MockRule{
		Method:          *req.Method,
		Path:            req.Path,
		QueryParameters: req.QueryParameters,
		RequestHeaders:  req.RequestHeaders,
		ReturnCode:      req.ReturnCode,
		ResponseBody:    []byte(req.ResponseBody),
	}
	if rule.ResponseBody == nil && req.Payload != nil {
		rule.ResponseBody = []byte(req.Payload)
	}

	if req.RequestBody != nil {
		tmpl, err := model.ParseJSONValue(req.RequestBody)
		if err != nil {
			return nil, fmt.Errorf("%w: requestBody: %v", model.ErrMalformedRegistration, err)
		}
		rule.RequestBody = &tmpl
	}
	return rule, nil
}
