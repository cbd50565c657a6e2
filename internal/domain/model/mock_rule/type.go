package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedRegistration 注册请求体无法解析为规则
	ErrMalformedRegistration = errors.New("malformed mock registration")
	// ErrNoMatchingRule 没有规则匹配当前请求 (不是错误, 对应 404)
	ErrNoMatchingRule = errors.New("no matching rule found")
	// ErrUnparsableBody 请求体不是合法 JSON
	ErrUnparsableBody = errors.New("request body is not valid JSON")
	// ErrBodyTooLarge 请求体超过 maxBodySize
	ErrBodyTooLarge = errors.New("request body too large")
)

const (
	ContentTypeJSON = "application/json"

	// DefaultReturnCode 未配置 returnCode 时使用
	DefaultReturnCode = 200

	// DefaultMaxBodySize 1mb
	DefaultMaxBodySize int64 = 1 << 20
)

type methodKind uint8

const (
	methodOther methodKind = iota
	methodGet
	methodPut
	methodHead
	methodPost
	methodPatch
	methodDelete
)

var methodNames = map[methodKind]string{
	methodGet:    "GET",
	methodPut:    "PUT",
	methodHead:   "HEAD",
	methodPost:   "POST",
	methodPatch:  "PATCH",
	methodDelete: "DELETE",
}

// Method HTTP 方法: 六个常用方法 + OTHER(verb)
type Method struct {
	kind methodKind
	verb string
}

var (
	MethodGET    = Method{kind: methodGet}
	MethodPUT    = Method{kind: methodPut}
	MethodHEAD   = Method{kind: methodHead}
	MethodPOST   = Method{kind: methodPost}
	MethodPATCH  = Method{kind: methodPatch}
	MethodDELETE = Method{kind: methodDelete}
)

// KeyedMethods lists the methods stored in per-path maps.
var KeyedMethods = []Method{MethodGET, MethodPUT, MethodHEAD, MethodPOST, MethodPATCH, MethodDELETE}

// OtherMethod builds the OTHER variant for a non-standard verb.
func OtherMethod(verb string) Method {
	return ParseMethod(verb)
}

// ParseMethod maps a request verb onto Method. The six well-known verbs are
// matched case-insensitively, anything else becomes OTHER with an upper-cased verb.
func ParseMethod(s string) Method {
	verb := strings.ToUpper(strings.TrimSpace(s))
	for kind, name := range methodNames {
		if name == verb {
			return Method{kind: kind}
		}
	}
	return Method{kind: methodOther, verb: verb}
}

// IsOther reports whether m is the OTHER variant.
func (m Method) IsOther() bool {
	return m.kind == methodOther
}

// IsZero reports whether m was never set.
func (m Method) IsZero() bool {
	return m.kind == methodOther && m.verb == ""
}

func (m Method) String() string {
	if m.kind == methodOther {
		return m.verb
	}
	return methodNames[m.kind]
}

func (m Method) MarshalJSON() ([]byte, error) {
	if m.kind == methodOther {
		return json.Marshal(map[string]string{"OTHER": m.verb})
	}
	return json.Marshal(methodNames[m.kind])
}

// UnmarshalJSON accepts "GET", {"OTHER":"PURGE"} and {"OTHER":{"_0":"PURGE"}}.
func (m *Method) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			return errors.New("method must not be empty")
		}
		*m = ParseMethod(s)
		return nil
	}

	var wrapper struct {
		Other json.RawMessage `json:"OTHER"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return fmt.Errorf("method must be a string or {\"OTHER\": verb}: %w", err)
	}
	if len(wrapper.Other) == 0 {
		return errors.New("method object must carry an OTHER verb")
	}

	var verb string
	if err := json.Unmarshal(wrapper.Other, &verb); err != nil {
		var assoc struct {
			Value string `json:"_0"`
		}
		if err := json.Unmarshal(wrapper.Other, &assoc); err != nil {
			return fmt.Errorf("invalid OTHER verb: %w", err)
		}
		verb = assoc.Value
	}
	if strings.TrimSpace(verb) == "" {
		return errors.New("OTHER verb must not be empty")
	}
	*m = ParseMethod(verb)
	return nil
}
