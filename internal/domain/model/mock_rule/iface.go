package model

import (
	"net/http"
	"net/url"
)

type RequestInfo interface {
	GetMethod() string        // 请求方法, 原样返回
	GetPath() string          // 请求路径 (不含 query)
	GetQuery() url.Values     // 查询参数, 保留同名参数的顺序
	GetHeaders() http.Header  // 请求头, 大小写不敏感
	GetContentType() string   // Content-Type 头
	GetBody() ([]byte, error) // 请求体, 首次调用时读取
}

type ResponseInfo interface {
	GetStatus() int
	GetHeaders() http.Header
	GetBody() []byte
}
