package model

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
)

type HTTPRequestInfo struct {
	req         *http.Request
	maxBodySize int64

	bodyOnce  sync.Once
	bodyCache []byte
	bodyErr   error
}

var _ RequestInfo = (*HTTPRequestInfo)(nil)

// NewHTTPRequest wraps r. The body is read lazily, at most maxBodySize bytes;
// maxBodySize <= 0 selects DefaultMaxBodySize.
func NewHTTPRequest(r *http.Request, maxBodySize int64) *HTTPRequestInfo {
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}
	return &HTTPRequestInfo{
		req:         r,
		maxBodySize: maxBodySize,
	}
}

func (h *HTTPRequestInfo) GetMethod() string {
	return h.req.Method
}

func (h *HTTPRequestInfo) GetPath() string {
	if h.req.URL == nil {
		return "/"
	}
	return h.req.URL.Path
}

func (h *HTTPRequestInfo) GetQuery() url.Values {
	if h.req.URL == nil {
		return url.Values{}
	}
	return h.req.URL.Query()
}

func (h *HTTPRequestInfo) GetHeaders() http.Header {
	return h.req.Header
}

func (h *HTTPRequestInfo) GetContentType() string {
	return h.req.Header.Get("Content-Type")
}

func (h *HTTPRequestInfo) GetBody() ([]byte, error) {
	h.bodyOnce.Do(func() {
		if h.req.Body == nil || h.req.Body == http.NoBody {
			return
		}
		defer h.req.Body.Close()

		// 多读一个字节用于判断是否超限
		body, err := io.ReadAll(io.LimitReader(h.req.Body, h.maxBodySize+1))
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				h.bodyErr = fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, maxErr.Limit)
				return
			}
			h.bodyErr = fmt.Errorf("failed to read request body: %w", err)
			return
		}
		if int64(len(body)) > h.maxBodySize {
			h.bodyErr = fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, h.maxBodySize)
			return
		}
		h.bodyCache = body
	})
	return h.bodyCache, h.bodyErr
}

// BodyTooLarge reports whether an earlier GetBody call hit the size limit.
func (h *HTTPRequestInfo) BodyTooLarge() bool {
	return errors.Is(h.bodyErr, ErrBodyTooLarge)
}
