package catalyst

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound           = errors.New("image not found")
	ErrConflict           = errors.New("image is golden or in use")
	ErrUnauthorized       = errors.New("authentication failed")
	ErrMalformedResponse  = errors.New("malformed response")
	ErrMissingCredentials = errors.New("provide either a token or username/password")
)

// APIError Catalyst Center 返回的非成功响应
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Unwrap 把 HTTP 状态码归类为哨兵错误，调用方只需 errors.Is 判断
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusUnauthorized:
		return ErrUnauthorized
	}
	return nil
}
