// Package errors 提供统一的错误定义
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeNotFound           ErrorCode = "1004"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 资源错误 (3xxx)
	CodeMovieNotFound  ErrorCode = "3001"
	CodeVectorNotFound ErrorCode = "3002"

	// 业务错误 (4xxx)
	CodeSoupTooShort      ErrorCode = "4001"
	CodeMissingOverview   ErrorCode = "4002"
	CodeTopKOutOfRange    ErrorCode = "4003"
	CodeEncodingFailed    ErrorCode = "4004"
	CodePipelineNotLoaded ErrorCode = "4005"

	// 外部服务错误 (5xxx)
	CodeVectorIndexError ErrorCode = "5001"
	CodeInferenceError   ErrorCode = "5002"
	CodeCacheError       ErrorCode = "5003"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail 添加详细信息
func (e *AppError) WithDetail(detail string) *AppError {
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithError 添加底层错误
func (e *AppError) WithError(err error) *AppError {
	clone := *e
	clone.Err = err
	return &clone
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeSoupTooShort, CodeMissingOverview, CodeTopKOutOfRange:
		return http.StatusBadRequest
	case CodeNotFound, CodeMovieNotFound, CodeVectorNotFound:
		return http.StatusNotFound
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable, CodePipelineNotLoaded:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrTooManyRequests    = New(CodeTooManyRequests, "too many requests")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrMovieNotFound  = New(CodeMovieNotFound, "movie not found")
	ErrVectorNotFound = New(CodeVectorNotFound, "vector not found in index")

	ErrSoupTooShort      = New(CodeSoupTooShort, "metadata soup below minimum length")
	ErrMissingOverview   = New(CodeMissingOverview, "overview is required for cold-start queries")
	ErrTopKOutOfRange    = New(CodeTopKOutOfRange, "top_k out of range")
	ErrEncodingFailed    = New(CodeEncodingFailed, "text encoding failed")
	ErrPipelineNotLoaded = New(CodePipelineNotLoaded, "recommendation pipeline not loaded")

	ErrVectorIndexError = New(CodeVectorIndexError, "vector index error")
	ErrInferenceError   = New(CodeInferenceError, "inference runtime error")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
