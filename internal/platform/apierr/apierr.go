// Package apierr は全機能で共通のエラーモデルと HTTP への写像を持つ。
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Code string

const (
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeNotFound         Code = "NOT_FOUND"
	CodeConflict         Code = "CONFLICT"
	CodeUnavailable      Code = "UNAVAILABLE"
	CodeInternal         Code = "INTERNAL"
)

// FieldError は入力項目ごとの検証エラー。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type APIError struct {
	Code    Code         `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
	Cause   error        `json:"-"`
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return e.Cause }

func ErrInvalid(msg string) *APIError         { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrUnauthenticated(msg string) *APIError { return &APIError{Code: CodeUnauthenticated, Message: msg} }
func ErrForbidden(msg string) *APIError       { return &APIError{Code: CodePermissionDenied, Message: msg} }
func ErrNotFound(msg string) *APIError        { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrConflict(msg string) *APIError        { return &APIError{Code: CodeConflict, Message: msg} }

// ErrUnavailable はストア障害など一時的な失敗。cause は保持するがレスポンスには出さない。
func ErrUnavailable(msg string, cause error) *APIError {
	return &APIError{Code: CodeUnavailable, Message: msg, Cause: cause}
}

// ErrInternal はレスポンスに出さない cause を持つ INTERNAL。
func ErrInternal(msg string, cause error) *APIError {
	return &APIError{Code: CodeInternal, Message: msg, Cause: cause}
}

// ErrValidation は項目別エラーをまとめた INVALID_ARGUMENT。
func ErrValidation(fields []FieldError) *APIError {
	return &APIError{Code: CodeInvalidArgument, Message: "validation failed", Fields: fields}
}

// CodeOf は err の Code を返す。APIError でなければ INTERNAL。
func CodeOf(err error) Code {
	var api *APIError
	if errors.As(err, &api) {
		return api.Code
	}
	return CodeInternal
}

// Is は err が指定 Code の APIError かどうか。
func Is(err error, code Code) bool {
	var api *APIError
	return errors.As(err, &api) && api.Code == code
}

func ToHTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errDTO struct {
	Error APIError `json:"error"`
}

func Body(code Code, msg string) errDTO {
	return errDTO{Error: APIError{Code: code, Message: msg}}
}

// BodyFrom はレスポンス用に整形する。内部エラーの詳細は外に出さない。
func BodyFrom(err error) errDTO {
	var api *APIError
	if errors.As(err, &api) {
		return errDTO{Error: APIError{Code: api.Code, Message: api.Message, Fields: api.Fields}}
	}
	return Body(CodeInternal, "internal error")
}

// Respond はエラーを JSON で返してハンドラチェーンを止める。
func Respond(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(ToHTTPStatus(err), BodyFrom(err))
}
