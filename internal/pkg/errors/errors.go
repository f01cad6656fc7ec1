package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an AppError independent of its transport status code.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindForbidden  Kind = "forbidden"
	KindRetryable  Kind = "retryable"
	KindInternal   Kind = "internal"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code    int         `json:"code"`
	Kind    Kind        `json:"kind"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code and message, so copies made
// by WithDetails or Wrap still satisfy errors.Is against the sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == e.Message
}

// New creates a new AppError
func New(kind Kind, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

// Wrap attaches the underlying cause to a copy of the sentinel.
func (e *AppError) Wrap(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// WithDetails returns a copy of the error carrying details
func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// Common errors
var (
	// 400 Bad Request
	ErrBadRequest     = New(KindValidation, http.StatusBadRequest, "請求格式錯誤")
	ErrValidation     = New(KindValidation, http.StatusBadRequest, "驗證失敗")
	ErrMessageTooLong = New(KindValidation, http.StatusBadRequest, "訊息內容不能超過 5000 個字元")
	ErrSelfDelegation = New(KindValidation, http.StatusBadRequest, "無法將管理員轉讓給自己")
	ErrCannotBanSelf  = New(KindValidation, http.StatusBadRequest, "無法封鎖自己")

	// 401 Unauthorized
	ErrUnauthorized = New(KindForbidden, http.StatusUnauthorized, "未授權的請求")

	// 403 Forbidden
	ErrForbidden         = New(KindForbidden, http.StatusForbidden, "禁止存取")
	ErrNotMember         = New(KindForbidden, http.StatusForbidden, "您不是該聊天室的成員")
	ErrNotAdmin          = New(KindForbidden, http.StatusForbidden, "僅管理員可執行此操作")
	ErrBanned            = New(KindForbidden, http.StatusForbidden, "您已被該聊天室封鎖")
	ErrInvalidCreator    = New(KindForbidden, http.StatusForbidden, "僅建立者可確認聊天室")
	ErrWrongRoomPassword = New(KindForbidden, http.StatusForbidden, "聊天室密碼錯誤")

	// 404 Not Found
	ErrNotFound            = New(KindNotFound, http.StatusNotFound, "資源不存在")
	ErrRoomNotFound        = New(KindNotFound, http.StatusNotFound, "聊天室不存在")
	ErrMemberNotFound      = New(KindNotFound, http.StatusNotFound, "成員不存在")
	ErrAdminNotFound       = New(KindNotFound, http.StatusNotFound, "聊天室管理員不存在")
	ErrPendingRoomNotFound = New(KindNotFound, http.StatusNotFound, "待建立的聊天室不存在或已過期")

	// 409 Conflict
	ErrConflict         = New(KindConflict, http.StatusConflict, "資源衝突")
	ErrAlreadyJoined    = New(KindConflict, http.StatusConflict, "已經是聊天室成員")
	ErrAdminCannotLeave = New(KindConflict, http.StatusConflict, "管理員需先轉讓管理權才能離開")

	// 423 Locked
	ErrLockTimeout = New(KindRetryable, http.StatusLocked, "操作繁忙，請稍後再試")

	// 429 Too Many Requests
	ErrTooManyRequests = New(KindRetryable, http.StatusTooManyRequests, "請求過於頻繁，請稍後再試")

	// 500 Internal Server Error
	ErrInternal = New(KindInternal, http.StatusInternalServerError, "伺服器內部錯誤")
)

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// KindOf reports the kind of the first AppError in err's chain.
// Errors that carry no AppError are internal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsRetryable reports whether the caller may retry the operation unchanged.
func IsRetryable(err error) bool {
	return KindOf(err) == KindRetryable
}

// GetHTTPStatus returns the HTTP status code for an error
func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// GetMessage returns the error message
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "伺服器內部錯誤"
}
