package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	if got := ErrRoomNotFound.Error(); got != "聊天室不存在" {
		t.Errorf("Expected '聊天室不存在', got '%s'", got)
	}

	wrapped := ErrInternal.Wrap(errors.New("redis down"))
	if got := wrapped.Error(); got != "伺服器內部錯誤: redis down" {
		t.Errorf("Unexpected message: %s", got)
	}
}

func TestAppError_WrapKeepsIdentity(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("join room: %w", ErrInternal.Wrap(cause))

	if !errors.Is(err, ErrInternal) {
		t.Error("Expected wrapped error to match ErrInternal")
	}
	if !errors.Is(err, cause) {
		t.Error("Expected wrapped error to expose its cause")
	}
	if errors.Is(err, ErrRoomNotFound) {
		t.Error("Expected wrapped error not to match ErrRoomNotFound")
	}
}

func TestAppError_WithDetailsDoesNotMutateSentinel(t *testing.T) {
	err := ErrValidation.WithDetails([]string{"title"})

	if ErrValidation.Details != nil {
		t.Error("Expected sentinel details to stay nil")
	}
	if !errors.Is(err, ErrValidation) {
		t.Error("Expected copy to match ErrValidation")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", ErrMessageTooLong, KindValidation},
		{"not found", ErrPendingRoomNotFound, KindNotFound},
		{"conflict", ErrAlreadyJoined, KindConflict},
		{"forbidden", ErrBanned, KindForbidden},
		{"retryable", ErrLockTimeout, KindRetryable},
		{"wrapped", fmt.Errorf("outer: %w", ErrAdminCannotLeave), KindConflict},
		{"plain error", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("Expected kind %s, got %s", tt.want, got)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(ErrLockTimeout) {
		t.Error("Expected lock timeout to be retryable")
	}
	if IsRetryable(ErrNotAdmin) {
		t.Error("Expected not-admin to be final")
	}
}

func TestGetHTTPStatus(t *testing.T) {
	if got := GetHTTPStatus(ErrAdminCannotLeave); got != http.StatusConflict {
		t.Errorf("Expected 409, got %d", got)
	}
	if got := GetHTTPStatus(errors.New("x")); got != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", got)
	}
	if got := GetMessage(errors.New("x")); got != "伺服器內部錯誤" {
		t.Errorf("Unexpected message: %s", got)
	}
}
