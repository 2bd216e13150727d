package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a run-level sync failure
type ErrorCode string

const (
	ErrCodeInvalidToken      ErrorCode = "INVALID_TOKEN"
	ErrCodeNotConnected      ErrorCode = "NOT_CONNECTED"
	ErrCodeTokenExpired      ErrorCode = "TOKEN_EXPIRED"
	ErrCodeConnectionFailed  ErrorCode = "CONNECTION_FAILED"
	ErrCodeQuotaExceeded     ErrorCode = "QUOTA_EXCEEDED"
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodePermissionDenied  ErrorCode = "PERMISSION_DENIED"
	ErrCodeSyncInProgress    ErrorCode = "SYNC_IN_PROGRESS"
	ErrCodeUnknown           ErrorCode = "UNKNOWN"
)

// SyncError is a structured error returned by a sync run.
type SyncError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

func (e *SyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error code to the status returned to API callers
func (e *SyncError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeInvalidToken, ErrCodeTokenExpired:
		return http.StatusUnauthorized
	case ErrCodeNotConnected:
		return http.StatusBadRequest
	case ErrCodeConnectionFailed:
		return http.StatusServiceUnavailable
	case ErrCodeQuotaExceeded, ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodePermissionDenied:
		return http.StatusForbidden
	case ErrCodeSyncInProgress:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// NewSyncError builds a SyncError whose retryability follows the code.
func NewSyncError(code ErrorCode, message string, cause error) *SyncError {
	return &SyncError{
		Code:      code,
		Message:   message,
		Retryable: isRetryable(code),
		Cause:     cause,
	}
}

func isRetryable(code ErrorCode) bool {
	switch code {
	case ErrCodeConnectionFailed, ErrCodeQuotaExceeded, ErrCodeRateLimitExceeded, ErrCodeSyncInProgress, ErrCodeUnknown:
		return true
	default:
		return false
	}
}

// AsSyncError converts any error into a SyncError, wrapping unknown errors
// with ErrCodeUnknown.
func AsSyncError(err error) *SyncError {
	if err == nil {
		return nil
	}
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr
	}
	return NewSyncError(ErrCodeUnknown, "unexpected sync failure", err)
}

// CodeOf returns the code of err, or ErrCodeUnknown if err is not a SyncError
func CodeOf(err error) ErrorCode {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Code
	}
	return ErrCodeUnknown
}
