package dto

import (
	"time"

	"mailledger-backend/internal/emailsync/domain"
)

// RunResponse is returned by a successful manual sync run
type RunResponse struct {
	Success    bool `json:"success"`
	Processed  int  `json:"processed"`
	Duplicates int  `json:"duplicates"`
	Imported   int  `json:"imported"`
	Skipped    int  `json:"skipped"`
	Failed     int  `json:"failed"`
}

func NewRunResponse(result *domain.SyncResult) RunResponse {
	return RunResponse{
		Success:    true,
		Processed:  result.Processed,
		Duplicates: result.Duplicates,
		Imported:   result.Imported,
		Skipped:    result.Skipped,
		Failed:     result.Failed,
	}
}

// ErrorResponse is the body of every failed sync endpoint call
type ErrorResponse struct {
	Error   string           `json:"error"`
	Code    domain.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

func NewErrorResponse(err *domain.SyncError) ErrorResponse {
	return ErrorResponse{
		Error:   "sync failed",
		Code:    err.Code,
		Message: err.Message,
	}
}

// StatusResponse is the caller-visible view of SyncSettings. Tokens are never exposed.
type StatusResponse struct {
	EmailAddress     string            `json:"email_address"`
	IsEnabled        bool              `json:"is_enabled"`
	SyncStatus       domain.SyncStatus `json:"sync_status"`
	LastSyncAt       *time.Time        `json:"last_sync_at,omitempty"`
	LastErrorCode    domain.ErrorCode  `json:"last_error_code,omitempty"`
	LastError        string            `json:"last_error,omitempty"`
	TotalSyncedCount int               `json:"total_synced_count"`
	TokenExpiresAt   time.Time         `json:"token_expires_at"`
}

func NewStatusResponse(settings *domain.SyncSettings) StatusResponse {
	return StatusResponse{
		EmailAddress:     settings.EmailAddress,
		IsEnabled:        settings.IsEnabled,
		SyncStatus:       settings.SyncStatus,
		LastSyncAt:       settings.LastSyncAt,
		LastErrorCode:    settings.LastErrorCode,
		LastError:        settings.LastError,
		TotalSyncedCount: settings.TotalSyncedCount,
		TokenExpiresAt:   settings.TokenExpiresAt,
	}
}

type TransactionListResponse struct {
	Transactions []*domain.ImportedTransaction `json:"transactions"`
	Total        int64                         `json:"total"`
	Limit        int                           `json:"limit"`
	Offset       int                           `json:"offset"`
}
