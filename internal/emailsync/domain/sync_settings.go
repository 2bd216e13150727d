package domain

import "time"

// SyncStatus is the state of a user's mailbox import integration
type SyncStatus string

const (
	SyncStatusIdle         SyncStatus = "idle"
	SyncStatusSyncing      SyncStatus = "syncing"
	SyncStatusError        SyncStatus = "error"
	SyncStatusTokenExpired SyncStatus = "token_expired"
)

// SyncSettings holds the mailbox credentials and sync state of one user.
// Only the sync orchestrator and the credential manager mutate it.
type SyncSettings struct {
	UserID           string     `json:"user_id" gorm:"primaryKey"`
	EmailAddress     string     `json:"email_address" gorm:"index"`
	IsEnabled        bool       `json:"is_enabled" gorm:"not null;default:false"`
	AccessToken      string     `json:"-" gorm:"size:4096"`
	RefreshToken     string     `json:"-" gorm:"size:4096"`
	TokenExpiresAt   time.Time  `json:"token_expires_at"`
	SyncStatus       SyncStatus `json:"sync_status" gorm:"size:32;not null;default:idle;index"`
	SyncStartedAt    *time.Time `json:"sync_started_at,omitempty"`
	LastSyncAt       *time.Time `json:"last_sync_at,omitempty"`
	LastErrorCode    ErrorCode  `json:"last_error_code,omitempty" gorm:"size:32"`
	LastError        string     `json:"last_error,omitempty"`
	TotalSyncedCount int        `json:"total_synced_count" gorm:"not null;default:0"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName implements the GORM tabler interface.
func (SyncSettings) TableName() string { return "email_sync_settings" }

// HasCredentials reports whether a token pair was ever stored for the user
func (s *SyncSettings) HasCredentials() bool {
	return s.AccessToken != "" || s.RefreshToken != ""
}

// TokenExpired reports whether the access token is expired at now, treating
// tokens that expire within leeway as already expired.
func (s *SyncSettings) TokenExpired(now time.Time, leeway time.Duration) bool {
	if s.AccessToken == "" {
		return true
	}
	return !s.TokenExpiresAt.After(now.Add(leeway))
}
