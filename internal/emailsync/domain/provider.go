package domain

import (
	"context"
	"time"
)

//go:generate mockgen -source=provider.go -destination=provider_mock.go -package=domain

// RefreshedToken is the outcome of a successful OAuth refresh
type RefreshedToken struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// TokenRefresher exchanges a refresh token for a new access token.
// Provider rejections are returned as SyncError with ErrCodeTokenExpired.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*RefreshedToken, error)
}

// MailProvider lists and reads messages from a user's mailbox.
// Errors are returned as SyncError carrying the mapped ErrorCode.
type MailProvider interface {
	ListMessageIDs(ctx context.Context, accessToken, query, pageToken string, maxResults int64) (ids []string, nextPageToken string, err error)
	GetMessage(ctx context.Context, accessToken, messageID string) (*CandidateMessage, error)
}
