package gmail

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"mailledger-backend/internal/emailsync/domain"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

var (
	quotaReasons = map[string]bool{
		"dailyLimitExceeded": true,
		"quotaExceeded":      true,
		"limitExceeded":      true,
	}
	rateReasons = map[string]bool{
		"rateLimitExceeded":     true,
		"userRateLimitExceeded": true,
	}
)

// ClassifyError maps a Gmail API or transport error to a SyncError
func ClassifyError(err error) *domain.SyncError {
	if err == nil {
		return nil
	}

	var syncErr *domain.SyncError
	if errors.As(err, &syncErr) {
		return syncErr
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return classifyAPIError(apiErr)
	}

	if isTransportError(err) {
		return domain.NewSyncError(domain.ErrCodeConnectionFailed, "unable to reach mail provider", err)
	}

	return domain.NewSyncError(domain.ErrCodeUnknown, "mail provider request failed", err)
}

func classifyAPIError(apiErr *googleapi.Error) *domain.SyncError {
	switch {
	case apiErr.Code == http.StatusUnauthorized:
		return domain.NewSyncError(domain.ErrCodeInvalidToken, "mail provider rejected the access token", apiErr)
	case apiErr.Code == http.StatusTooManyRequests:
		return domain.NewSyncError(domain.ErrCodeRateLimitExceeded, "mail provider rate limit exceeded", apiErr)
	case apiErr.Code == http.StatusForbidden:
		for _, item := range apiErr.Errors {
			if quotaReasons[item.Reason] {
				return domain.NewSyncError(domain.ErrCodeQuotaExceeded, "mail provider quota exceeded", apiErr)
			}
			if rateReasons[item.Reason] {
				return domain.NewSyncError(domain.ErrCodeRateLimitExceeded, "mail provider rate limit exceeded", apiErr)
			}
		}
		if strings.Contains(strings.ToLower(apiErr.Message), "quota") {
			return domain.NewSyncError(domain.ErrCodeQuotaExceeded, "mail provider quota exceeded", apiErr)
		}
		return domain.NewSyncError(domain.ErrCodePermissionDenied, "insufficient mailbox permissions", apiErr)
	case apiErr.Code >= http.StatusInternalServerError:
		return domain.NewSyncError(domain.ErrCodeConnectionFailed, "mail provider unavailable", apiErr)
	default:
		return domain.NewSyncError(domain.ErrCodeUnknown, "mail provider request failed", apiErr)
	}
}

// ClassifyRefreshError maps a token refresh failure. The token endpoint
// answering with a 4xx means the refresh token is no longer usable.
func ClassifyRefreshError(err error) *domain.SyncError {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= http.StatusInternalServerError {
			return domain.NewSyncError(domain.ErrCodeConnectionFailed, "token endpoint unavailable", err)
		}
		return domain.NewSyncError(domain.ErrCodeTokenExpired, "refresh token rejected, reconnect the mailbox", err)
	}
	if isTransportError(err) {
		return domain.NewSyncError(domain.ErrCodeConnectionFailed, "unable to reach token endpoint", err)
	}
	return domain.NewSyncError(domain.ErrCodeUnknown, "token refresh failed", err)
}

func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
