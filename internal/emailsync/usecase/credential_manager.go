package usecase

import (
	"context"
	"time"

	"mailledger-backend/internal/emailsync/domain"
	"mailledger-backend/internal/emailsync/repository"
	"mailledger-backend/pkg/logger"
)

// credentialManager implements CredentialManager
type credentialManager struct {
	settingsRepo repository.SyncSettingsRepository
	refresher    domain.TokenRefresher
	leeway       time.Duration
	now          func() time.Time
}

// NewCredentialManager creates a new instance of credentialManager
func NewCredentialManager(settingsRepo repository.SyncSettingsRepository, refresher domain.TokenRefresher, leeway time.Duration) CredentialManager {
	return &credentialManager{
		settingsRepo: settingsRepo,
		refresher:    refresher,
		leeway:       leeway,
		now:          time.Now,
	}
}

// EnsureValidToken returns the stored access token, refreshing it first when
// it is expired. A refreshed pair is persisted before it is returned. A
// rejected refresh token disables the integration.
func (m *credentialManager) EnsureValidToken(ctx context.Context, settings *domain.SyncSettings) (string, error) {
	if !settings.TokenExpired(m.now(), m.leeway) {
		return settings.AccessToken, nil
	}

	log := logger.Component(ctx, "credentials").With().Str("user_id", settings.UserID).Logger()
	log.Debug().Time("expired_at", settings.TokenExpiresAt).Msg("Access token expired, refreshing")

	refreshed, err := m.refresher.RefreshToken(ctx, settings.RefreshToken)
	if err != nil {
		syncErr := domain.AsSyncError(err)
		if syncErr.Code != domain.ErrCodeTokenExpired {
			log.Warn().Err(err).Str("code", string(syncErr.Code)).Msg("Token refresh failed")
			return "", syncErr
		}

		log.Warn().Err(err).Msg("Refresh token rejected, disabling mailbox import")
		if markErr := m.settingsRepo.MarkTokenExpired(context.WithoutCancel(ctx), settings.UserID, syncErr.Message); markErr != nil {
			log.Error().Err(markErr).Msg("Failed to persist token_expired state")
		}
		settings.IsEnabled = false
		settings.SyncStatus = domain.SyncStatusTokenExpired
		return "", syncErr
	}

	if err := m.settingsRepo.SaveTokens(ctx, settings.UserID, refreshed.AccessToken, refreshed.RefreshToken, refreshed.Expiry); err != nil {
		return "", domain.NewSyncError(domain.ErrCodeUnknown, "failed to store refreshed token", err)
	}

	settings.AccessToken = refreshed.AccessToken
	settings.TokenExpiresAt = refreshed.Expiry
	if refreshed.RefreshToken != "" {
		settings.RefreshToken = refreshed.RefreshToken
	}

	log.Info().Time("expires_at", refreshed.Expiry).Msg("Access token refreshed")
	return refreshed.AccessToken, nil
}
