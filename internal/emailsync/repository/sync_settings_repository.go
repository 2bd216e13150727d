package repository

import (
	"context"
	"errors"
	"time"

	"mailledger-backend/internal/emailsync/domain"

	"gorm.io/gorm"
)

// syncSettingsRepository implements SyncSettingsRepository interface
type syncSettingsRepository struct {
	db *gorm.DB
}

// NewSyncSettingsRepository creates a new instance of syncSettingsRepository
func NewSyncSettingsRepository(db *gorm.DB) SyncSettingsRepository {
	return &syncSettingsRepository{
		db: db,
	}
}

func (r *syncSettingsRepository) FindByUserID(ctx context.Context, userID string) (*domain.SyncSettings, error) {
	var settings domain.SyncSettings
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}

func (r *syncSettingsRepository) FindByEmailAddress(ctx context.Context, email string) (*domain.SyncSettings, error) {
	var settings domain.SyncSettings
	err := r.db.WithContext(ctx).Where("LOWER(email_address) = LOWER(?)", email).First(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}

func (r *syncSettingsRepository) ListEnabled(ctx context.Context) ([]*domain.SyncSettings, error) {
	var settings []*domain.SyncSettings
	err := r.db.WithContext(ctx).Where("is_enabled = ?", true).Order("user_id").Find(&settings).Error
	return settings, err
}

// TryBeginSync is a compare-and-set on the settings row: the UPDATE only
// matches when no live lease exists, so two concurrent runs cannot both win.
func (r *syncSettingsRepository) TryBeginSync(ctx context.Context, userID string, now, staleBefore time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.SyncSettings{}).
		Where("user_id = ? AND is_enabled = ?", userID, true).
		Where("sync_status <> ? OR sync_started_at IS NULL OR sync_started_at < ?", domain.SyncStatusSyncing, staleBefore).
		Updates(map[string]interface{}{
			"sync_status":     domain.SyncStatusSyncing,
			"sync_started_at": now,
			"updated_at":      now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *syncSettingsRepository) SaveTokens(ctx context.Context, userID, accessToken, refreshToken string, expiresAt time.Time) error {
	updates := map[string]interface{}{
		"access_token":     accessToken,
		"token_expires_at": expiresAt,
		"updated_at":       time.Now(),
	}
	// Google only returns a refresh token when it rotates it
	if refreshToken != "" {
		updates["refresh_token"] = refreshToken
	}
	return r.db.WithContext(ctx).Model(&domain.SyncSettings{}).Where("user_id = ?", userID).Updates(updates).Error
}

func (r *syncSettingsRepository) MarkTokenExpired(ctx context.Context, userID, message string) error {
	return r.db.WithContext(ctx).Model(&domain.SyncSettings{}).Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"sync_status":     domain.SyncStatusTokenExpired,
			"is_enabled":      false,
			"sync_started_at": nil,
			"last_error_code": domain.ErrCodeTokenExpired,
			"last_error":      message,
			"updated_at":      time.Now(),
		}).Error
}

func (r *syncSettingsRepository) FailSync(ctx context.Context, userID string, code domain.ErrorCode, message string) error {
	return r.db.WithContext(ctx).Model(&domain.SyncSettings{}).Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"sync_status":     domain.SyncStatusError,
			"sync_started_at": nil,
			"last_error_code": code,
			"last_error":      message,
			"updated_at":      time.Now(),
		}).Error
}

func (r *syncSettingsRepository) CompleteSync(ctx context.Context, userID string, advanceTo *time.Time, imported int) error {
	updates := map[string]interface{}{
		"sync_status":        domain.SyncStatusIdle,
		"sync_started_at":    nil,
		"last_error_code":    "",
		"last_error":         "",
		"total_synced_count": gorm.Expr("total_synced_count + ?", imported),
		"updated_at":         time.Now(),
	}
	if advanceTo != nil {
		updates["last_sync_at"] = *advanceTo
	}
	return r.db.WithContext(ctx).Model(&domain.SyncSettings{}).Where("user_id = ?", userID).Updates(updates).Error
}

func (r *syncSettingsRepository) ResetStaleSyncs(ctx context.Context, staleBefore time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.SyncSettings{}).
		Where("sync_status = ? AND (sync_started_at IS NULL OR sync_started_at < ?)", domain.SyncStatusSyncing, staleBefore).
		Updates(map[string]interface{}{
			"sync_status":     domain.SyncStatusError,
			"sync_started_at": nil,
			"last_error_code": domain.ErrCodeUnknown,
			"last_error":      "sync lease expired",
			"updated_at":      time.Now(),
		})
	return result.RowsAffected, result.Error
}
