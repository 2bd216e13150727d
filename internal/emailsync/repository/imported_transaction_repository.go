package repository

import (
	"context"
	"time"

	"mailledger-backend/internal/emailsync/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// importedTransactionRepository implements ImportedTransactionRepository interface
type importedTransactionRepository struct {
	db *gorm.DB
}

// NewImportedTransactionRepository creates a new instance of importedTransactionRepository
func NewImportedTransactionRepository(db *gorm.DB) ImportedTransactionRepository {
	return &importedTransactionRepository{
		db: db,
	}
}

func (r *importedTransactionRepository) ExistsByMessageID(ctx context.Context, userID, messageID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.ImportedTransaction{}).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *importedTransactionRepository) FilterUnseen(ctx context.Context, userID string, messageIDs []string) ([]string, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	var seen []string
	err := r.db.WithContext(ctx).Model(&domain.ImportedTransaction{}).
		Where("user_id = ? AND message_id IN ?", userID, messageIDs).
		Pluck("message_id", &seen).Error
	if err != nil {
		return nil, err
	}

	var settled []string
	err = r.db.WithContext(ctx).Model(&domain.SkippedMessage{}).
		Where("user_id = ? AND message_id IN ?", userID, messageIDs).
		Where("reason = ? OR attempts >= ?", domain.SkipReasonNoAmount, domain.MaxMessageAttempts).
		Pluck("message_id", &settled).Error
	if err != nil {
		return nil, err
	}

	seenSet := make(map[string]struct{}, len(seen)+len(settled))
	for _, id := range seen {
		seenSet[id] = struct{}{}
	}
	for _, id := range settled {
		seenSet[id] = struct{}{}
	}

	unseen := make([]string, 0, len(messageIDs))
	for _, id := range messageIDs {
		if _, ok := seenSet[id]; !ok {
			unseen = append(unseen, id)
		}
	}
	return unseen, nil
}

func (r *importedTransactionRepository) MarkNoAmount(ctx context.Context, userID, messageID string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "message_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"reason":     domain.SkipReasonNoAmount,
			"updated_at": now,
		}),
	}).Create(&domain.SkippedMessage{
		UserID:    userID,
		MessageID: messageID,
		Reason:    domain.SkipReasonNoAmount,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error
}

func (r *importedTransactionRepository) RecordFailure(ctx context.Context, userID, messageID, reason string) error {
	now := time.Now()
	// INSERT ... ON CONFLICT (user_id, message_id) DO UPDATE SET attempts = attempts + 1
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "message_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"attempts":   gorm.Expr("email_skipped_messages.attempts + 1"),
			"last_error": reason,
			"updated_at": now,
		}),
	}).Create(&domain.SkippedMessage{
		UserID:    userID,
		MessageID: messageID,
		Reason:    domain.SkipReasonFailed,
		Attempts:  1,
		LastError: reason,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error
}

func (r *importedTransactionRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*domain.ImportedTransaction, int64, error) {
	var records []*domain.ImportedTransaction
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.ImportedTransaction{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("transaction_date DESC, created_at DESC").
		Limit(limit).Offset(offset).Find(&records).Error
	return records, total, err
}
