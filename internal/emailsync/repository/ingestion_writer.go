package repository

import (
	"context"
	"time"

	"mailledger-backend/internal/emailsync/domain"
	ledgerdomain "mailledger-backend/internal/ledger/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ingestionWriter implements IngestionWriter with one database transaction
// per message, so a failed ledger insert never leaves an orphaned record
// that would block the message from being retried.
type ingestionWriter struct {
	db *gorm.DB
}

// NewIngestionWriter creates a new instance of ingestionWriter
func NewIngestionWriter(db *gorm.DB) IngestionWriter {
	return &ingestionWriter{db: db}
}

func (w *ingestionWriter) Write(ctx context.Context, record *domain.ImportedTransaction, entry *ledgerdomain.LedgerEntry) (bool, error) {
	created := false
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if record.ID == "" {
			record.ID = uuid.New().String()
		}
		record.CreatedAt = now
		record.UpdatedAt = now

		// Atomic insert: INSERT ... ON CONFLICT (user_id, message_id) DO NOTHING
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "message_id"}},
			DoNothing: true,
		}).Create(record)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		created = true

		if entry == nil {
			return nil
		}

		if entry.ID == "" {
			entry.ID = uuid.New().String()
		}
		entry.CreatedAt = now
		entry.UpdatedAt = now
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		record.LinkedLedgerEntryID = &entry.ID
		record.IsProcessed = true
		return tx.Model(&domain.ImportedTransaction{}).Where("id = ?", record.ID).
			Updates(map[string]interface{}{
				"linked_ledger_entry_id": entry.ID,
				"is_processed":           true,
				"updated_at":             now,
			}).Error
	})
	if err != nil {
		return false, err
	}
	return created, nil
}
