package repository

import (
	"context"

	"mailledger-backend/internal/ledger/domain"

	"gorm.io/gorm"
)

// gormLedgerRepository implements LedgerRepository using GORM
type gormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GORM-based LedgerRepository
func NewGormLedgerRepository(db *gorm.DB) LedgerRepository {
	return &gormLedgerRepository{db: db}
}

func (r *gormLedgerRepository) FindExpensesInWindow(ctx context.Context, q WindowQuery) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND type = ?", q.UserID, domain.EntryTypeExpense).
		Where("date >= ? AND date <= ?", q.From, q.To).
		Where("amount >= ? AND amount <= ?", q.MinAmount, q.MaxAmount).
		Order("date ASC, created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
