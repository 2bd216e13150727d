package repository

import (
	"context"
	"time"

	"mailledger-backend/internal/ledger/domain"

	"github.com/shopspring/decimal"
)

// WindowQuery selects expense entries of a user inside a date and amount band.
// Both bounds are inclusive.
type WindowQuery struct {
	UserID    string
	From      time.Time
	To        time.Time
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
}

// LedgerRepository is the read side of the ledger used by the import pipeline
type LedgerRepository interface {
	// FindExpensesInWindow returns expense entries matching the query
	FindExpensesInWindow(ctx context.Context, q WindowQuery) ([]*domain.LedgerEntry, error)
}
