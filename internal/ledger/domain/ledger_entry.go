package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType distinguishes money going out from money coming in
type EntryType string

const (
	EntryTypeExpense EntryType = "expense"
	EntryTypeIncome  EntryType = "income"
)

// SourceTypeEmail marks entries created by the mailbox import pipeline
const SourceTypeEmail = "email"

// LedgerEntry is a record in a user's expense/income ledger. Entries with
// IsAutoGenerated=false were entered by the user and are never modified by
// the import pipeline.
type LedgerEntry struct {
	ID              string          `json:"id" gorm:"primaryKey"`
	UserID          string          `json:"user_id" gorm:"not null;index:idx_ledger_user_date,priority:1"`
	Type            EntryType       `json:"type" gorm:"size:16;not null;default:expense"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:numeric(14,2);not null"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	PaymentMode     string          `json:"payment_mode,omitempty" gorm:"size:32"`
	Date            time.Time       `json:"date" gorm:"not null;index:idx_ledger_user_date,priority:2"`
	IsAutoGenerated bool            `json:"is_auto_generated" gorm:"not null;default:false"`
	SourceType      string          `json:"source_type,omitempty" gorm:"size:32"`
	SourceRef       string          `json:"source_ref,omitempty"`
	Confidence      *float64        `json:"confidence,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName implements the GORM tabler interface.
func (LedgerEntry) TableName() string { return "ledger_entries" }

// IsManual reports whether the entry was entered by the user
func (e *LedgerEntry) IsManual() bool {
	return !e.IsAutoGenerated
}
