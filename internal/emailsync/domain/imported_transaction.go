package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ImportedTransaction records every message that produced an extracted fact,
// whether or not a ledger entry was written for it. (UserID, MessageID) is the
// idempotency key of the pipeline.
type ImportedTransaction struct {
	ID                  string          `json:"id" gorm:"primaryKey"`
	UserID              string          `json:"user_id" gorm:"not null;uniqueIndex:idx_imported_user_message,priority:1"`
	MessageID           string          `json:"message_id" gorm:"not null;uniqueIndex:idx_imported_user_message,priority:2"`
	ThreadID            string          `json:"thread_id,omitempty"`
	Subject             string          `json:"subject"`
	Sender              string          `json:"sender"`
	Amount              decimal.Decimal `json:"amount" gorm:"type:numeric(14,2);not null"`
	MerchantName        string          `json:"merchant_name,omitempty"`
	Category            string          `json:"category"`
	TransactionDate     time.Time       `json:"transaction_date" gorm:"index"`
	PaymentMode         PaymentMode     `json:"payment_mode" gorm:"size:32"`
	Confidence          float64         `json:"confidence"`
	IsDuplicate         bool            `json:"is_duplicate" gorm:"not null;default:false"`
	DuplicateOfID       *string         `json:"duplicate_of_id,omitempty"`
	LinkedLedgerEntryID *string         `json:"linked_ledger_entry_id,omitempty"`
	IsProcessed         bool            `json:"is_processed" gorm:"not null;default:false"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// TableName implements the GORM tabler interface.
func (ImportedTransaction) TableName() string { return "imported_transactions" }
