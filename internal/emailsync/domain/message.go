package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CandidateMessage is a mail item that might describe a financial transaction.
// It only lives for the duration of one sync run.
type CandidateMessage struct {
	ID       string
	ThreadID string
	Subject  string
	From     string
	Date     time.Time
	Body     string
}

// PaymentMode is the payment instrument detected in a message
type PaymentMode string

const (
	PaymentModeUPI          PaymentMode = "UPI"
	PaymentModeCard         PaymentMode = "Card"
	PaymentModeBankTransfer PaymentMode = "BankTransfer"
	PaymentModeCash         PaymentMode = "Cash"
	PaymentModeOther        PaymentMode = "Other"
)

// CategoryOther is used when no merchant rule matched
const CategoryOther = "Other"

// Merchant is a recognised brand and its spending category
type Merchant struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// ExtractedFact is the structured data derived from a CandidateMessage.
// A nil Amount disqualifies the message from ingestion.
type ExtractedFact struct {
	Amount          *decimal.Decimal
	Merchant        *Merchant
	Category        string
	TransactionDate time.Time
	PaymentMode     PaymentMode
	Confidence      float64
}

// HasAmount reports whether the fact carries an amount usable for ingestion
func (f *ExtractedFact) HasAmount() bool {
	return f != nil && f.Amount != nil
}

// MerchantName returns the merchant name or an empty string
func (f *ExtractedFact) MerchantName() string {
	if f.Merchant == nil {
		return ""
	}
	return f.Merchant.Name
}
