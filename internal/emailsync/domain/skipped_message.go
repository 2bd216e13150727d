package domain

import "time"

// MaxMessageAttempts bounds how many runs retry a message that keeps failing
const MaxMessageAttempts = 3

// SkipReason tells why a message was examined without producing an ImportedTransaction
type SkipReason string

const (
	SkipReasonNoAmount SkipReason = "no_amount"
	SkipReasonFailed   SkipReason = "failed"
)

// SkippedMessage marks a message that produced no ImportedTransaction.
// No-amount messages are settled on first sight; failed messages are
// settled once Attempts reaches MaxMessageAttempts.
type SkippedMessage struct {
	UserID    string     `json:"user_id" gorm:"primaryKey"`
	MessageID string     `json:"message_id" gorm:"primaryKey"`
	Reason    SkipReason `json:"reason" gorm:"size:16;not null"`
	Attempts  int        `json:"attempts" gorm:"not null;default:0"`
	LastError string     `json:"last_error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName implements the GORM tabler interface.
func (SkippedMessage) TableName() string { return "email_skipped_messages" }

// Settled reports whether the message should no longer be fetched
func (m *SkippedMessage) Settled() bool {
	return m.Reason == SkipReasonNoAmount || m.Attempts >= MaxMessageAttempts
}
