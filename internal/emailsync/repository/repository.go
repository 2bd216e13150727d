package repository

import (
	"context"
	"time"

	"mailledger-backend/internal/emailsync/domain"
	ledgerdomain "mailledger-backend/internal/ledger/domain"
)

// SyncSettingsRepository defines the interface for per-user sync settings.
// Every state transition is persisted immediately.
type SyncSettingsRepository interface {
	// FindByUserID returns nil, nil when the user never connected a mailbox
	FindByUserID(ctx context.Context, userID string) (*domain.SyncSettings, error)
	// FindByEmailAddress looks up settings by the connected mailbox address
	FindByEmailAddress(ctx context.Context, email string) (*domain.SyncSettings, error)
	// ListEnabled returns the settings of every enabled integration
	ListEnabled(ctx context.Context) ([]*domain.SyncSettings, error)
	// TryBeginSync atomically moves an enabled integration into syncing.
	// A syncing row whose lease started before staleBefore may be taken over.
	// Returns false when another run holds the lease.
	TryBeginSync(ctx context.Context, userID string, now, staleBefore time.Time) (bool, error)
	// SaveTokens persists a refreshed token pair
	SaveTokens(ctx context.Context, userID, accessToken, refreshToken string, expiresAt time.Time) error
	// MarkTokenExpired disables the integration after an unrecoverable refresh failure
	MarkTokenExpired(ctx context.Context, userID, message string) error
	// FailSync ends a run in the error state
	FailSync(ctx context.Context, userID string, code domain.ErrorCode, message string) error
	// CompleteSync ends a run in the idle state. lastSyncAt is left unchanged when advanceTo is nil.
	CompleteSync(ctx context.Context, userID string, advanceTo *time.Time, imported int) error
	// ResetStaleSyncs moves runs whose lease started before staleBefore to the error state
	ResetStaleSyncs(ctx context.Context, staleBefore time.Time) (int64, error)
}

// ImportedTransactionRepository defines access to the idempotency tables:
// imported records and skipped messages.
type ImportedTransactionRepository interface {
	// ExistsByMessageID checks whether a message was already ingested for a user
	ExistsByMessageID(ctx context.Context, userID, messageID string) (bool, error)
	// FilterUnseen returns the ids, in input order, that have no record yet
	// and are not settled as skipped
	FilterUnseen(ctx context.Context, userID string, messageIDs []string) ([]string, error)
	// MarkNoAmount settles a message that carries no transaction
	MarkNoAmount(ctx context.Context, userID, messageID string) error
	// RecordFailure counts one failed attempt at a message
	RecordFailure(ctx context.Context, userID, messageID, reason string) error
	// ListByUserID returns a page of records, newest transaction first, and the total count
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*domain.ImportedTransaction, int64, error)
}

// IngestionWriter persists the outcome of one message.
type IngestionWriter interface {
	// Write inserts record and, when entry is not nil, inserts entry and links
	// it back to record. It returns false without writing anything when a
	// record for the same (user, message) already exists.
	Write(ctx context.Context, record *domain.ImportedTransaction, entry *ledgerdomain.LedgerEntry) (bool, error)
}
