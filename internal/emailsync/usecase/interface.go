package usecase

import (
	"context"
	"time"

	"mailledger-backend/internal/emailsync/domain"
	ledgerdomain "mailledger-backend/internal/ledger/domain"
)

// SyncUsecase defines the interface for mailbox transaction import use cases
type SyncUsecase interface {
	// SyncUser runs one capped import pass for a user
	SyncUser(ctx context.Context, userID string) (*domain.SyncResult, error)
	// SyncMailbox runs SyncUser for the user owning the mailbox address
	SyncMailbox(ctx context.Context, emailAddress string) (*domain.SyncResult, error)
	// SyncAllEnabled runs SyncUser sequentially for every enabled user
	SyncAllEnabled(ctx context.Context)
	// ResetStaleSyncs releases sync leases that outlived the stale timeout
	ResetStaleSyncs(ctx context.Context) (int64, error)
	GetStatus(ctx context.Context, userID string) (*domain.SyncSettings, error)
	// ListImported returns imported records, optionally fuzzy-filtered by query
	ListImported(ctx context.Context, userID string, limit, offset int, query string) ([]*domain.ImportedTransaction, int64, error)
	SetImportNotifier(notifier ImportNotifier)
}

// CredentialManager hands out a usable access token for a user
type CredentialManager interface {
	EnsureValidToken(ctx context.Context, settings *domain.SyncSettings) (string, error)
}

// MessageFetcher retrieves the candidate messages of one run
type MessageFetcher interface {
	FetchCandidates(ctx context.Context, userID, accessToken string, since time.Time) (*FetchResult, error)
}

// FactExtractor derives an ExtractedFact from a message
type FactExtractor interface {
	Extract(msg *domain.CandidateMessage) *domain.ExtractedFact
}

// DuplicateReconciler finds the manual ledger entry a fact duplicates, if any
type DuplicateReconciler interface {
	FindDuplicate(ctx context.Context, userID string, fact *domain.ExtractedFact) (*ledgerdomain.LedgerEntry, error)
}

// ImportNotifier is told about runs that imported at least one transaction
type ImportNotifier interface {
	NotifyImported(ctx context.Context, userID string, result *domain.SyncResult)
}

// Options tunes the sync pipeline
type Options struct {
	PageSize      int64
	ProcessingCap int
	// MaxListPages bounds the list pages that yield unseen messages
	MaxListPages int
	// MaxScanPages bounds every list page of a run, including fully ingested ones
	MaxScanPages     int
	FetchConcurrency int
	FirstRunWindow   time.Duration
	StaleAfter       time.Duration
	TokenLeeway      time.Duration
	UserSyncTimeout  time.Duration
}

// DefaultOptions returns the production defaults
func DefaultOptions() Options {
	return Options{
		PageSize:         50,
		ProcessingCap:    30,
		MaxListPages:     10,
		MaxScanPages:     100,
		FetchConcurrency: 5,
		FirstRunWindow:   30 * 24 * time.Hour,
		StaleAfter:       10 * time.Minute,
		TokenLeeway:      30 * time.Second,
		UserSyncTimeout:  5 * time.Minute,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PageSize <= 0 {
		o.PageSize = d.PageSize
	}
	if o.ProcessingCap <= 0 {
		o.ProcessingCap = d.ProcessingCap
	}
	if o.MaxListPages <= 0 {
		o.MaxListPages = d.MaxListPages
	}
	if o.MaxScanPages <= 0 {
		o.MaxScanPages = d.MaxScanPages
	}
	if o.MaxScanPages < o.MaxListPages {
		o.MaxScanPages = o.MaxListPages
	}
	if o.FetchConcurrency <= 0 {
		o.FetchConcurrency = d.FetchConcurrency
	}
	if o.FirstRunWindow <= 0 {
		o.FirstRunWindow = d.FirstRunWindow
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = d.StaleAfter
	}
	if o.TokenLeeway < 0 {
		o.TokenLeeway = 0
	}
	if o.UserSyncTimeout <= 0 {
		o.UserSyncTimeout = d.UserSyncTimeout
	}
	return o
}
