package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"mailledger-backend/internal/emailsync/domain"
	"mailledger-backend/internal/emailsync/repository"
	ledgerdomain "mailledger-backend/internal/ledger/domain"
	"mailledger-backend/pkg/fuzzy"
	"mailledger-backend/pkg/logger"

	"github.com/rs/zerolog"
)

// searchScanLimit bounds how many records a fuzzy listing scans
const searchScanLimit = 1000

// syncUsecase implements SyncUsecase
type syncUsecase struct {
	settingsRepo repository.SyncSettingsRepository
	importedRepo repository.ImportedTransactionRepository
	writer       repository.IngestionWriter
	credentials  CredentialManager
	fetcher      MessageFetcher
	extractor    FactExtractor
	reconciler   DuplicateReconciler
	notifier     ImportNotifier
	opts         Options
	now          func() time.Time
}

// NewSyncUsecase creates a new instance of syncUsecase
func NewSyncUsecase(
	settingsRepo repository.SyncSettingsRepository,
	importedRepo repository.ImportedTransactionRepository,
	writer repository.IngestionWriter,
	credentials CredentialManager,
	fetcher MessageFetcher,
	extractor FactExtractor,
	reconciler DuplicateReconciler,
	opts Options,
) SyncUsecase {
	return &syncUsecase{
		settingsRepo: settingsRepo,
		importedRepo: importedRepo,
		writer:       writer,
		credentials:  credentials,
		fetcher:      fetcher,
		extractor:    extractor,
		reconciler:   reconciler,
		opts:         opts.withDefaults(),
		now:          time.Now,
	}
}

// SetImportNotifier allows wiring an ImportNotifier after creation
func (u *syncUsecase) SetImportNotifier(notifier ImportNotifier) {
	u.notifier = notifier
}

// SyncUser moves the user's integration idle -> syncing -> {idle, error,
// token_expired} and ingests at most ProcessingCap new messages.
func (u *syncUsecase) SyncUser(ctx context.Context, userID string) (*domain.SyncResult, error) {
	log := logger.Component(ctx, "email_sync").With().Str("user_id", userID).Logger()
	ctx = logger.WithContext(ctx, log)

	settings, err := u.settingsRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, domain.NewSyncError(domain.ErrCodeUnknown, "failed to load sync settings", err)
	}
	if settings == nil || !settings.HasCredentials() {
		return nil, domain.NewSyncError(domain.ErrCodeNotConnected, "mailbox is not connected", nil)
	}
	if !settings.IsEnabled {
		if settings.SyncStatus == domain.SyncStatusTokenExpired {
			return nil, domain.NewSyncError(domain.ErrCodeTokenExpired, "mailbox access expired, reconnect the mailbox", nil)
		}
		return nil, domain.NewSyncError(domain.ErrCodeNotConnected, "mailbox import is disabled", nil)
	}

	runStart := u.now()
	acquired, err := u.settingsRepo.TryBeginSync(ctx, userID, runStart, runStart.Add(-u.opts.StaleAfter))
	if err != nil {
		return nil, domain.NewSyncError(domain.ErrCodeUnknown, "failed to start sync", err)
	}
	if !acquired {
		return nil, domain.NewSyncError(domain.ErrCodeSyncInProgress, "a sync is already running for this mailbox", nil)
	}
	log.Info().Msg("Sync started")

	accessToken, err := u.credentials.EnsureValidToken(ctx, settings)
	if err != nil {
		syncErr := domain.AsSyncError(err)
		// token_expired was already persisted by the credential manager
		if syncErr.Code != domain.ErrCodeTokenExpired {
			u.fail(ctx, userID, syncErr)
		}
		return nil, syncErr
	}

	since := runStart.Add(-u.opts.FirstRunWindow)
	if settings.LastSyncAt != nil {
		since = *settings.LastSyncAt
	}

	fetched, err := u.fetcher.FetchCandidates(ctx, userID, accessToken, since)
	if err != nil {
		syncErr := domain.AsSyncError(err)
		u.fail(ctx, userID, syncErr)
		return nil, syncErr
	}

	result := &domain.SyncResult{}
	for _, failed := range fetched.Failed {
		u.recordFailure(ctx, userID, failed.ID, failed.Err, result)
	}
	for _, msg := range fetched.Messages {
		if err := u.processMessage(ctx, userID, msg, result); err != nil {
			u.recordFailure(ctx, userID, msg.ID, err, result)
		}
	}

	// The watermark only moves once nothing inside the window is left behind.
	// A message stops holding it back after MaxMessageAttempts failed runs.
	var advanceTo *time.Time
	if !fetched.Truncated && result.Failed == 0 {
		advanceTo = &runStart
	}

	if err := u.settingsRepo.CompleteSync(context.WithoutCancel(ctx), userID, advanceTo, result.Imported); err != nil {
		return nil, domain.NewSyncError(domain.ErrCodeUnknown, "failed to record sync completion", err)
	}

	log.Info().
		Int("processed", result.Processed).
		Int("imported", result.Imported).
		Int("duplicates", result.Duplicates).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Bool("backlog", fetched.Truncated).
		Dur("took", u.now().Sub(runStart)).
		Msg("Sync finished")

	if result.Imported > 0 && u.notifier != nil {
		u.notifier.NotifyImported(ctx, userID, result)
	}
	return result, nil
}

func (u *syncUsecase) fail(ctx context.Context, userID string, syncErr *domain.SyncError) {
	log := logger.FromContext(ctx)
	log.Warn().Err(syncErr).Str("code", string(syncErr.Code)).Msg("Sync failed")
	if err := u.settingsRepo.FailSync(context.WithoutCancel(ctx), userID, syncErr.Code, syncErr.Message); err != nil {
		log.Error().Err(err).Msg("Failed to persist sync error state")
	}
}

// recordFailure counts a failed message and bumps its attempt count so it is
// retried on later runs until it settles.
func (u *syncUsecase) recordFailure(ctx context.Context, userID, messageID string, cause error, result *domain.SyncResult) {
	log := logger.FromContext(ctx)
	result.Failed++
	if err := u.importedRepo.RecordFailure(context.WithoutCancel(ctx), userID, messageID, truncate(cause.Error(), 500)); err != nil {
		log.Error().Err(err).Str("message_id", messageID).Msg("Failed to record message failure")
	}
}

// processMessage runs extract -> reconcile -> write for one message. Returned
// errors are per message and never abort the run.
func (u *syncUsecase) processMessage(ctx context.Context, userID string, msg *domain.CandidateMessage, result *domain.SyncResult) (err error) {
	log := logger.FromContext(ctx).With().Str("message_id", msg.ID).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Panic while processing message")
			err = fmt.Errorf("panic while processing message: %v", r)
		}
	}()

	exists, err := u.importedRepo.ExistsByMessageID(ctx, userID, msg.ID)
	if err != nil {
		log.Error().Err(err).Msg("Imported lookup failed")
		return err
	}
	if exists {
		// Ingested by an overlapping run since listing
		result.Skipped++
		return nil
	}

	fact := u.extractor.Extract(msg)
	if !fact.HasAmount() {
		result.Skipped++
		log.Debug().Msg("No amount found, skipping")
		if err := u.importedRepo.MarkNoAmount(ctx, userID, msg.ID); err != nil {
			log.Warn().Err(err).Msg("Failed to mark message as skipped")
		}
		return nil
	}

	duplicate, err := u.reconciler.FindDuplicate(ctx, userID, fact)
	if err != nil {
		log.Error().Err(err).Msg("Duplicate lookup failed")
		return err
	}

	record := newImportedTransaction(userID, msg, fact)
	var entry *ledgerdomain.LedgerEntry
	if duplicate != nil {
		record.IsDuplicate = true
		record.DuplicateOfID = &duplicate.ID
	} else {
		entry = newLedgerEntry(userID, msg, fact)
	}

	created, err := u.writer.Write(ctx, record, entry)
	if err != nil {
		log.Error().Err(err).Msg("Failed to write imported transaction")
		return err
	}
	if !created {
		// Ingested by an overlapping run
		result.Skipped++
		return nil
	}

	result.Processed++
	if duplicate != nil {
		result.Duplicates++
		log.Debug().Str("duplicate_of", duplicate.ID).Msg("Matched manual ledger entry")
		return nil
	}
	result.Imported++
	logImported(&log, fact)
	return nil
}

func logImported(log *zerolog.Logger, fact *domain.ExtractedFact) {
	log.Debug().
		Str("amount", fact.Amount.StringFixed(2)).
		Str("merchant", fact.MerchantName()).
		Float64("confidence", fact.Confidence).
		Msg("Imported transaction")
}

func newImportedTransaction(userID string, msg *domain.CandidateMessage, fact *domain.ExtractedFact) *domain.ImportedTransaction {
	return &domain.ImportedTransaction{
		UserID:          userID,
		MessageID:       msg.ID,
		ThreadID:        msg.ThreadID,
		Subject:         truncate(msg.Subject, 500),
		Sender:          truncate(msg.From, 255),
		Amount:          *fact.Amount,
		MerchantName:    fact.MerchantName(),
		Category:        fact.Category,
		TransactionDate: fact.TransactionDate,
		PaymentMode:     fact.PaymentMode,
		Confidence:      fact.Confidence,
	}
}

func newLedgerEntry(userID string, msg *domain.CandidateMessage, fact *domain.ExtractedFact) *ledgerdomain.LedgerEntry {
	description := fact.MerchantName()
	if description == "" {
		description = truncate(msg.Subject, 255)
	}
	confidence := fact.Confidence

	return &ledgerdomain.LedgerEntry{
		UserID:          userID,
		Type:            ledgerdomain.EntryTypeExpense,
		Amount:          *fact.Amount,
		Description:     description,
		Category:        fact.Category,
		PaymentMode:     string(fact.PaymentMode),
		Date:            fact.TransactionDate,
		IsAutoGenerated: true,
		SourceType:      ledgerdomain.SourceTypeEmail,
		SourceRef:       msg.ID,
		Confidence:      &confidence,
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func (u *syncUsecase) SyncMailbox(ctx context.Context, emailAddress string) (*domain.SyncResult, error) {
	settings, err := u.settingsRepo.FindByEmailAddress(ctx, emailAddress)
	if err != nil {
		return nil, domain.NewSyncError(domain.ErrCodeUnknown, "failed to load sync settings", err)
	}
	if settings == nil {
		return nil, domain.NewSyncError(domain.ErrCodeNotConnected, fmt.Sprintf("no user connected mailbox %s", emailAddress), nil)
	}
	return u.SyncUser(ctx, settings.UserID)
}

func (u *syncUsecase) SyncAllEnabled(ctx context.Context) {
	log := logger.Component(ctx, "email_sync")

	users, err := u.settingsRepo.ListEnabled(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list enabled mailboxes")
		return
	}

	for _, settings := range users {
		if ctx.Err() != nil {
			return
		}
		userCtx, cancel := context.WithTimeout(ctx, u.opts.UserSyncTimeout)
		if _, err := u.SyncUser(userCtx, settings.UserID); err != nil {
			if domain.CodeOf(err) == domain.ErrCodeSyncInProgress {
				log.Debug().Str("user_id", settings.UserID).Msg("Sync already running, skipping")
			} else {
				log.Warn().Err(err).Str("user_id", settings.UserID).Msg("Scheduled sync failed")
			}
		}
		cancel()
	}
}

func (u *syncUsecase) ResetStaleSyncs(ctx context.Context) (int64, error) {
	return u.settingsRepo.ResetStaleSyncs(ctx, u.now().Add(-u.opts.StaleAfter))
}

func (u *syncUsecase) GetStatus(ctx context.Context, userID string) (*domain.SyncSettings, error) {
	settings, err := u.settingsRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, domain.NewSyncError(domain.ErrCodeNotConnected, "mailbox is not connected", nil)
	}
	return settings, nil
}

func (u *syncUsecase) ListImported(ctx context.Context, userID string, limit, offset int, query string) ([]*domain.ImportedTransaction, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return u.importedRepo.ListByUserID(ctx, userID, limit, offset)
	}

	records, _, err := u.importedRepo.ListByUserID(ctx, userID, searchScanLimit, 0)
	if err != nil {
		return nil, 0, err
	}

	type scored struct {
		record *domain.ImportedTransaction
		score  float64
	}
	matches := make([]scored, 0)
	for _, rec := range records {
		if !fuzzy.FuzzyMatchTransaction(query, rec.MerchantName, rec.Subject, rec.Sender, rec.Category) {
			continue
		}
		matches = append(matches, scored{
			record: rec,
			score:  fuzzy.CalculateRelevanceScore(query, rec.MerchantName, rec.Subject, rec.Sender),
		})
	}

	// Stable keeps newest-first order among equal scores
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	total := int64(len(matches))
	if offset >= len(matches) {
		return []*domain.ImportedTransaction{}, total, nil
	}
	end := offset + limit
	if end > len(matches) {
		end = len(matches)
	}

	page := make([]*domain.ImportedTransaction, 0, end-offset)
	for _, m := range matches[offset:end] {
		page = append(page, m.record)
	}
	return page, total, nil
}
