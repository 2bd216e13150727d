package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"mailledger-backend/internal/emailsync/domain"
	"mailledger-backend/internal/emailsync/repository"
	"mailledger-backend/pkg/logger"
)

// searchKeywords is the allowlist of transactional vocabulary searched for
var searchKeywords = []string{
	"payment", "paid", "invoice", "receipt", "order", "transaction",
	"debited", "credited", "purchase", "bill", "UPI", "spent",
}

// BuildSearchQuery combines the keyword allowlist with a lower time bound
func BuildSearchQuery(since time.Time) string {
	return fmt.Sprintf("{%s} after:%d", strings.Join(searchKeywords, " "), since.Unix())
}

// FailedMessage is a candidate whose body could not be fetched
type FailedMessage struct {
	ID  string
	Err error
}

// FetchResult holds the candidates of one run in provider list order
type FetchResult struct {
	Messages []*domain.CandidateMessage
	// Truncated is set when unseen candidates were left for a later run
	Truncated bool
	Failed    []FailedMessage
}

// messageFetcher implements MessageFetcher
type messageFetcher struct {
	provider     domain.MailProvider
	importedRepo repository.ImportedTransactionRepository
	opts         Options
}

// NewMessageFetcher creates a new instance of messageFetcher
func NewMessageFetcher(provider domain.MailProvider, importedRepo repository.ImportedTransactionRepository, opts Options) MessageFetcher {
	return &messageFetcher{
		provider:     provider,
		importedRepo: importedRepo,
		opts:         opts.withDefaults(),
	}
}

// FetchCandidates lists messages received after since, drops the ones already
// ingested and downloads at most ProcessingCap bodies.
func (f *messageFetcher) FetchCandidates(ctx context.Context, userID, accessToken string, since time.Time) (*FetchResult, error) {
	log := logger.Component(ctx, "fetcher").With().Str("user_id", userID).Logger()

	ids, truncated, err := f.collectUnseen(ctx, userID, accessToken, BuildSearchQuery(since))
	if err != nil {
		return nil, err
	}

	log.Debug().Int("candidates", len(ids)).Bool("truncated", truncated).Time("since", since).Msg("Listed candidate messages")

	messages, failed, err := f.fetchBodies(ctx, accessToken, ids)
	if err != nil {
		return nil, err
	}

	return &FetchResult{
		Messages:  messages,
		Truncated: truncated,
		Failed:    failed,
	}, nil
}

// collectUnseen walks the list newest first and gathers up to ProcessingCap
// ids that are neither ingested nor settled. Only pages yielding unseen ids
// count against MaxListPages. MaxScanPages bounds the walk as a whole.
func (f *messageFetcher) collectUnseen(ctx context.Context, userID, accessToken, query string) ([]string, bool, error) {
	unseen := make([]string, 0, f.opts.ProcessingCap)
	listed := make(map[string]struct{})
	pageToken := ""
	productive := 0

	for scanned := 0; scanned < f.opts.MaxScanPages; scanned++ {
		ids, next, err := f.provider.ListMessageIDs(ctx, accessToken, query, pageToken, f.opts.PageSize)
		if err != nil {
			return nil, false, domain.AsSyncError(err)
		}

		fresh := make([]string, 0, len(ids))
		for _, id := range ids {
			if _, dup := listed[id]; dup {
				continue
			}
			listed[id] = struct{}{}
			fresh = append(fresh, id)
		}

		fresh, err = f.importedRepo.FilterUnseen(ctx, userID, fresh)
		if err != nil {
			return nil, false, domain.NewSyncError(domain.ErrCodeUnknown, "failed to check imported messages", err)
		}

		for i, id := range fresh {
			unseen = append(unseen, id)
			if len(unseen) == f.opts.ProcessingCap {
				return unseen, i < len(fresh)-1 || next != "", nil
			}
		}

		if next == "" {
			return unseen, false, nil
		}
		if len(fresh) > 0 {
			productive++
			if productive == f.opts.MaxListPages {
				return unseen, true, nil
			}
		}
		pageToken = next
	}

	if len(unseen) > 0 {
		return unseen, true, nil
	}
	// Nothing unseen within reach; older messages of this window are given up
	log := logger.Component(ctx, "fetcher")
	log.Warn().Str("user_id", userID).Int("pages", f.opts.MaxScanPages).Msg("Scan depth exhausted without unseen messages")
	return unseen, false, nil
}

// fetchBodies downloads messages concurrently and returns them in ids order.
// Errors that affect the whole mailbox abort the fetch; others only drop the
// message concerned.
func (f *messageFetcher) fetchBodies(ctx context.Context, accessToken string, ids []string) ([]*domain.CandidateMessage, []FailedMessage, error) {
	log := logger.Component(ctx, "fetcher")

	results := make([]*domain.CandidateMessage, len(ids))
	errs := make([]error, len(ids))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, f.opts.FetchConcurrency)

	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			msg, err := f.provider.GetMessage(ctx, accessToken, id)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = msg
		}(i, id)
	}
	wg.Wait()

	messages := make([]*domain.CandidateMessage, 0, len(ids))
	var failed []FailedMessage
	for i, err := range errs {
		if err != nil {
			syncErr := domain.AsSyncError(err)
			if isMailboxWide(syncErr.Code) {
				return nil, nil, syncErr
			}
			failed = append(failed, FailedMessage{ID: ids[i], Err: err})
			log.Warn().Err(err).Str("message_id", ids[i]).Msg("Failed to fetch message, skipping")
			continue
		}
		if results[i] != nil {
			messages = append(messages, results[i])
		}
	}
	return messages, failed, nil
}

// isMailboxWide reports whether a per-message error would fail every other
// request of the run as well.
func isMailboxWide(code domain.ErrorCode) bool {
	switch code {
	case domain.ErrCodeInvalidToken, domain.ErrCodePermissionDenied,
		domain.ErrCodeQuotaExceeded, domain.ErrCodeRateLimitExceeded:
		return true
	default:
		return false
	}
}
