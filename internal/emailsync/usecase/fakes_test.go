package usecase

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"mailledger-backend/internal/emailsync/domain"
	ledgerdomain "mailledger-backend/internal/ledger/domain"
	ledgerrepo "mailledger-backend/internal/ledger/repository"
)

// fakeSettingsRepo is an in-memory SyncSettingsRepository with the same
// compare-and-set semantics as the SQL implementation.
type fakeSettingsRepo struct {
	mu       sync.Mutex
	settings map[string]*domain.SyncSettings
	err      error
}

func newFakeSettingsRepo(settings ...*domain.SyncSettings) *fakeSettingsRepo {
	r := &fakeSettingsRepo{settings: make(map[string]*domain.SyncSettings)}
	for _, s := range settings {
		r.settings[s.UserID] = s
	}
	return r
}

func (r *fakeSettingsRepo) get(userID string) domain.SyncSettings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.settings[userID]
}

func (r *fakeSettingsRepo) FindByUserID(_ context.Context, userID string) (*domain.SyncSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	s, ok := r.settings[userID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSettingsRepo) FindByEmailAddress(_ context.Context, email string) (*domain.SyncSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.settings {
		if strings.EqualFold(s.EmailAddress, email) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeSettingsRepo) ListEnabled(_ context.Context) ([]*domain.SyncSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.SyncSettings
	for _, s := range r.settings {
		if s.IsEnabled {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *fakeSettingsRepo) TryBeginSync(_ context.Context, userID string, now, staleBefore time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.settings[userID]
	if !ok || !s.IsEnabled {
		return false, nil
	}
	if s.SyncStatus == domain.SyncStatusSyncing && s.SyncStartedAt != nil && !s.SyncStartedAt.Before(staleBefore) {
		return false, nil
	}
	s.SyncStatus = domain.SyncStatusSyncing
	s.SyncStartedAt = &now
	return true, nil
}

func (r *fakeSettingsRepo) SaveTokens(_ context.Context, userID, accessToken, refreshToken string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.settings[userID]
	s.AccessToken = accessToken
	s.TokenExpiresAt = expiresAt
	if refreshToken != "" {
		s.RefreshToken = refreshToken
	}
	return nil
}

func (r *fakeSettingsRepo) MarkTokenExpired(_ context.Context, userID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.settings[userID]
	s.SyncStatus = domain.SyncStatusTokenExpired
	s.IsEnabled = false
	s.SyncStartedAt = nil
	s.LastErrorCode = domain.ErrCodeTokenExpired
	s.LastError = message
	return nil
}

func (r *fakeSettingsRepo) FailSync(_ context.Context, userID string, code domain.ErrorCode, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.settings[userID]
	s.SyncStatus = domain.SyncStatusError
	s.SyncStartedAt = nil
	s.LastErrorCode = code
	s.LastError = message
	return nil
}

func (r *fakeSettingsRepo) CompleteSync(_ context.Context, userID string, advanceTo *time.Time, imported int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.settings[userID]
	s.SyncStatus = domain.SyncStatusIdle
	s.SyncStartedAt = nil
	s.LastErrorCode = ""
	s.LastError = ""
	s.TotalSyncedCount += imported
	if advanceTo != nil {
		t := *advanceTo
		s.LastSyncAt = &t
	}
	return nil
}

func (r *fakeSettingsRepo) ResetStaleSyncs(_ context.Context, staleBefore time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.settings {
		if s.SyncStatus == domain.SyncStatusSyncing && (s.SyncStartedAt == nil || s.SyncStartedAt.Before(staleBefore)) {
			s.SyncStatus = domain.SyncStatusError
			s.SyncStartedAt = nil
			s.LastErrorCode = domain.ErrCodeUnknown
			n++
		}
	}
	return n, nil
}

// fakeStore backs the imported transaction table, the ingestion writer and the
// ledger at once so tests can observe all three.
type fakeStore struct {
	mu       sync.Mutex
	records  []*domain.ImportedTransaction
	ledger   []*ledgerdomain.LedgerEntry
	skipped  map[string]*domain.SkippedMessage
	writeErr error
	seq      int
}

func (s *fakeStore) skippedMessage(userID, messageID string) *domain.SkippedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sk, ok := s.skipped[userID+"/"+messageID]; ok {
		cp := *sk
		return &cp
	}
	return nil
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *fakeStore) addLedger(entry *ledgerdomain.LedgerEntry) *ledgerdomain.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = s.nextID("ledger")
	}
	if entry.Type == "" {
		entry.Type = ledgerdomain.EntryTypeExpense
	}
	s.ledger = append(s.ledger, entry)
	return entry
}

func (s *fakeStore) ledgerEntries() []*ledgerdomain.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*ledgerdomain.LedgerEntry(nil), s.ledger...)
}

func (s *fakeStore) importedRecords() []*domain.ImportedTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.ImportedTransaction(nil), s.records...)
}

func (s *fakeStore) ExistsByMessageID(_ context.Context, userID, messageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.UserID == userID && r.MessageID == messageID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) FilterUnseen(ctx context.Context, userID string, messageIDs []string) ([]string, error) {
	var unseen []string
	for _, id := range messageIDs {
		exists, _ := s.ExistsByMessageID(ctx, userID, id)
		if exists {
			continue
		}
		if sk := s.skippedMessage(userID, id); sk != nil && sk.Settled() {
			continue
		}
		unseen = append(unseen, id)
	}
	return unseen, nil
}

func (s *fakeStore) skippedEntry(userID, messageID string) *domain.SkippedMessage {
	if s.skipped == nil {
		s.skipped = make(map[string]*domain.SkippedMessage)
	}
	key := userID + "/" + messageID
	sk, ok := s.skipped[key]
	if !ok {
		sk = &domain.SkippedMessage{UserID: userID, MessageID: messageID}
		s.skipped[key] = sk
	}
	return sk
}

func (s *fakeStore) MarkNoAmount(_ context.Context, userID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skippedEntry(userID, messageID).Reason = domain.SkipReasonNoAmount
	return nil
}

func (s *fakeStore) RecordFailure(_ context.Context, userID, messageID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sk := s.skippedEntry(userID, messageID)
	if sk.Reason == "" {
		sk.Reason = domain.SkipReasonFailed
	}
	sk.Attempts++
	sk.LastError = reason
	return nil
}

func (s *fakeStore) ListByUserID(_ context.Context, userID string, limit, offset int) ([]*domain.ImportedTransaction, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var mine []*domain.ImportedTransaction
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].UserID == userID {
			mine = append(mine, s.records[i])
		}
	}
	total := int64(len(mine))
	if offset >= len(mine) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(mine) {
		end = len(mine)
	}
	return mine[offset:end], total, nil
}

func (s *fakeStore) Write(_ context.Context, record *domain.ImportedTransaction, entry *ledgerdomain.LedgerEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return false, s.writeErr
	}
	for _, r := range s.records {
		if r.UserID == record.UserID && r.MessageID == record.MessageID {
			return false, nil
		}
	}
	record.ID = s.nextID("imported")
	if entry != nil {
		entry.ID = s.nextID("ledger")
		s.ledger = append(s.ledger, entry)
		record.LinkedLedgerEntryID = &entry.ID
		record.IsProcessed = true
	}
	s.records = append(s.records, record)
	return true, nil
}

func (s *fakeStore) FindExpensesInWindow(_ context.Context, q ledgerrepo.WindowQuery) ([]*ledgerdomain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*ledgerdomain.LedgerEntry
	for _, e := range s.ledger {
		if e.UserID != q.UserID || e.Type != ledgerdomain.EntryTypeExpense {
			continue
		}
		if e.Date.Before(q.From) || e.Date.After(q.To) {
			continue
		}
		if e.Amount.LessThan(q.MinAmount) || e.Amount.GreaterThan(q.MaxAmount) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// fakeMailbox serves a fixed, newest-first list of messages
type fakeMailbox struct {
	mu        sync.Mutex
	messages  []*domain.CandidateMessage
	listCalls int
	getCalls  int
	getErr    map[string]error
	queries   []string
	tokens    []string
}

func (m *fakeMailbox) ListMessageIDs(_ context.Context, accessToken, query, pageToken string, maxResults int64) ([]string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	m.tokens = append(m.tokens, accessToken)
	m.queries = append(m.queries, query)

	start := 0
	if pageToken != "" {
		start, _ = strconv.Atoi(pageToken)
	}
	end := start + int(maxResults)
	if end > len(m.messages) {
		end = len(m.messages)
	}
	ids := make([]string, 0, end-start)
	for _, msg := range m.messages[start:end] {
		ids = append(ids, msg.ID)
	}
	next := ""
	if end < len(m.messages) {
		next = strconv.Itoa(end)
	}
	return ids, next, nil
}

func (m *fakeMailbox) GetMessage(_ context.Context, _ string, messageID string) (*domain.CandidateMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if err, ok := m.getErr[messageID]; ok {
		return nil, err
	}
	for _, msg := range m.messages {
		if msg.ID == messageID {
			cp := *msg
			return &cp, nil
		}
	}
	return nil, domain.NewSyncError(domain.ErrCodeUnknown, "not found", nil)
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls map[string]int
}

func (n *recordingNotifier) NotifyImported(_ context.Context, userID string, result *domain.SyncResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.calls == nil {
		n.calls = make(map[string]int)
	}
	n.calls[userID] += result.Imported
}
