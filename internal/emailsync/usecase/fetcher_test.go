package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"mailledger-backend/internal/emailsync/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func mailboxWith(n int) *fakeMailbox {
	box := &fakeMailbox{}
	for i := 0; i < n; i++ {
		box.messages = append(box.messages, &domain.CandidateMessage{
			ID:      fmt.Sprintf("msg-%02d", i),
			Subject: fmt.Sprintf("Payment of Rs %d.00 received", 100+i),
			Date:    testNow,
		})
	}
	return box
}

func messageIDs(msgs []*domain.CandidateMessage) []string {
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestBuildSearchQuery(t *testing.T) {
	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	query := BuildSearchQuery(since)

	assert.Contains(t, query, "payment")
	assert.Contains(t, query, "invoice")
	assert.Contains(t, query, "UPI")
	assert.Contains(t, query, "after:1735689600")
}

func TestFetchCandidates_CapsAndKeepsListOrder(t *testing.T) {
	box := mailboxWith(80)
	fetcher := NewMessageFetcher(box, &fakeStore{}, Options{PageSize: 50, ProcessingCap: 30})

	result, err := fetcher.FetchCandidates(context.Background(), "u1", "token", testNow.Add(-time.Hour))
	require.NoError(t, err)

	require.Len(t, result.Messages, 30)
	assert.True(t, result.Truncated)
	assert.Equal(t, "msg-00", result.Messages[0].ID)
	assert.Equal(t, "msg-29", result.Messages[29].ID)
	assert.Equal(t, 30, box.getCalls)
	assert.Equal(t, 1, box.listCalls)
}

func TestFetchCandidates_SkipsIngestedAndFollowsPages(t *testing.T) {
	box := mailboxWith(80)
	store := &fakeStore{}
	for i := 0; i < 45; i++ {
		_, _ = store.Write(context.Background(), &domain.ImportedTransaction{UserID: "u1", MessageID: fmt.Sprintf("msg-%02d", i)}, nil)
	}
	fetcher := NewMessageFetcher(box, store, Options{PageSize: 50, ProcessingCap: 30})

	result, err := fetcher.FetchCandidates(context.Background(), "u1", "token", testNow)
	require.NoError(t, err)

	require.Len(t, result.Messages, 30)
	assert.Equal(t, "msg-45", result.Messages[0].ID)
	assert.Equal(t, "msg-74", result.Messages[29].ID)
	assert.True(t, result.Truncated)
	assert.Equal(t, 2, box.listCalls)
	assert.Equal(t, 30, box.getCalls, "bodies are only fetched for unseen messages")
}

func TestFetchCandidates_NotTruncatedWhenMailboxDrained(t *testing.T) {
	box := mailboxWith(30)
	fetcher := NewMessageFetcher(box, &fakeStore{}, Options{PageSize: 50, ProcessingCap: 30})

	result, err := fetcher.FetchCandidates(context.Background(), "u1", "token", testNow)
	require.NoError(t, err)
	assert.Len(t, result.Messages, 30)
	assert.False(t, result.Truncated)
}

func ingest(store *fakeStore, userID string, from, to int) {
	for i := from; i < to; i++ {
		_, _ = store.Write(context.Background(), &domain.ImportedTransaction{UserID: userID, MessageID: fmt.Sprintf("msg-%02d", i)}, nil)
	}
}

func TestFetchCandidates_PageBudget(t *testing.T) {
	box := mailboxWith(40)
	fetcher := NewMessageFetcher(box, &fakeStore{}, Options{PageSize: 10, ProcessingCap: 30, MaxListPages: 2})

	result, err := fetcher.FetchCandidates(context.Background(), "u1", "token", testNow)
	require.NoError(t, err)
	assert.Len(t, result.Messages, 20)
	assert.True(t, result.Truncated)
	assert.Equal(t, 2, box.listCalls)
}

func TestFetchCandidates_IngestedPagesDoNotSpendPageBudget(t *testing.T) {
	box := mailboxWith(60)
	store := &fakeStore{}
	ingest(store, "u1", 0, 40)
	fetcher := NewMessageFetcher(box, store, Options{PageSize: 10, ProcessingCap: 30, MaxListPages: 2})

	result, err := fetcher.FetchCandidates(context.Background(), "u1", "token", testNow)
	require.NoError(t, err)
	require.Len(t, result.Messages, 20)
	assert.Equal(t, "msg-40", result.Messages[0].ID)
	assert.False(t, result.Truncated)
	assert.Equal(t, 6, box.listCalls)
}

func TestFetchCandidates_FullyIngestedMailboxIsNotTruncated(t *testing.T) {
	box := mailboxWith(40)
	store := &fakeStore{}
	ingest(store, "u1", 0, 40)
	fetcher := NewMessageFetcher(box, store, Options{PageSize: 10, ProcessingCap: 30, MaxListPages: 2})

	result, err := fetcher.FetchCandidates(context.Background(), "u1", "token", testNow)
	require.NoError(t, err)
	assert.Empty(t, result.Messages)
	assert.False(t, result.Truncated)
	assert.Equal(t, 4, box.listCalls)
}

func TestFetchCandidates_ScanDepth(t *testing.T) {
	t.Run("nothing unseen within reach", func(t *testing.T) {
		box := mailboxWith(50)
		store := &fakeStore{}
		ingest(store, "u1", 0, 30)
		fetcher := NewMessageFetcher(box, store, Options{PageSize: 10, ProcessingCap: 30, MaxListPages: 1, MaxScanPages: 2})

		result, err := fetcher.FetchCandidates(context.Background(), "u1", "token", testNow)
		require.NoError(t, err)
		assert.Empty(t, result.Messages)
		assert.False(t, result.Truncated)
		assert.Equal(t, 2, box.listCalls)
	})

	t.Run("unseen found on the last page scanned", func(t *testing.T) {
		box := mailboxWith(50)
		store := &fakeStore{}
		ingest(store, "u1", 0, 15)
		fetcher := NewMessageFetcher(box, store, Options{PageSize: 10, ProcessingCap: 30, MaxListPages: 3, MaxScanPages: 3})

		result, err := fetcher.FetchCandidates(context.Background(), "u1", "token", testNow)
		require.NoError(t, err)
		assert.Len(t, result.Messages, 15)
		assert.True(t, result.Truncated)
		assert.Equal(t, 3, box.listCalls)
	})
}

func TestFetchCandidates_PerMessageFailureIsCounted(t *testing.T) {
	box := mailboxWith(3)
	box.getErr = map[string]error{
		"msg-01": domain.NewSyncError(domain.ErrCodeConnectionFailed, "timeout", nil),
	}
	fetcher := NewMessageFetcher(box, &fakeStore{}, Options{})

	result, err := fetcher.FetchCandidates(context.Background(), "u1", "token", testNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"msg-00", "msg-02"}, messageIDs(result.Messages))
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "msg-01", result.Failed[0].ID)
	assert.Equal(t, domain.ErrCodeConnectionFailed, domain.CodeOf(result.Failed[0].Err))
}

func TestFetchCandidates_MailboxWideFailureAborts(t *testing.T) {
	box := mailboxWith(3)
	box.getErr = map[string]error{
		"msg-02": domain.NewSyncError(domain.ErrCodeQuotaExceeded, "daily limit", nil),
	}
	fetcher := NewMessageFetcher(box, &fakeStore{}, Options{})

	_, err := fetcher.FetchCandidates(context.Background(), "u1", "token", testNow)
	assert.Equal(t, domain.ErrCodeQuotaExceeded, domain.CodeOf(err))
}

func TestFetchCandidates_ListErrorsPropagate(t *testing.T) {
	tests := []domain.ErrorCode{
		domain.ErrCodeInvalidToken,
		domain.ErrCodeRateLimitExceeded,
		domain.ErrCodePermissionDenied,
		domain.ErrCodeConnectionFailed,
	}

	for _, code := range tests {
		t.Run(string(code), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			provider := domain.NewMockMailProvider(ctrl)
			provider.EXPECT().
				ListMessageIDs(gomock.Any(), "token", gomock.Any(), "", int64(50)).
				Return(nil, "", domain.NewSyncError(code, "list failed", nil))
			provider.EXPECT().GetMessage(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

			fetcher := NewMessageFetcher(provider, &fakeStore{}, Options{})
			_, err := fetcher.FetchCandidates(context.Background(), "u1", "token", testNow)
			assert.Equal(t, code, domain.CodeOf(err))
		})
	}
}
