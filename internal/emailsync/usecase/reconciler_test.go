package usecase

import (
	"context"
	"testing"
	"time"

	"mailledger-backend/internal/emailsync/domain"
	ledgerdomain "mailledger-backend/internal/ledger/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reconcileDay = time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)

func factFor(amount string, day time.Time) *domain.ExtractedFact {
	a := decimal.RequireFromString(amount)
	return &domain.ExtractedFact{Amount: &a, TransactionDate: day, Category: domain.CategoryOther}
}

func manualEntry(userID, amount string, day time.Time) *ledgerdomain.LedgerEntry {
	return &ledgerdomain.LedgerEntry{
		UserID: userID,
		Type:   ledgerdomain.EntryTypeExpense,
		Amount: decimal.RequireFromString(amount),
		Date:   day,
	}
}

func TestFindDuplicate_ManualEntryWithinTolerance(t *testing.T) {
	store := &fakeStore{}
	manual := store.addLedger(manualEntry("u1", "500", reconcileDay))
	r := NewReconciler(store)

	tests := []struct {
		name   string
		amount string
		day    time.Time
		match  bool
	}{
		{name: "same day lower amount", amount: "495", day: reconcileDay, match: true},
		{name: "next day higher amount", amount: "510", day: reconcileDay.AddDate(0, 0, 1), match: true},
		{name: "previous day", amount: "500", day: reconcileDay.AddDate(0, 0, -1), match: true},
		{name: "two days later", amount: "500", day: reconcileDay.AddDate(0, 0, 2), match: false},
		{name: "two days earlier", amount: "500", day: reconcileDay.AddDate(0, 0, -2), match: false},
		{name: "amount too low", amount: "489", day: reconcileDay, match: false},
		{name: "amount too high", amount: "515", day: reconcileDay, match: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dup, err := r.FindDuplicate(context.Background(), "u1", factFor(tt.amount, tt.day))
			require.NoError(t, err)
			if tt.match {
				require.NotNil(t, dup)
				assert.Equal(t, manual.ID, dup.ID)
			} else {
				assert.Nil(t, dup)
			}
		})
	}
}

func TestFindDuplicate_EntryLaterInFollowingDay(t *testing.T) {
	store := &fakeStore{}
	store.addLedger(manualEntry("u1", "250", reconcileDay.AddDate(0, 0, 1).Add(21*time.Hour)))

	dup, err := NewReconciler(store).FindDuplicate(context.Background(), "u1", factFor("250", reconcileDay))
	require.NoError(t, err)
	assert.NotNil(t, dup)
}

func TestFindDuplicate_AutoGeneratedEntriesNeverMatch(t *testing.T) {
	store := &fakeStore{}
	auto := manualEntry("u1", "120", reconcileDay)
	auto.IsAutoGenerated = true
	auto.SourceType = ledgerdomain.SourceTypeEmail
	store.addLedger(auto)

	dup, err := NewReconciler(store).FindDuplicate(context.Background(), "u1", factFor("120", reconcileDay))
	require.NoError(t, err)
	assert.Nil(t, dup)
}

func TestFindDuplicate_PrefersManualOverAuto(t *testing.T) {
	store := &fakeStore{}
	auto := manualEntry("u1", "300", reconcileDay)
	auto.IsAutoGenerated = true
	store.addLedger(auto)
	manual := store.addLedger(manualEntry("u1", "303", reconcileDay.AddDate(0, 0, 1)))

	dup, err := NewReconciler(store).FindDuplicate(context.Background(), "u1", factFor("300", reconcileDay))
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.Equal(t, manual.ID, dup.ID)
}

func TestFindDuplicate_ClosestAmountThenDate(t *testing.T) {
	store := &fakeStore{}
	store.addLedger(manualEntry("u1", "1010", reconcileDay))
	store.addLedger(manualEntry("u1", "1001", reconcileDay.AddDate(0, 0, 1)))
	closer := store.addLedger(manualEntry("u1", "1001", reconcileDay.Add(-12*time.Hour)))

	dup, err := NewReconciler(store).FindDuplicate(context.Background(), "u1", factFor("1000", reconcileDay))
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.Equal(t, closer.ID, dup.ID)

	sameDay := store.addLedger(manualEntry("u1", "999", reconcileDay))
	dup, err = NewReconciler(store).FindDuplicate(context.Background(), "u1", factFor("1000", reconcileDay))
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.Equal(t, sameDay.ID, dup.ID)
}

func TestFindDuplicate_ScopedToUserAndExpenses(t *testing.T) {
	store := &fakeStore{}
	store.addLedger(manualEntry("other", "500", reconcileDay))
	income := manualEntry("u1", "500", reconcileDay)
	income.Type = ledgerdomain.EntryTypeIncome
	store.addLedger(income)

	dup, err := NewReconciler(store).FindDuplicate(context.Background(), "u1", factFor("500", reconcileDay))
	require.NoError(t, err)
	assert.Nil(t, dup)
}

func TestFindDuplicate_NoAmount(t *testing.T) {
	dup, err := NewReconciler(&fakeStore{}).FindDuplicate(context.Background(), "u1", &domain.ExtractedFact{})
	require.NoError(t, err)
	assert.Nil(t, dup)
}
