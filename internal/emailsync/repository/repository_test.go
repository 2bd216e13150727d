package repository

import (
	"context"
	"testing"
	"time"

	"mailledger-backend/internal/emailsync/domain"
	ledgerdomain "mailledger-backend/internal/ledger/domain"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testNow = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// Every connection to :memory: is its own database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&domain.SyncSettings{},
		&domain.ImportedTransaction{},
		&domain.SkippedMessage{},
		&ledgerdomain.LedgerEntry{},
	))
	return db
}

func importedRecord(userID, messageID, amount string) *domain.ImportedTransaction {
	return &domain.ImportedTransaction{
		UserID:          userID,
		MessageID:       messageID,
		Subject:         "Transaction alert",
		Amount:          decimal.RequireFromString(amount),
		MerchantName:    "Swiggy",
		Category:        "Food",
		TransactionDate: testNow,
	}
}

func autoEntry(userID, messageID, amount string) *ledgerdomain.LedgerEntry {
	return &ledgerdomain.LedgerEntry{
		UserID:          userID,
		Type:            ledgerdomain.EntryTypeExpense,
		Amount:          decimal.RequireFromString(amount),
		Description:     "Swiggy",
		Date:            testNow,
		IsAutoGenerated: true,
		SourceType:      ledgerdomain.SourceTypeEmail,
		SourceRef:       messageID,
	}
}

func TestIngestionWriter_WritesRecordAndLinkedEntry(t *testing.T) {
	db := newTestDB(t)
	writer := NewIngestionWriter(db)

	record := importedRecord("u1", "m1", "1249.50")
	entry := autoEntry("u1", "m1", "1249.50")
	created, err := writer.Write(context.Background(), record, entry)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotEmpty(t, record.ID)
	require.NotEmpty(t, entry.ID)

	var stored domain.ImportedTransaction
	require.NoError(t, db.First(&stored, "id = ?", record.ID).Error)
	assert.True(t, stored.IsProcessed)
	require.NotNil(t, stored.LinkedLedgerEntryID)
	assert.Equal(t, entry.ID, *stored.LinkedLedgerEntryID)
	assert.True(t, decimal.RequireFromString("1249.50").Equal(stored.Amount))

	var entries []ledgerdomain.LedgerEntry
	require.NoError(t, db.Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, "m1", entries[0].SourceRef)
	assert.True(t, entries[0].IsAutoGenerated)
}

func TestIngestionWriter_SecondWriteOfMessageIsNoop(t *testing.T) {
	db := newTestDB(t)
	writer := NewIngestionWriter(db)

	created, err := writer.Write(context.Background(), importedRecord("u1", "m1", "250"), autoEntry("u1", "m1", "250"))
	require.NoError(t, err)
	require.True(t, created)

	created, err = writer.Write(context.Background(), importedRecord("u1", "m1", "250"), autoEntry("u1", "m1", "250"))
	require.NoError(t, err)
	assert.False(t, created)

	var records, entries int64
	require.NoError(t, db.Model(&domain.ImportedTransaction{}).Count(&records).Error)
	require.NoError(t, db.Model(&ledgerdomain.LedgerEntry{}).Count(&entries).Error)
	assert.Equal(t, int64(1), records)
	assert.Equal(t, int64(1), entries, "no second ledger entry for the same message")

	// The key is per user
	created, err = writer.Write(context.Background(), importedRecord("u2", "m1", "250"), autoEntry("u2", "m1", "250"))
	require.NoError(t, err)
	assert.True(t, created)
}

func TestIngestionWriter_DuplicateRecordHasNoEntry(t *testing.T) {
	db := newTestDB(t)
	writer := NewIngestionWriter(db)

	manualID := "manual-1"
	record := importedRecord("u1", "m1", "495")
	record.IsDuplicate = true
	record.DuplicateOfID = &manualID

	created, err := writer.Write(context.Background(), record, nil)
	require.NoError(t, err)
	assert.True(t, created)

	var stored domain.ImportedTransaction
	require.NoError(t, db.First(&stored, "message_id = ?", "m1").Error)
	assert.True(t, stored.IsDuplicate)
	assert.False(t, stored.IsProcessed)
	assert.Nil(t, stored.LinkedLedgerEntryID)
	require.NotNil(t, stored.DuplicateOfID)
	assert.Equal(t, manualID, *stored.DuplicateOfID)

	var entries int64
	require.NoError(t, db.Model(&ledgerdomain.LedgerEntry{}).Count(&entries).Error)
	assert.Zero(t, entries)
}

func TestImportedTransactionRepository_FilterUnseen(t *testing.T) {
	db := newTestDB(t)
	repo := NewImportedTransactionRepository(db)
	writer := NewIngestionWriter(db)
	ctx := context.Background()

	_, err := writer.Write(ctx, importedRecord("u1", "imported", "10"), nil)
	require.NoError(t, err)
	_, err = writer.Write(ctx, importedRecord("u2", "other-user", "10"), nil)
	require.NoError(t, err)
	require.NoError(t, repo.MarkNoAmount(ctx, "u1", "no-amount"))
	require.NoError(t, repo.RecordFailure(ctx, "u1", "failing", "timeout"))
	for i := 0; i < domain.MaxMessageAttempts; i++ {
		require.NoError(t, repo.RecordFailure(ctx, "u1", "dead", "not found"))
	}

	unseen, err := repo.FilterUnseen(ctx, "u1", []string{"new", "imported", "no-amount", "failing", "dead", "other-user"})
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "failing", "other-user"}, unseen)

	empty, err := repo.FilterUnseen(ctx, "u1", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestImportedTransactionRepository_RecordFailureCountsAttempts(t *testing.T) {
	db := newTestDB(t)
	repo := NewImportedTransactionRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.RecordFailure(ctx, "u1", "m1", "timeout"))
	require.NoError(t, repo.RecordFailure(ctx, "u1", "m1", "connection reset"))

	var skipped domain.SkippedMessage
	require.NoError(t, db.First(&skipped, "user_id = ? AND message_id = ?", "u1", "m1").Error)
	assert.Equal(t, domain.SkipReasonFailed, skipped.Reason)
	assert.Equal(t, 2, skipped.Attempts)
	assert.Equal(t, "connection reset", skipped.LastError)
	assert.False(t, skipped.Settled())

	// A later run that reads the message but finds no amount settles it
	require.NoError(t, repo.MarkNoAmount(ctx, "u1", "m1"))
	require.NoError(t, db.First(&skipped, "user_id = ? AND message_id = ?", "u1", "m1").Error)
	assert.Equal(t, domain.SkipReasonNoAmount, skipped.Reason)
	assert.True(t, skipped.Settled())
}

func TestImportedTransactionRepository_ExistsByMessageID(t *testing.T) {
	db := newTestDB(t)
	repo := NewImportedTransactionRepository(db)
	ctx := context.Background()

	_, err := NewIngestionWriter(db).Write(ctx, importedRecord("u1", "m1", "10"), nil)
	require.NoError(t, err)

	exists, err := repo.ExistsByMessageID(ctx, "u1", "m1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByMessageID(ctx, "u2", "m1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSyncSettingsRepository_Lease(t *testing.T) {
	db := newTestDB(t)
	repo := NewSyncSettingsRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&domain.SyncSettings{
		UserID:       "u1",
		EmailAddress: "U1@example.com",
		IsEnabled:    true,
		AccessToken:  "access",
		RefreshToken: "refresh",
		SyncStatus:   domain.SyncStatusIdle,
	}).Error)

	staleAfter := 30 * time.Minute
	acquired, err := repo.TryBeginSync(ctx, "u1", testNow, testNow.Add(-staleAfter))
	require.NoError(t, err)
	assert.True(t, acquired)

	later := testNow.Add(time.Minute)
	acquired, err = repo.TryBeginSync(ctx, "u1", later, later.Add(-staleAfter))
	require.NoError(t, err)
	assert.False(t, acquired, "a live lease is not taken twice")

	muchLater := testNow.Add(time.Hour)
	acquired, err = repo.TryBeginSync(ctx, "u1", muchLater, muchLater.Add(-staleAfter))
	require.NoError(t, err)
	assert.True(t, acquired, "a stale lease is taken over")

	advanceTo := muchLater
	require.NoError(t, repo.CompleteSync(ctx, "u1", &advanceTo, 3))
	require.NoError(t, repo.CompleteSync(ctx, "u1", nil, 2))

	settings, err := repo.FindByEmailAddress(ctx, "u1@EXAMPLE.com")
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Equal(t, domain.SyncStatusIdle, settings.SyncStatus)
	assert.Nil(t, settings.SyncStartedAt)
	assert.Equal(t, 5, settings.TotalSyncedCount)
	require.NotNil(t, settings.LastSyncAt)
	assert.True(t, muchLater.Equal(*settings.LastSyncAt))

	acquired, err = repo.TryBeginSync(ctx, "missing", testNow, testNow)
	require.NoError(t, err)
	assert.False(t, acquired)
}
