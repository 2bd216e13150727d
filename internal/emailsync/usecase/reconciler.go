package usecase

import (
	"context"
	"time"

	"mailledger-backend/internal/emailsync/domain"
	ledgerdomain "mailledger-backend/internal/ledger/domain"
	ledgerrepo "mailledger-backend/internal/ledger/repository"

	"github.com/shopspring/decimal"
)

// amountTolerance is the relative amount band around an extracted amount
var amountTolerance = decimal.RequireFromString("0.02")

const windowDays = 1

// reconciler implements DuplicateReconciler
type reconciler struct {
	ledgerRepo ledgerrepo.LedgerRepository
}

// NewReconciler creates a new instance of reconciler
func NewReconciler(ledgerRepo ledgerrepo.LedgerRepository) DuplicateReconciler {
	return &reconciler{ledgerRepo: ledgerRepo}
}

// FindDuplicate returns the manual expense entry dated within one day of the
// fact whose amount is within 2% of it. Auto-generated entries are never
// returned, so repeated small purchases are all imported. When several manual
// entries qualify the closest amount wins, then the closest date.
func (r *reconciler) FindDuplicate(ctx context.Context, userID string, fact *domain.ExtractedFact) (*ledgerdomain.LedgerEntry, error) {
	if !fact.HasAmount() {
		return nil, nil
	}
	amount := *fact.Amount
	delta := amount.Mul(amountTolerance)

	day := fact.TransactionDate
	candidates, err := r.ledgerRepo.FindExpensesInWindow(ctx, ledgerrepo.WindowQuery{
		UserID: userID,
		From:   day.AddDate(0, 0, -windowDays),
		// inclusive of the whole following day
		To:        day.AddDate(0, 0, windowDays+1).Add(-1),
		MinAmount: amount.Sub(delta),
		MaxAmount: amount.Add(delta),
	})
	if err != nil {
		return nil, err
	}

	var best *ledgerdomain.LedgerEntry
	for _, entry := range candidates {
		if !entry.IsManual() {
			continue
		}
		if best == nil || closer(entry, best, amount, day) {
			best = entry
		}
	}
	return best, nil
}

func closer(a, b *ledgerdomain.LedgerEntry, amount decimal.Decimal, day time.Time) bool {
	da := a.Amount.Sub(amount).Abs()
	db := b.Amount.Sub(amount).Abs()
	if !da.Equal(db) {
		return da.LessThan(db)
	}
	return absDuration(a.Date.Sub(day)) < absDuration(b.Date.Sub(day))
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
