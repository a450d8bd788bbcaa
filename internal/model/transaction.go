package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is a single ledger entry belonging to one account.
type Transaction struct {
	ID             uuid.UUID
	AccountID      uuid.UUID
	Date           time.Time       // calendar date, UTC midnight
	Amount         decimal.Decimal // negative = outflow, positive = inflow
	RawDescription string
	Manual         bool
	Reviewed       bool
	ImportedAt     time.Time
	ReviewedAt     *time.Time
	MerchantID     *uuid.UUID
	CategoryID     *uuid.UUID
}

// NeedsReview reports whether the transaction is unreviewed and uncategorized.
func (t Transaction) NeedsReview() bool {
	return !t.Reviewed && t.CategoryID == nil
}

// IsOutflow reports whether money left the account.
func (t Transaction) IsOutflow() bool {
	return t.Amount.IsNegative()
}

// Balance sums the amounts of reviewed transactions. Unreviewed
// transactions never contribute.
func Balance(txns []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txns {
		if !t.Reviewed {
			continue
		}
		total = total.Add(t.Amount)
	}
	return total
}

// ParsedTransaction is a validated row from an import source. It is never
// persisted directly.
type ParsedTransaction struct {
	Row         int // 1-based line in the source
	Date        time.Time
	Description string
	Amount      decimal.Decimal
}

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first day of t's calendar month at UTC midnight.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}
