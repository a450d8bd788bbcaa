// Package report rolls the ledger up into monthly spending summaries.
//
// Only reviewed transactions count. Spending is the absolute value of
// outflows; inflows never offset it.
package report

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/enough-app/enough/internal/model"
)

// Period is a half-open date range [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside p.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// CurrentPeriod runs from the first of ref's month through ref's date.
func CurrentPeriod(ref time.Time) Period {
	return Period{Start: model.MonthStart(ref), End: model.DateOf(ref).AddDate(0, 0, 1)}
}

// PreviousPeriod is the whole calendar month before ref's month.
func PreviousPeriod(ref time.Time) Period {
	start := model.MonthStart(ref)
	return Period{Start: start.AddDate(0, -1, 0), End: start}
}

// counts reports whether t contributes to spending.
func counts(t model.Transaction) bool {
	return t.Reviewed && t.IsOutflow()
}

// MonthSpending sums reviewed outflows in the current period of ref.
func MonthSpending(txns []model.Transaction, ref time.Time) decimal.Decimal {
	period := CurrentPeriod(ref)
	total := decimal.Zero
	for _, t := range txns {
		if counts(t) && period.Contains(t.Date) {
			total = total.Add(t.Amount.Abs())
		}
	}
	return total
}

// CategoryTotal is one category's spending this period and last.
type CategoryTotal struct {
	Category model.Category
	Current  decimal.Decimal
	Previous *decimal.Decimal // nil when nothing was spent last period
	Trend    Trend
}

// CategoryTotals returns the n categories with the most spending in the
// current period of ref, largest first. Ties fall back to the category
// sort order, then ID. Transactions in unknown categories are ignored.
func CategoryTotals(txns []model.Transaction, categories []model.Category, ref time.Time, n int) []CategoryTotal {
	if n <= 0 {
		return nil
	}
	known := make(map[uuid.UUID]model.Category, len(categories))
	for _, c := range categories {
		known[c.ID] = c
	}

	current, previous := PeriodTotals(txns, ref)

	out := make([]CategoryTotal, 0, len(current))
	for id, amount := range current {
		c, ok := known[id]
		if !ok {
			continue
		}
		ct := CategoryTotal{Category: c, Current: amount}
		if prev, ok := previous[id]; ok && prev.IsPositive() {
			ct.Previous = &prev
		}
		ct.Trend = ClassifyTrend(ct.Current, ct.Previous)
		out = append(out, ct)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Current.Equal(b.Current) {
			return a.Current.GreaterThan(b.Current)
		}
		if a.Category.SortOrder != b.Category.SortOrder {
			return a.Category.SortOrder < b.Category.SortOrder
		}
		return a.Category.ID.String() < b.Category.ID.String()
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// PeriodTotals sums categorized reviewed outflows per category for the
// current and previous periods of ref.
func PeriodTotals(txns []model.Transaction, ref time.Time) (current, previous map[uuid.UUID]decimal.Decimal) {
	cur, prev := CurrentPeriod(ref), PreviousPeriod(ref)
	current = make(map[uuid.UUID]decimal.Decimal)
	previous = make(map[uuid.UUID]decimal.Decimal)
	for _, t := range txns {
		if !counts(t) || t.CategoryID == nil {
			continue
		}
		id := *t.CategoryID
		switch {
		case cur.Contains(t.Date):
			current[id] = current[id].Add(t.Amount.Abs())
		case prev.Contains(t.Date):
			previous[id] = previous[id].Add(t.Amount.Abs())
		}
	}
	return current, previous
}
