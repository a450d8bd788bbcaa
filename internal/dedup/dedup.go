// Package dedup decides whether an incoming transaction is already in the
// ledger.
//
// Two transactions are duplicates when their date, amount and raw
// description are exactly equal. There is no fuzzy tolerance: re-importing
// an identical file inserts nothing, and two genuine same-day charges with
// the same amount and description are indistinguishable.
package dedup

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/enough-app/enough/internal/model"
)

// IsDuplicate reports whether a and b describe the same bank event.
func IsDuplicate(a, b model.Transaction) bool {
	return a.Date.Equal(b.Date) &&
		a.Amount.Equal(b.Amount) &&
		a.RawDescription == b.RawDescription
}

// key is the comparable form of the fields IsDuplicate inspects.
type key struct {
	date        string
	amount      string
	description string
}

func keyOf(date time.Time, amount decimal.Decimal, description string) key {
	return key{
		date:        date.UTC().Format(time.RFC3339Nano),
		amount:      amount.String(), // trailing zeros trimmed: -4.00 and -4 collide
		description: description,
	}
}

// Index answers IsDuplicate against a set of transactions in constant time.
type Index struct {
	seen map[key]struct{}
}

// NewIndex builds an Index over existing transactions.
func NewIndex(existing []model.Transaction) *Index {
	idx := &Index{seen: make(map[key]struct{}, len(existing))}
	for _, t := range existing {
		idx.Add(t)
	}
	return idx
}

// Add records t so later lookups treat it as existing.
func (i *Index) Add(t model.Transaction) {
	i.seen[keyOf(t.Date, t.Amount, t.RawDescription)] = struct{}{}
}

// Contains reports whether a transaction equal to t is indexed.
func (i *Index) Contains(t model.Transaction) bool {
	_, ok := i.seen[keyOf(t.Date, t.Amount, t.RawDescription)]
	return ok
}

// ContainsParsed reports whether p would duplicate an indexed transaction.
func (i *Index) ContainsParsed(p model.ParsedTransaction) bool {
	_, ok := i.seen[keyOf(p.Date, p.Amount, p.Description)]
	return ok
}

// Len returns the number of distinct indexed transactions.
func (i *Index) Len() int {
	return len(i.seen)
}
