package importer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/enough-app/enough/internal/ledger"
	"github.com/enough-app/enough/internal/model"
)

// DefaultDateLayouts are tried in order when no layouts are configured.
// Day-first layouts come before anything month-first could match.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/01/2006",
	"2/1/2006",
	"02/01/06",
	"02 Jan 2006",
	"2 Jan 2006",
}

var (
	errEmpty         = errors.New("empty")
	errBadDate       = errors.New("unrecognised date")
	errBadAmount     = errors.New("not a number")
	errZeroAmount    = errors.New("amount is zero")
	errFractionCents = errors.New("more than two decimal places")
)

// RowParseError reports why one source row could not be parsed.
type RowParseError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e RowParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
	if e.Value == "" {
		return fmt.Sprintf("row %d: %s: %v", e.Row, e.Field, e.Err)
	}
	return fmt.Sprintf("row %d: %s %q: %v", e.Row, e.Field, e.Value, e.Err)
}

func (e RowParseError) Unwrap() error { return e.Err }

// ParseDate parses s with the first layout that accepts it.
func ParseDate(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmpty
	}
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.DateOf(t), nil
		}
	}
	return time.Time{}, errBadDate
}

// ParseAmount reads a bank amount: "-4.50", "$1,234.00", "(12.00)", "+3".
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errEmpty
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	switch {
	case strings.HasPrefix(s, "-"):
		negative = !negative
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "", "£", "", "€", "").Replace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "AUD"), "A")
	// A sign may also follow the currency symbol: "$-4.00".
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}

	d, err := decimal.NewFromString(s)
	if err != nil || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return decimal.Zero, errBadAmount
	}
	if !ledger.HasCents(d) {
		return decimal.Zero, errFractionCents
	}
	if d.IsZero() {
		return decimal.Zero, errZeroAmount
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ParseRow converts a raw row. The description is kept verbatim apart from
// surrounding whitespace, since duplicate detection compares it exactly.
func ParseRow(raw RawRow, layouts []string) (model.ParsedTransaction, error) {
	if raw.Err != nil {
		return model.ParsedTransaction{}, RowParseError{Row: raw.Line, Err: raw.Err}
	}
	date, err := ParseDate(raw.Date, layouts)
	if err != nil {
		return model.ParsedTransaction{}, RowParseError{Row: raw.Line, Field: "date", Value: raw.Date, Err: err}
	}
	desc := strings.TrimSpace(raw.Description)
	if desc == "" {
		return model.ParsedTransaction{}, RowParseError{Row: raw.Line, Field: "description", Err: errEmpty}
	}
	amount, err := ParseAmount(raw.Amount)
	if err != nil {
		return model.ParsedTransaction{}, RowParseError{Row: raw.Line, Field: "amount", Value: raw.Amount, Err: err}
	}
	return model.ParsedTransaction{
		Row:         raw.Line,
		Date:        date,
		Description: desc,
		Amount:      amount,
	}, nil
}
