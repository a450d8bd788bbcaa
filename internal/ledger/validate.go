package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/enough-app/enough/internal/model"
	"github.com/enough-app/enough/internal/pattern"
)

// ValidationError describes a single rule a record breaks.
type ValidationError struct {
	Field       string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Description)
}

// AccountChecker tests whether an account exists.
type AccountChecker interface {
	Exists(id uuid.UUID) bool
}

var hundred = decimal.NewFromInt(100)

// HasCents reports whether d has at most two decimal places.
func HasCents(d decimal.Decimal) bool {
	scaled := d.Mul(hundred)
	return scaled.Equal(scaled.Floor())
}

// ValidateTransaction checks a transaction before it is written.
// accounts may be nil to skip the existence check.
func ValidateTransaction(t model.Transaction, accounts AccountChecker) []ValidationError {
	var errs []ValidationError
	if t.ID == uuid.Nil {
		errs = append(errs, ValidationError{Field: "id", Description: "missing"})
	}
	if t.AccountID == uuid.Nil {
		errs = append(errs, ValidationError{Field: "account", Description: "missing"})
	} else if accounts != nil && !accounts.Exists(t.AccountID) {
		errs = append(errs, ValidationError{Field: "account", Description: fmt.Sprintf("unknown account %s", t.AccountID)})
	}
	if t.Date.IsZero() {
		errs = append(errs, ValidationError{Field: "date", Description: "missing"})
	} else if !t.Date.Equal(model.DateOf(t.Date)) {
		errs = append(errs, ValidationError{Field: "date", Description: fmt.Sprintf("%s is not a calendar date", t.Date.Format("2006-01-02T15:04:05Z07:00"))})
	}
	if strings.TrimSpace(t.RawDescription) == "" {
		errs = append(errs, ValidationError{Field: "description", Description: "empty"})
	}
	if t.Amount.IsZero() {
		errs = append(errs, ValidationError{Field: "amount", Description: "must be non-zero"})
	} else if !HasCents(t.Amount) {
		errs = append(errs, ValidationError{Field: "amount", Description: fmt.Sprintf("%s has more than 2 decimal places", t.Amount)})
	}
	if t.ReviewedAt != nil && !t.Reviewed {
		errs = append(errs, ValidationError{Field: "reviewed_at", Description: "set on an unreviewed transaction"})
	}
	return errs
}

// ValidateAccount checks an account before it is written.
func ValidateAccount(a model.Account) []ValidationError {
	var errs []ValidationError
	if a.ID == uuid.Nil {
		errs = append(errs, ValidationError{Field: "id", Description: "missing"})
	}
	if strings.TrimSpace(a.Name) == "" {
		errs = append(errs, ValidationError{Field: "name", Description: "empty"})
	}
	if !a.Bank.Valid() {
		errs = append(errs, ValidationError{Field: "bank", Description: fmt.Sprintf("unknown bank %q", a.Bank)})
	}
	if !a.Kind.Valid() {
		errs = append(errs, ValidationError{Field: "kind", Description: fmt.Sprintf("unknown account kind %q", a.Kind)})
	}
	return errs
}

// ValidateMerchant checks a merchant before it is written. A merchant with
// an empty pattern could never match, so it is rejected.
func ValidateMerchant(m model.Merchant) []ValidationError {
	var errs []ValidationError
	if m.ID == uuid.Nil {
		errs = append(errs, ValidationError{Field: "id", Description: "missing"})
	}
	if pattern.IsEmpty(m.RawPattern) {
		errs = append(errs, ValidationError{Field: "pattern", Description: "empty"})
	}
	if strings.TrimSpace(m.DisplayName) == "" {
		errs = append(errs, ValidationError{Field: "display_name", Description: "empty"})
	}
	return errs
}

// ValidateCategory checks a category before it is written.
func ValidateCategory(c model.Category) []ValidationError {
	var errs []ValidationError
	if c.ID == uuid.Nil {
		errs = append(errs, ValidationError{Field: "id", Description: "missing"})
	}
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, ValidationError{Field: "name", Description: "empty"})
	}
	return errs
}

// Join folds validation errors into a single error, or nil when there are none.
func Join(errs []ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	wrapped := make([]error, len(errs))
	for i, e := range errs {
		wrapped[i] = e
	}
	return fmt.Errorf("validation failed: %w", errors.Join(wrapped...))
}
