package accounts

import (
	"fmt"
	"strings"
	"time"

	"github.com/enough-app/enough/internal/id"
	"github.com/enough-app/enough/internal/model"
)

// New returns an active account with the default color.
func New(name string, bank model.BankType, kind model.AccountKind, sortOrder int, now time.Time) model.Account {
	return model.Account{
		ID:        id.New(),
		Name:      strings.TrimSpace(name),
		Bank:      bank,
		Kind:      kind,
		Color:     model.DefaultAccountColor,
		SortOrder: sortOrder,
		Active:    true,
		CreatedAt: now.UTC(),
	}
}

// ParseBank accepts a bank code or display name in any case. Empty means
// BankOther.
func ParseBank(s string) (model.BankType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.BankOther, nil
	}
	for _, b := range model.Banks {
		if strings.EqualFold(s, string(b)) || strings.EqualFold(s, b.DisplayName()) {
			return b, nil
		}
	}
	return "", fmt.Errorf("unknown bank %q", s)
}

// ParseKind accepts a kind or its display name. Empty means checking.
func ParseKind(s string) (model.AccountKind, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.AccountChecking, nil
	}
	for _, k := range []model.AccountKind{model.AccountChecking, model.AccountSavings, model.AccountCredit} {
		if strings.EqualFold(s, string(k)) || strings.EqualFold(s, k.DisplayName()) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown account kind %q", s)
}
