package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/enough-app/enough/internal/accounts"
	"github.com/enough-app/enough/internal/ledger"
	"github.com/enough-app/enough/internal/model"
)

const dateLayout = "2006-01-02"

// parseDay reads a YYYY-MM-DD flag value. Empty returns fallback.
func parseDay(s string, fallback time.Time) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return model.DateOf(fallback), nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

// resolveAccount finds an account by name, ID or prefix. An empty ref
// picks the only active account.
func resolveAccount(ctx context.Context, r ledger.Reader, ref string) (model.Account, error) {
	svc, err := accounts.Load(ctx, r)
	if err != nil {
		return model.Account{}, err
	}
	return svc.Resolve(ref)
}

// buildQuery turns --account, --from and --to into a ledger query. to is
// inclusive.
func buildQuery(ctx context.Context, r ledger.Reader, account, from, to string) (ledger.Query, error) {
	var q ledger.Query
	if account != "" {
		acct, err := resolveAccount(ctx, r, account)
		if err != nil {
			return q, err
		}
		q.AccountID = &acct.ID
	}
	if from != "" {
		d, err := parseDay(from, time.Time{})
		if err != nil {
			return q, err
		}
		q.From = d
	}
	if to != "" {
		d, err := parseDay(to, time.Time{})
		if err != nil {
			return q, err
		}
		q.To = d.AddDate(0, 0, 1)
	}
	return q, nil
}

// resolveTransaction finds a transaction by full ID or unambiguous prefix.
func resolveTransaction(ctx context.Context, r ledger.Reader, ref string) (model.Transaction, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if id, err := uuid.Parse(ref); err == nil {
		return r.Transaction(ctx, id)
	}
	txns, err := r.Transactions(ctx, ledger.Query{})
	if err != nil {
		return model.Transaction{}, err
	}
	var found []model.Transaction
	for _, t := range txns {
		if strings.HasPrefix(t.ID.String(), ref) {
			found = append(found, t)
		}
	}
	return pick(found, "transaction", ref)
}

// resolveMerchant finds a merchant by ID prefix or pattern.
func resolveMerchant(ctx context.Context, r ledger.Reader, ref string) (model.Merchant, error) {
	merchants, err := r.Merchants(ctx)
	if err != nil {
		return model.Merchant{}, err
	}
	ref = strings.TrimSpace(ref)
	for _, m := range merchants {
		if strings.EqualFold(m.RawPattern, ref) {
			return m, nil
		}
	}
	var found []model.Merchant
	for _, m := range merchants {
		if ref != "" && strings.HasPrefix(m.ID.String(), strings.ToLower(ref)) {
			found = append(found, m)
		}
	}
	return pick(found, "merchant", ref)
}

func pick[T any](found []T, what, ref string) (T, error) {
	var zero T
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return zero, fmt.Errorf("%s %q: %w", what, ref, ledger.ErrNotFound)
	default:
		return zero, fmt.Errorf("%s %q is ambiguous (%d matches): %w", what, ref, len(found), ledger.ErrConflict)
	}
}
