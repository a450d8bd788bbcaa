package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/enough-app/enough/internal/budget"
	"github.com/enough-app/enough/internal/ledger"
	"github.com/enough-app/enough/internal/logging"
	"github.com/enough-app/enough/internal/merchant"
	"github.com/enough-app/enough/internal/model"
)

// Viewer opens consistent read snapshots. ledger.Store satisfies it.
type Viewer interface {
	View(ctx context.Context, fn func(r ledger.Reader) error) error
}

// Options tunes an Overview.
type Options struct {
	MonthlyTarget decimal.Decimal
	TopN          int // categories shown; default 6
	RecentN       int // recent transactions shown; default 5
}

// RecentTransaction is a reviewed transaction with display names resolved.
type RecentTransaction struct {
	Transaction  model.Transaction
	DisplayName  string
	CategoryName string
}

// AccountBalance is an account with its reviewed balance.
type AccountBalance struct {
	Account model.Account
	Balance decimal.Decimal
}

// Overview is the month-to-date summary of the whole ledger.
type Overview struct {
	Reference     time.Time
	Spending      decimal.Decimal
	Budget        budget.Projection
	TopCategories []CategoryTotal
	Recent        []RecentTransaction
	NeedsReview   int
	Balances      []AccountBalance
	TotalBalance  decimal.Decimal
}

// Build loads one snapshot of the ledger and summarizes it as of ref.
func Build(ctx context.Context, v Viewer, ref time.Time, opts Options) (Overview, error) {
	if opts.TopN == 0 {
		opts.TopN = 6
	}
	if opts.RecentN == 0 {
		opts.RecentN = 5
	}

	var (
		accounts   []model.Account
		categories []model.Category
		merchants  []model.Merchant
		txns       []model.Transaction
	)
	err := v.View(ctx, func(r ledger.Reader) error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			accounts, err = r.Accounts(gctx)
			return err
		})
		g.Go(func() (err error) {
			categories, err = r.Categories(gctx)
			return err
		})
		g.Go(func() (err error) {
			merchants, err = r.Merchants(gctx)
			return err
		})
		g.Go(func() (err error) {
			txns, err = r.Transactions(gctx, ledger.Query{})
			return err
		})
		return g.Wait()
	})
	if err != nil {
		return Overview{}, fmt.Errorf("loading ledger: %w", err)
	}

	spending := MonthSpending(txns, ref)
	o := Overview{
		Reference:     ref,
		Spending:      spending,
		Budget:        budget.ForDate(spending, opts.MonthlyTarget, ref),
		TopCategories: CategoryTotals(txns, categories, ref, opts.TopN),
		Recent:        recent(txns, categories, merchants, opts.RecentN),
		TotalBalance:  decimal.Zero,
	}

	byAccount := make(map[uuid.UUID][]model.Transaction, len(accounts))
	for _, t := range txns {
		if t.NeedsReview() {
			o.NeedsReview++
		}
		byAccount[t.AccountID] = append(byAccount[t.AccountID], t)
	}
	for _, a := range accounts {
		bal := model.Balance(byAccount[a.ID])
		o.Balances = append(o.Balances, AccountBalance{Account: a, Balance: bal})
		o.TotalBalance = o.TotalBalance.Add(bal)
	}

	logging.FromContext(ctx).Debug("overview built",
		"transactions", len(txns),
		"spending", spending.StringFixed(2),
		"status", o.Budget.Status,
	)
	return o, nil
}

// recent returns the newest n reviewed transactions. txns must be sorted
// newest first, as ledger readers return them.
func recent(txns []model.Transaction, categories []model.Category, merchants []model.Merchant, n int) []RecentTransaction {
	names := make(map[uuid.UUID]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	known := make(map[uuid.UUID]model.Merchant, len(merchants))
	for _, m := range merchants {
		known[m.ID] = m
	}

	var out []RecentTransaction
	for _, t := range txns {
		if len(out) == n {
			break
		}
		if !t.Reviewed {
			continue
		}
		rt := RecentTransaction{Transaction: t, DisplayName: merchant.DisplayName(t, known)}
		if t.CategoryID != nil {
			rt.CategoryName = names[*t.CategoryID]
		}
		out = append(out, rt)
	}
	return out
}
