// Package review covers the manual side of the ledger: entering
// transactions by hand, accepting imported ones and assigning categories.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/enough-app/enough/internal/id"
	"github.com/enough-app/enough/internal/ledger"
	"github.com/enough-app/enough/internal/logging"
	"github.com/enough-app/enough/internal/merchant"
	"github.com/enough-app/enough/internal/model"
)

// ErrNoPattern is returned when a merchant cannot be derived from a
// transaction description.
var ErrNoPattern = errors.New("description has no merchant pattern")

// Service applies review actions to a ledger.
type Service struct {
	store ledger.Store
	now   func() time.Time
}

// NewService returns a Service. now defaults to the wall clock in UTC.
func NewService(store ledger.Store, now func() time.Time) *Service {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{store: store, now: now}
}

// ManualEntry is a transaction typed in by the user.
type ManualEntry struct {
	AccountID   uuid.UUID
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	CategoryID  *uuid.UUID
}

// AddManual records a hand-entered transaction. It is reviewed on entry
// and never checked for duplicates.
func (s *Service) AddManual(ctx context.Context, e ManualEntry) (model.Transaction, error) {
	now := s.now()
	t := model.Transaction{
		ID:             id.New(),
		AccountID:      e.AccountID,
		Date:           model.DateOf(e.Date),
		Amount:         e.Amount,
		RawDescription: strings.TrimSpace(e.Description),
		Manual:         true,
		Reviewed:       true,
		ImportedAt:     now,
		ReviewedAt:     &now,
		CategoryID:     e.CategoryID,
	}
	if err := s.store.InsertTransaction(ctx, t); err != nil {
		return model.Transaction{}, fmt.Errorf("adding transaction: %w", err)
	}
	logging.FromContext(ctx).Info("manual transaction added", "id", id.Short(t.ID), "amount", t.Amount.StringFixed(2))
	return t, nil
}

// Pending returns unreviewed transactions, newest first. A nil account
// means every account.
func (s *Service) Pending(ctx context.Context, accountID *uuid.UUID) ([]model.Transaction, error) {
	txns, err := s.store.Transactions(ctx, ledger.Query{AccountID: accountID})
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	var out []model.Transaction
	for _, t := range txns {
		if !t.Reviewed {
			out = append(out, t)
		}
	}
	return out, nil
}

// Accept marks a transaction reviewed. Accepting twice keeps the first
// review time.
func (s *Service) Accept(ctx context.Context, txnID uuid.UUID) (model.Transaction, error) {
	t, err := s.store.Transaction(ctx, txnID)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("loading transaction: %w", err)
	}
	if t.Reviewed {
		return t, nil
	}
	s.markReviewed(&t)
	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return model.Transaction{}, fmt.Errorf("accepting transaction: %w", err)
	}
	return t, nil
}

// Remember asks Categorize to also teach the ledger the transaction's
// merchant, so future imports get the same category.
type Remember struct {
	DisplayName string // empty uses the cleaned description
}

// Categorize assigns a category and marks the transaction reviewed. With
// remember set, the transaction's merchant gets categoryID as its default;
// a merchant is created from the description when none is attached.
func (s *Service) Categorize(ctx context.Context, txnID, categoryID uuid.UUID, remember *Remember) (model.Transaction, error) {
	t, err := s.store.Transaction(ctx, txnID)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("loading transaction: %w", err)
	}
	t.CategoryID = id.Ptr(categoryID)
	s.markReviewed(&t)

	if remember != nil {
		m, err := s.remember(ctx, t, categoryID, remember.DisplayName)
		if err != nil {
			return model.Transaction{}, err
		}
		t.MerchantID = id.Ptr(m.ID)
	}

	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return model.Transaction{}, fmt.Errorf("categorizing transaction: %w", err)
	}
	return t, nil
}

func (s *Service) remember(ctx context.Context, t model.Transaction, categoryID uuid.UUID, name string) (model.Merchant, error) {
	if t.MerchantID != nil {
		merchants, err := s.store.Merchants(ctx)
		if err != nil {
			return model.Merchant{}, fmt.Errorf("loading merchants: %w", err)
		}
		for _, m := range merchants {
			if m.ID != *t.MerchantID {
				continue
			}
			m.DefaultCategoryID = id.Ptr(categoryID)
			if name = strings.TrimSpace(name); name != "" {
				m.DisplayName = name
			}
			if err := s.store.UpdateMerchant(ctx, m); err != nil {
				return model.Merchant{}, fmt.Errorf("updating merchant: %w", err)
			}
			return m, nil
		}
	}

	m := merchant.FromTransaction(t, name, id.Ptr(categoryID))
	if m.RawPattern == "" {
		return model.Merchant{}, fmt.Errorf("%q: %w", t.RawDescription, ErrNoPattern)
	}
	m.CreatedAt = s.now()
	if err := s.store.CreateMerchant(ctx, m); err != nil {
		return model.Merchant{}, fmt.Errorf("creating merchant: %w", err)
	}
	logging.FromContext(ctx).Info("merchant learned", "pattern", m.RawPattern, "name", m.DisplayName)
	return m, nil
}

// Uncategorize clears the category. The review flag is left alone.
func (s *Service) Uncategorize(ctx context.Context, txnID uuid.UUID) (model.Transaction, error) {
	t, err := s.store.Transaction(ctx, txnID)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("loading transaction: %w", err)
	}
	t.CategoryID = nil
	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return model.Transaction{}, fmt.Errorf("uncategorizing transaction: %w", err)
	}
	return t, nil
}

// Delete removes a transaction.
func (s *Service) Delete(ctx context.Context, txnID uuid.UUID) error {
	if err := s.store.DeleteTransaction(ctx, txnID); err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}
	return nil
}

func (s *Service) markReviewed(t *model.Transaction) {
	if t.Reviewed {
		return
	}
	now := s.now()
	t.Reviewed = true
	t.ReviewedAt = &now
}
