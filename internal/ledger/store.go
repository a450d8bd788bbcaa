// Package ledger defines the storage contract for accounts, categories,
// merchants and transactions.
//
// The import pipeline is the only bulk writer. It works through an ImportTx,
// which commits once at the end so readers never observe a partial batch.
// Readers that need several related reads use View to get a consistent
// snapshot.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/enough-app/enough/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a record with the same identity exists.
	ErrConflict = errors.New("already exists")
	// ErrMissingReference is returned when a record points at an account,
	// merchant or category that does not exist.
	ErrMissingReference = errors.New("referenced record does not exist")
	// ErrUnavailable is returned when the store itself cannot serve requests.
	ErrUnavailable = errors.New("ledger store unavailable")
)

// Query filters transaction scans. Zero values mean "no filter".
type Query struct {
	AccountID    *uuid.UUID
	CategoryID   *uuid.UUID
	From         time.Time // inclusive
	To           time.Time // exclusive
	ReviewedOnly bool
}

// Matches reports whether t passes every filter in q.
func (q Query) Matches(t model.Transaction) bool {
	if q.AccountID != nil && t.AccountID != *q.AccountID {
		return false
	}
	if q.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *q.CategoryID) {
		return false
	}
	if !q.From.IsZero() && t.Date.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !t.Date.Before(q.To) {
		return false
	}
	if q.ReviewedOnly && !t.Reviewed {
		return false
	}
	return true
}

// Reader is the read side of the ledger.
type Reader interface {
	Account(ctx context.Context, id uuid.UUID) (model.Account, error)
	Accounts(ctx context.Context) ([]model.Account, error)
	Categories(ctx context.Context) ([]model.Category, error)
	Merchants(ctx context.Context) ([]model.Merchant, error)
	Transaction(ctx context.Context, id uuid.UUID) (model.Transaction, error)
	// Transactions returns matches ordered by date descending.
	Transactions(ctx context.Context, q Query) ([]model.Transaction, error)
}

// Writer mutates single records.
type Writer interface {
	CreateAccount(ctx context.Context, a model.Account) error
	UpdateAccount(ctx context.Context, a model.Account) error
	// DeleteAccount removes the account and every transaction it owns.
	DeleteAccount(ctx context.Context, id uuid.UUID) error

	CreateCategory(ctx context.Context, c model.Category) error
	// DeleteCategory clears the category from transactions and merchants.
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	CreateMerchant(ctx context.Context, m model.Merchant) error
	UpdateMerchant(ctx context.Context, m model.Merchant) error
	// DeleteMerchant clears the merchant from transactions; it never deletes them.
	DeleteMerchant(ctx context.Context, id uuid.UUID) error

	InsertTransaction(ctx context.Context, t model.Transaction) error
	UpdateTransaction(ctx context.Context, t model.Transaction) error
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
}

// ImportTx is a single write batch. A failed Insert leaves the batch usable;
// nothing is visible to readers until Commit.
type ImportTx interface {
	Account(ctx context.Context, id uuid.UUID) (model.Account, error)
	Transactions(ctx context.Context, q Query) ([]model.Transaction, error)
	Merchants(ctx context.Context) ([]model.Merchant, error)
	Insert(ctx context.Context, t model.Transaction) error
	Commit() error
	Rollback() error
}

// Store is a complete ledger backend.
type Store interface {
	Reader
	Writer
	// View runs fn against a consistent snapshot. fn may call the Reader
	// from several goroutines.
	View(ctx context.Context, fn func(r Reader) error) error
	// BeginImport opens the write batch used by the import pipeline.
	BeginImport(ctx context.Context) (ImportTx, error)
	Close() error
}
