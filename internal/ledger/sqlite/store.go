// Package sqlite is the on-disk ledger.Store, backed by mattn/go-sqlite3.
// The schema is embedded and migrated with golang-migrate on Open.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/enough-app/enough/internal/ledger"
	"github.com/enough-app/enough/internal/model"
)

func dsn(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
}

// Store is a ledger.Store over a single SQLite file.
type Store struct {
	reader
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ ledger.Store = (*Store)(nil)

// Open creates the database file if needed, applies migrations and returns
// a ready Store.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database dir: %w", err)
		}
	}
	if err := runMigrations(path); err != nil {
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, classify(err, "opening "+path)
	}

	logger.Debug("ledger opened", "path", path)
	return &Store{reader: reader{q: db}, db: db, path: path, logger: logger}, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	return s.db.Close()
}

// View runs fn inside a read transaction. The store allows one connection,
// so fn must use r and never s.
func (s *Store) View(ctx context.Context, fn func(r ledger.Reader) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err, "beginning read")
	}
	defer func() { _ = tx.Rollback() }()
	return fn(reader{q: tx})
}

func (s *Store) CreateAccount(ctx context.Context, a model.Account) error {
	if err := ledger.Join(ledger.ValidateAccount(a)); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO accounts(id, name, bank, kind, color, sort_order, active, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID.String(), a.Name, string(a.Bank), string(a.Kind), a.Color, a.SortOrder, a.Active, formatTimestamp(a.CreatedAt))
	return classify(err, "account "+a.ID.String())
}

func (s *Store) UpdateAccount(ctx context.Context, a model.Account) error {
	if err := ledger.Join(ledger.ValidateAccount(a)); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
	UPDATE accounts SET name = ?, bank = ?, kind = ?, color = ?, sort_order = ?, active = ?
	WHERE id = ?`,
		a.Name, string(a.Bank), string(a.Kind), a.Color, a.SortOrder, a.Active, a.ID.String())
	return affected(res, err, "account "+a.ID.String())
}

func (s *Store) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id.String())
	return affected(res, err, "account "+id.String())
}

func (s *Store) CreateCategory(ctx context.Context, c model.Category) error {
	if err := ledger.Join(ledger.ValidateCategory(c)); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO categories(id, name, icon, color, sort_order, is_default, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.Name, c.Icon, c.Color, c.SortOrder, c.IsDefault, formatTimestamp(c.CreatedAt))
	return classify(err, fmt.Sprintf("category %q", c.Name))
}

func (s *Store) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id.String())
	return affected(res, err, "category "+id.String())
}

func (s *Store) CreateMerchant(ctx context.Context, m model.Merchant) error {
	if err := ledger.Join(ledger.ValidateMerchant(m)); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO merchants(id, raw_pattern, display_name, default_category_id, created_at)
	VALUES (?, ?, ?, ?, ?)`,
		m.ID.String(), m.RawPattern, m.DisplayName, nullID(m.DefaultCategoryID), formatTimestamp(m.CreatedAt))
	return classify(err, "merchant "+m.ID.String())
}

func (s *Store) UpdateMerchant(ctx context.Context, m model.Merchant) error {
	if err := ledger.Join(ledger.ValidateMerchant(m)); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
	UPDATE merchants SET raw_pattern = ?, display_name = ?, default_category_id = ?
	WHERE id = ?`,
		m.RawPattern, m.DisplayName, nullID(m.DefaultCategoryID), m.ID.String())
	return affected(res, err, "merchant "+m.ID.String())
}

func (s *Store) DeleteMerchant(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM merchants WHERE id = ?`, id.String())
	return affected(res, err, "merchant "+id.String())
}

func (s *Store) InsertTransaction(ctx context.Context, t model.Transaction) error {
	if err := ledger.Join(ledger.ValidateTransaction(t, nil)); err != nil {
		return err
	}
	return insertTransaction(ctx, s.db, t)
}

func insertTransaction(ctx context.Context, q querier, t model.Transaction) error {
	_, err := q.ExecContext(ctx, `
	INSERT INTO transactions(id, account_id, date, amount, raw_description, manual, reviewed,
		imported_at, reviewed_at, merchant_id, category_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID.String(), t.AccountID.String(), formatDate(t.Date), t.Amount.StringFixed(2), t.RawDescription,
		t.Manual, t.Reviewed, formatTimestamp(t.ImportedAt), nullTimestamp(t.ReviewedAt),
		nullID(t.MerchantID), nullID(t.CategoryID))
	return classify(err, "transaction "+t.ID.String())
}

func (s *Store) UpdateTransaction(ctx context.Context, t model.Transaction) error {
	if err := ledger.Join(ledger.ValidateTransaction(t, nil)); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
	UPDATE transactions SET account_id = ?, date = ?, amount = ?, raw_description = ?, manual = ?,
		reviewed = ?, reviewed_at = ?, merchant_id = ?, category_id = ?
	WHERE id = ?`,
		t.AccountID.String(), formatDate(t.Date), t.Amount.StringFixed(2), t.RawDescription, t.Manual,
		t.Reviewed, nullTimestamp(t.ReviewedAt), nullID(t.MerchantID), nullID(t.CategoryID), t.ID.String())
	return affected(res, err, "transaction "+t.ID.String())
}

func (s *Store) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id.String())
	return affected(res, err, "transaction "+id.String())
}

func nullTimestamp(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTimestamp(*t), Valid: true}
}

// affected turns a zero-row update or delete into ErrNotFound.
func affected(res sql.Result, err error, what string) error {
	if err != nil {
		return classify(err, what)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err, what)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ledger.ErrNotFound)
	}
	return nil
}
