package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/enough-app/enough/internal/ledger"
	"github.com/enough-app/enough/internal/model"
)

const (
	dateLayout = "2006-01-02"
	// timestampLayout is fixed-width so text ordering matches time ordering.
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
)

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func nullID(u *uuid.UUID) uuid.NullUUID {
	if u == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *u, Valid: true}
}

func idPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	u := n.UUID
	return &u
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// reader implements ledger.Reader over a database handle or transaction.
type reader struct {
	q querier
}

const accountColumns = `id, name, bank, kind, color, sort_order, active, created_at`

func scanAccount(s scanner) (model.Account, error) {
	var a model.Account
	var bank, kind, createdAt string
	if err := s.Scan(&a.ID, &a.Name, &bank, &kind, &a.Color, &a.SortOrder, &a.Active, &createdAt); err != nil {
		return model.Account{}, err
	}
	a.Bank = model.BankType(bank)
	a.Kind = model.AccountKind(kind)
	var err error
	if a.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return model.Account{}, err
	}
	return a, nil
}

func (r reader) Account(ctx context.Context, id uuid.UUID) (model.Account, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id.String())
	a, err := scanAccount(row)
	if err != nil {
		return model.Account{}, classify(err, "account "+id.String())
	}
	return a, nil
}

func (r reader) Accounts(ctx context.Context) ([]model.Account, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY sort_order, name COLLATE BINARY`)
	if err != nil {
		return nil, classify(err, "listing accounts")
	}
	defer rows.Close()
	var out []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, classify(err, "scanning account")
		}
		out = append(out, a)
	}
	return out, classify(rows.Err(), "listing accounts")
}

func (r reader) Categories(ctx context.Context) ([]model.Category, error) {
	rows, err := r.q.QueryContext(ctx, `
	SELECT id, name, icon, color, sort_order, is_default, created_at
	FROM categories ORDER BY sort_order, name COLLATE BINARY`)
	if err != nil {
		return nil, classify(err, "listing categories")
	}
	defer rows.Close()
	var out []model.Category
	for rows.Next() {
		var c model.Category
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Color, &c.SortOrder, &c.IsDefault, &createdAt); err != nil {
			return nil, classify(err, "scanning category")
		}
		if c.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, classify(rows.Err(), "listing categories")
}

func (r reader) Merchants(ctx context.Context) ([]model.Merchant, error) {
	rows, err := r.q.QueryContext(ctx, `
	SELECT id, raw_pattern, display_name, default_category_id, created_at
	FROM merchants ORDER BY created_at, id`)
	if err != nil {
		return nil, classify(err, "listing merchants")
	}
	defer rows.Close()
	var out []model.Merchant
	for rows.Next() {
		var m model.Merchant
		var category uuid.NullUUID
		var createdAt string
		if err := rows.Scan(&m.ID, &m.RawPattern, &m.DisplayName, &category, &createdAt); err != nil {
			return nil, classify(err, "scanning merchant")
		}
		m.DefaultCategoryID = idPtr(category)
		if m.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, classify(rows.Err(), "listing merchants")
}

const transactionColumns = `id, account_id, date, amount, raw_description, manual, reviewed,
	imported_at, reviewed_at, merchant_id, category_id`

func scanTransaction(s scanner) (model.Transaction, error) {
	var t model.Transaction
	var date, amount, importedAt string
	var reviewedAt sql.NullString
	var merchantID, categoryID uuid.NullUUID
	if err := s.Scan(&t.ID, &t.AccountID, &date, &amount, &t.RawDescription, &t.Manual, &t.Reviewed,
		&importedAt, &reviewedAt, &merchantID, &categoryID); err != nil {
		return model.Transaction{}, err
	}

	var err error
	if t.Date, err = parseDate(date); err != nil {
		return model.Transaction{}, err
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", amount, err)
	}
	if t.ImportedAt, err = parseTimestamp(importedAt); err != nil {
		return model.Transaction{}, err
	}
	if reviewedAt.Valid {
		ts, err := parseTimestamp(reviewedAt.String)
		if err != nil {
			return model.Transaction{}, err
		}
		t.ReviewedAt = &ts
	}
	t.MerchantID = idPtr(merchantID)
	t.CategoryID = idPtr(categoryID)
	return t, nil
}

func (r reader) Transaction(ctx context.Context, id uuid.UUID) (model.Transaction, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id.String())
	t, err := scanTransaction(row)
	if err != nil {
		return model.Transaction{}, classify(err, "transaction "+id.String())
	}
	return t, nil
}

func (r reader) Transactions(ctx context.Context, q ledger.Query) ([]model.Transaction, error) {
	var where []string
	var args []any
	if q.AccountID != nil {
		where = append(where, "account_id = ?")
		args = append(args, q.AccountID.String())
	}
	if q.CategoryID != nil {
		where = append(where, "category_id = ?")
		args = append(args, q.CategoryID.String())
	}
	if !q.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, formatDate(q.From))
	}
	if !q.To.IsZero() {
		where = append(where, "date < ?")
		args = append(args, formatDate(q.To))
	}
	if q.ReviewedOnly {
		where = append(where, "reviewed = 1")
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, imported_at DESC, id"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "listing transactions")
	}
	defer rows.Close()
	var out []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, classify(err, "scanning transaction")
		}
		out = append(out, t)
	}
	return out, classify(rows.Err(), "listing transactions")
}
