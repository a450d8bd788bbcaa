// Package export writes the ledger out as CSV.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/enough-app/enough/internal/ledger"
	"github.com/enough-app/enough/internal/merchant"
	"github.com/enough-app/enough/internal/model"
)

// Header is the CSV header for ledger exports. The date, description and
// amount columns use the names the importer recognises.
const Header = "id,date,account,description,merchant,category,amount,reviewed,manual"

const (
	numFields   = 9
	dateFormat  = "2006-01-02"
	colID       = 0
	colDate     = 1
	colAccount  = 2
	colDesc     = 3
	colMerchant = 4
	colCategory = 5
	colAmount   = 6
	colReviewed = 7
	colManual   = 8
)

// Viewer is the part of ledger.Store Collect needs.
type Viewer interface {
	View(ctx context.Context, fn func(r ledger.Reader) error) error
}

// Row is one exported transaction with its references resolved to names.
type Row struct {
	ID          uuid.UUID
	Date        time.Time
	Account     string
	Description string
	Merchant    string
	Category    string
	Amount      decimal.Decimal
	Reviewed    bool
	Manual      bool
}

// Collect reads the transactions matching q from a consistent snapshot and
// resolves account, merchant and category names.
func Collect(ctx context.Context, v Viewer, q ledger.Query) ([]Row, error) {
	var rows []Row
	err := v.View(ctx, func(r ledger.Reader) error {
		accounts, err := r.Accounts(ctx)
		if err != nil {
			return fmt.Errorf("loading accounts: %w", err)
		}
		categories, err := r.Categories(ctx)
		if err != nil {
			return fmt.Errorf("loading categories: %w", err)
		}
		merchants, err := r.Merchants(ctx)
		if err != nil {
			return fmt.Errorf("loading merchants: %w", err)
		}
		txns, err := r.Transactions(ctx, q)
		if err != nil {
			return fmt.Errorf("loading transactions: %w", err)
		}

		accountNames := make(map[uuid.UUID]string, len(accounts))
		for _, a := range accounts {
			accountNames[a.ID] = a.Name
		}
		categoryNames := make(map[uuid.UUID]string, len(categories))
		for _, c := range categories {
			categoryNames[c.ID] = c.Name
		}
		byID := make(map[uuid.UUID]model.Merchant, len(merchants))
		for _, m := range merchants {
			byID[m.ID] = m
		}

		rows = make([]Row, 0, len(txns))
		for _, t := range txns {
			row := Row{
				ID:          t.ID,
				Date:        t.Date,
				Account:     accountNames[t.AccountID],
				Description: t.RawDescription,
				Amount:      t.Amount,
				Reviewed:    t.Reviewed,
				Manual:      t.Manual,
			}
			if t.MerchantID != nil {
				row.Merchant = merchant.DisplayName(t, byID)
			}
			if t.CategoryID != nil {
				row.Category = categoryNames[*t.CategoryID]
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// WriteRows writes rows to w (including header).
func WriteRows(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, row := range rows {
		if err := cw.Write(MarshalRow(row)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalRow converts a Row to a CSV record.
func MarshalRow(row Row) []string {
	rec := make([]string, numFields)
	rec[colID] = row.ID.String()
	rec[colDate] = row.Date.Format(dateFormat)
	rec[colAccount] = row.Account
	rec[colDesc] = row.Description
	rec[colMerchant] = row.Merchant
	rec[colCategory] = row.Category
	rec[colAmount] = row.Amount.StringFixed(2)
	rec[colReviewed] = strconv.FormatBool(row.Reviewed)
	rec[colManual] = strconv.FormatBool(row.Manual)
	return rec
}

// ReadRows reads an export back. It is used to verify exports and by
// tooling that post-processes them.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading export CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var rows []Row
	for i, rec := range records[1:] {
		row, err := UnmarshalRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// UnmarshalRow converts a CSV record to a Row.
func UnmarshalRow(rec []string) (Row, error) {
	if len(rec) != numFields {
		return Row{}, fmt.Errorf("expected %d fields, got %d", numFields, len(rec))
	}
	txnID, err := uuid.Parse(rec[colID])
	if err != nil {
		return Row{}, fmt.Errorf("parsing id %q: %w", rec[colID], err)
	}
	date, err := time.Parse(dateFormat, rec[colDate])
	if err != nil {
		return Row{}, fmt.Errorf("parsing date %q: %w", rec[colDate], err)
	}
	amount, err := decimal.NewFromString(rec[colAmount])
	if err != nil {
		return Row{}, fmt.Errorf("parsing amount %q: %w", rec[colAmount], err)
	}
	reviewed, err := strconv.ParseBool(rec[colReviewed])
	if err != nil {
		return Row{}, fmt.Errorf("parsing reviewed %q: %w", rec[colReviewed], err)
	}
	manual, err := strconv.ParseBool(rec[colManual])
	if err != nil {
		return Row{}, fmt.Errorf("parsing manual %q: %w", rec[colManual], err)
	}
	return Row{
		ID:          txnID,
		Date:        date,
		Account:     rec[colAccount],
		Description: rec[colDesc],
		Merchant:    rec[colMerchant],
		Category:    rec[colCategory],
		Amount:      amount,
		Reviewed:    reviewed,
		Manual:      manual,
	}, nil
}
