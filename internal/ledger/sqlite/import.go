package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/enough-app/enough/internal/ledger"
	"github.com/enough-app/enough/internal/model"
)

// importTx is one SQLite transaction. Each Insert runs inside its own
// savepoint so a failed row is undone without aborting the batch.
type importTx struct {
	reader
	tx       *sql.Tx
	s        *Store
	inserted int
}

// BeginImport opens the batch. The transaction outlives ctx cancellation so
// the caller can still commit what was inserted before it stopped.
func (s *Store) BeginImport(ctx context.Context) (ledger.ImportTx, error) {
	tx, err := s.db.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return nil, classify(err, "beginning import")
	}
	return &importTx{reader: reader{q: tx}, tx: tx, s: s}, nil
}

func (t *importTx) Insert(ctx context.Context, txn model.Transaction) error {
	if err := ledger.Join(ledger.ValidateTransaction(txn, nil)); err != nil {
		return err
	}
	// Row statements ignore cancellation; the pipeline stops between rows.
	ctx = context.WithoutCancel(ctx)
	if _, err := t.tx.ExecContext(ctx, `SAVEPOINT import_row`); err != nil {
		return classify(err, "opening savepoint")
	}
	if err := insertTransaction(ctx, t.tx, txn); err != nil {
		// Undo the row, then close the savepoint; the batch stays usable.
		if _, rbErr := t.tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT import_row`); rbErr != nil {
			return errors.Join(err, classify(rbErr, "rolling back row"))
		}
		if _, relErr := t.tx.ExecContext(ctx, `RELEASE SAVEPOINT import_row`); relErr != nil {
			return errors.Join(err, classify(relErr, "releasing savepoint"))
		}
		return err
	}
	if _, err := t.tx.ExecContext(ctx, `RELEASE SAVEPOINT import_row`); err != nil {
		return classify(err, "releasing savepoint")
	}
	t.inserted++
	return nil
}

func (t *importTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return classify(err, "committing import")
	}
	t.s.logger.Debug("import batch committed", "rows", t.inserted)
	return nil
}

func (t *importTx) Rollback() error {
	err := t.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return classify(err, "rolling back import")
	}
	return nil
}

var _ ledger.ImportTx = (*importTx)(nil)
