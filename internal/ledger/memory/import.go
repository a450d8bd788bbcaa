package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/enough-app/enough/internal/ledger"
	"github.com/enough-app/enough/internal/model"
)

var errBatchDone = errors.New("import batch already finished")

// importTx stages inserts and applies them under the write lock on Commit.
type importTx struct {
	s      *Store
	staged []model.Transaction
	ids    map[uuid.UUID]struct{}
	done   bool
}

// BeginImport waits for the import slot and opens a batch.
func (s *Store) BeginImport(ctx context.Context) (ledger.ImportTx, error) {
	if err := s.read(func(*state) error { return nil }); err != nil {
		return nil, err
	}
	select {
	case s.importSlot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &importTx{s: s, ids: make(map[uuid.UUID]struct{})}, nil
}

// Transactions returns committed rows plus rows staged in this batch.
func (tx *importTx) Transactions(ctx context.Context, q ledger.Query) ([]model.Transaction, error) {
	if tx.done {
		return nil, errBatchDone
	}
	out, err := tx.s.Transactions(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, t := range tx.staged {
		if q.Matches(t) {
			out = append(out, cloneTransaction(t))
		}
	}
	SortTransactions(out)
	return out, nil
}

func (tx *importTx) Account(ctx context.Context, id uuid.UUID) (model.Account, error) {
	if tx.done {
		return model.Account{}, errBatchDone
	}
	return tx.s.Account(ctx, id)
}

func (tx *importTx) Merchants(ctx context.Context) ([]model.Merchant, error) {
	if tx.done {
		return nil, errBatchDone
	}
	return tx.s.Merchants(ctx)
}

// Insert checks t against the committed ledger and the batch, then stages it.
func (tx *importTx) Insert(ctx context.Context, t model.Transaction) error {
	if tx.done {
		return errBatchDone
	}
	if err := ledger.Join(ledger.ValidateTransaction(t, nil)); err != nil {
		return err
	}
	if _, ok := tx.ids[t.ID]; ok {
		return fmt.Errorf("transaction %s: %w", t.ID, ledger.ErrConflict)
	}
	err := tx.s.read(func(st *state) error {
		return st.checkInsert(t)
	})
	if err != nil {
		return err
	}
	tx.staged = append(tx.staged, cloneTransaction(t))
	tx.ids[t.ID] = struct{}{}
	return nil
}

// Commit applies every staged row. Rows whose references vanished since
// they were staged are skipped and reported.
func (tx *importTx) Commit() error {
	if tx.done {
		return errBatchDone
	}
	defer tx.finish()
	var skipped []error
	err := tx.s.write(func(st *state) error {
		for _, t := range tx.staged {
			if err := st.checkInsert(t); err != nil {
				skipped = append(skipped, err)
				continue
			}
			st.put(t)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(skipped) > 0 {
		return fmt.Errorf("committing import: %d rows skipped: %w", len(skipped), errors.Join(skipped...))
	}
	return nil
}

func (tx *importTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.finish()
	return nil
}

func (tx *importTx) finish() {
	tx.done = true
	tx.staged = nil
	<-tx.s.importSlot
}
