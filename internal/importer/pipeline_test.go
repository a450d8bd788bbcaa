package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enough-app/enough/internal/id"
	"github.com/enough-app/enough/internal/ledger"
	"github.com/enough-app/enough/internal/ledger/ledgertest"
	"github.com/enough-app/enough/internal/ledger/memory"
	"github.com/enough-app/enough/internal/ledger/sqlite"
	"github.com/enough-app/enough/internal/logging"
	"github.com/enough-app/enough/internal/model"
)

var fixedNow = time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

func testOptions() Options {
	return Options{
		Now:    func() time.Time { return fixedNow },
		Logger: logging.Discard(),
	}
}

func newLedger(t *testing.T) (*memory.Store, model.Account) {
	t.Helper()
	s := memory.New()
	t.Cleanup(func() { _ = s.Close() })
	a := ledgertest.Account("Everyday", 0)
	require.NoError(t, s.CreateAccount(context.Background(), a))
	return s, a
}

func everyday(t *testing.T) Source {
	t.Helper()
	src, err := DefaultRegistry().Open("../../testdata/everyday.csv")
	require.NoError(t, err)
	return src
}

func allTxns(t *testing.T, s ledger.Reader) []model.Transaction {
	t.Helper()
	txns, err := s.Transactions(context.Background(), ledger.Query{})
	require.NoError(t, err)
	return txns
}

func TestPipeline_EndToEnd(t *testing.T) {
	ctx := context.Background()
	s, a := newLedger(t)

	p := NewPipeline(s, a.ID, testOptions())
	pv, err := p.Parse(ctx, everyday(t))
	require.NoError(t, err)
	assert.Equal(t, StatePreview, p.State())
	assert.Equal(t, 2, pv.Count)
	assert.Equal(t, "49.2", pv.Total.String())
	require.Len(t, pv.Failures, 1)
	assert.Equal(t, 4, pv.Failures[0].Row)
	assert.Equal(t, "date", pv.Failures[0].Field)
	assert.Empty(t, allTxns(t, s), "preview must not persist")

	res, err := p.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateComplete, p.State())
	assert.Equal(t, 2, res.Parsed)
	assert.Equal(t, 1, res.ParseFailures)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 0, res.Duplicates)
	assert.False(t, res.Cancelled)

	txns := allTxns(t, s)
	require.Len(t, txns, 2)
	for _, txn := range txns {
		assert.Equal(t, a.ID, txn.AccountID)
		assert.False(t, txn.Reviewed)
		assert.Equal(t, fixedNow, txn.ImportedAt)
	}

	// Importing the same file again adds nothing.
	p = NewPipeline(s, a.ID, testOptions())
	_, err = p.Parse(ctx, everyday(t))
	require.NoError(t, err)
	res, err = p.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 2, res.Duplicates)
	assert.Len(t, allTxns(t, s), 2)
}

func TestPipeline_DuplicatesWithinSource(t *testing.T) {
	ctx := context.Background()
	s, a := newLedger(t)
	src, err := DefaultRegistry().Open("../../testdata/savings.tsv")
	require.NoError(t, err)

	p := NewPipeline(s, a.ID, testOptions())
	_, err = p.Parse(ctx, src)
	require.NoError(t, err)
	res, err := p.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 1, res.Duplicates)
}

func TestPipeline_DedupIsPerAccount(t *testing.T) {
	ctx := context.Background()
	s, a := newLedger(t)
	other := ledgertest.Account("Savings", 1)
	require.NoError(t, s.CreateAccount(ctx, other))

	for _, acct := range []uuid.UUID{a.ID, other.ID} {
		p := NewPipeline(s, acct, testOptions())
		_, err := p.Parse(ctx, everyday(t))
		require.NoError(t, err)
		res, err := p.Confirm(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Inserted)
	}
	assert.Len(t, allTxns(t, s), 4)
}

func TestPipeline_ResolvesMerchants(t *testing.T) {
	ctx := context.Background()
	s, a := newLedger(t)
	groceries := ledgertest.Category("Groceries", 0)
	require.NoError(t, s.CreateCategory(ctx, groceries))
	coles := model.Merchant{
		ID:                id.New(),
		RawPattern:        "COLES",
		DisplayName:       "Coles",
		DefaultCategoryID: id.Ptr(groceries.ID),
		CreatedAt:         fixedNow,
	}
	github := model.Merchant{ID: id.New(), RawPattern: "github", DisplayName: "GitHub", CreatedAt: fixedNow}
	require.NoError(t, s.CreateMerchant(ctx, coles))
	require.NoError(t, s.CreateMerchant(ctx, github))

	opts := testOptions()
	opts.AutoReview = true
	p := NewPipeline(s, a.ID, opts)
	_, err := p.Parse(ctx, everyday(t))
	require.NoError(t, err)
	res, err := p.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Matched)

	byDesc := map[string]model.Transaction{}
	for _, txn := range allTxns(t, s) {
		byDesc[txn.RawDescription] = txn
	}

	c := byDesc["EFTPOS COLES 1234 5678"]
	require.NotNil(t, c.MerchantID)
	assert.Equal(t, coles.ID, *c.MerchantID)
	require.NotNil(t, c.CategoryID)
	assert.Equal(t, groceries.ID, *c.CategoryID)
	assert.True(t, c.Reviewed)
	require.NotNil(t, c.ReviewedAt)

	g := byDesc["GITHUB *PRO SUBSCRIPTION"]
	require.NotNil(t, g.MerchantID)
	assert.Equal(t, github.ID, *g.MerchantID)
	assert.Nil(t, g.CategoryID)
	assert.False(t, g.Reviewed)
	assert.True(t, g.NeedsReview())
}

func TestPipeline_DefaultCategoryWithoutAutoReview(t *testing.T) {
	ctx := context.Background()
	s, a := newLedger(t)
	groceries := ledgertest.Category("Groceries", 0)
	require.NoError(t, s.CreateCategory(ctx, groceries))
	require.NoError(t, s.CreateMerchant(ctx, model.Merchant{
		ID: id.New(), RawPattern: "COLES", DisplayName: "Coles", DefaultCategoryID: id.Ptr(groceries.ID), CreatedAt: fixedNow,
	}))

	p := NewPipeline(s, a.ID, testOptions())
	_, err := p.Parse(ctx, everyday(t))
	require.NoError(t, err)
	_, err = p.Confirm(ctx)
	require.NoError(t, err)

	for _, txn := range allTxns(t, s) {
		assert.False(t, txn.Reviewed, txn.RawDescription)
	}
}

func TestPipeline_Events(t *testing.T) {
	ctx := context.Background()
	s, a := newLedger(t)
	var events []Event
	opts := testOptions()
	opts.Observers = []Observer{func(e Event) { events = append(events, e) }}

	p := NewPipeline(s, a.ID, opts)
	_, err := p.Parse(ctx, everyday(t))
	require.NoError(t, err)
	_, err = p.Confirm(ctx)
	require.NoError(t, err)

	require.Len(t, events, 4)
	want := [][2]State{
		{StateReady, StateParsing},
		{StateParsing, StatePreview},
		{StatePreview, StateImporting},
		{StateImporting, StateComplete},
	}
	for i, w := range want {
		assert.Equal(t, w[0], events[i].From, "event %d", i)
		assert.Equal(t, w[1], events[i].To, "event %d", i)
		assert.Equal(t, p.ImportID(), events[i].ImportID)
	}
	require.NotNil(t, events[1].Preview)
	assert.Equal(t, 2, events[1].Preview.Count)
	require.NotNil(t, events[3].Result)
	assert.Equal(t, 2, events[3].Result.Inserted)
	assert.Equal(t, "2 imported, 0 duplicates", events[3].Message)
}

func TestPipeline_InvalidTransitions(t *testing.T) {
	ctx := context.Background()
	s, a := newLedger(t)
	p := NewPipeline(s, a.ID, testOptions())

	_, err := p.Confirm(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, p.Cancel(), ErrInvalidTransition)
	assert.ErrorIs(t, p.Retry(), ErrInvalidTransition)
	assert.Equal(t, StateReady, p.State())

	_, err = p.Parse(ctx, everyday(t))
	require.NoError(t, err)
	_, err = p.Parse(ctx, everyday(t))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = p.Confirm(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, p.Cancel(), ErrInvalidTransition)
	assert.ErrorIs(t, p.Retry(), ErrInvalidTransition)
}

func TestPipeline_CancelPreview(t *testing.T) {
	ctx := context.Background()
	s, a := newLedger(t)
	p := NewPipeline(s, a.ID, testOptions())
	_, err := p.Parse(ctx, everyday(t))
	require.NoError(t, err)

	require.NoError(t, p.Cancel())
	snap := p.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Nil(t, snap.Preview)
	assert.Empty(t, allTxns(t, s))

	// Ready again, so a fresh parse is allowed.
	_, err = p.Parse(ctx, everyday(t))
	require.NoError(t, err)
}

func TestPipeline_EmptySource(t *testing.T) {
	s, a := newLedger(t)
	p := NewPipeline(s, a.ID, testOptions())
	_, err := p.Parse(context.Background(), Rows{})
	assert.ErrorIs(t, err, ErrEmptySource)
	snap := p.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.Contains(t, snap.Message, "no rows")

	require.NoError(t, p.Retry())
	assert.Equal(t, StateReady, p.State())
}

func TestPipeline_UnreadableSource(t *testing.T) {
	s, a := newLedger(t)
	p := NewPipeline(s, a.ID, testOptions())
	src := FileSource{Path: t.TempDir() + "/missing.csv", Parser: NewCSVParser()}
	_, err := p.Parse(context.Background(), src)
	assert.ErrorIs(t, err, ErrSourceUnreadable)
	assert.Equal(t, StateError, p.State())
}

func TestPipeline_AllRowsFailToParse(t *testing.T) {
	s, a := newLedger(t)
	p := NewPipeline(s, a.ID, testOptions())
	pv, err := p.Parse(context.Background(), Rows{
		{Line: 1, Date: "x", Description: "A", Amount: "-1"},
		{Line: 2, Date: "2025-01-01", Description: "B", Amount: "zero"},
	})
	assert.ErrorIs(t, err, ErrNoValidRows)
	require.NotNil(t, pv)
	assert.Len(t, pv.Failures, 2)
	assert.Equal(t, StateError, p.State())
}

func TestPipeline_MissingAccount(t *testing.T) {
	ctx := context.Background()
	s, _ := newLedger(t)
	p := NewPipeline(s, uuid.New(), testOptions())
	_, err := p.Parse(ctx, everyday(t))
	require.NoError(t, err)

	_, err = p.Confirm(ctx)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.Equal(t, StateError, p.State())
	assert.Empty(t, allTxns(t, s))
}

// faultyStore wraps a store so tests can inject behaviour per inserted row.
type faultyStore struct {
	ledger.Store
	onInsert func(n int) error
}

func (s *faultyStore) BeginImport(ctx context.Context) (ledger.ImportTx, error) {
	tx, err := s.Store.BeginImport(ctx)
	if err != nil {
		return nil, err
	}
	return &faultyTx{ImportTx: tx, s: s}, nil
}

type faultyTx struct {
	ledger.ImportTx
	s *faultyStore
	n int
}

func (t *faultyTx) Insert(ctx context.Context, txn model.Transaction) error {
	t.n++
	if err := t.s.onInsert(t.n); err != nil {
		return err
	}
	return t.ImportTx.Insert(ctx, txn)
}

func threeRows() Rows {
	return Rows{
		{Line: 2, Date: "2025-01-03", Description: "ONE", Amount: "-1"},
		{Line: 3, Date: "2025-01-04", Description: "TWO", Amount: "-2"},
		{Line: 4, Date: "2025-01-05", Description: "THREE", Amount: "-3"},
	}
}

func TestPipeline_CancelDuringImportCommitsInserted(t *testing.T) {
	s, a := newLedger(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fs := &faultyStore{Store: s, onInsert: func(n int) error {
		if n == 1 {
			cancel()
		}
		return nil
	}}

	p := NewPipeline(fs, a.ID, testOptions())
	_, err := p.Parse(ctx, threeRows())
	require.NoError(t, err)
	res, err := p.Confirm(ctx)
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, StateComplete, p.State())
	assert.Equal(t, "cancelled after 1 imported", p.Snapshot().Message)

	txns := allTxns(t, s)
	require.Len(t, txns, 1)
	assert.Equal(t, "ONE", txns[0].RawDescription)
}

func TestPipeline_RowRejectionContinues(t *testing.T) {
	s, a := newLedger(t)
	fs := &faultyStore{Store: s, onInsert: func(n int) error {
		if n == 2 {
			return fmt.Errorf("row: %w", ledger.ErrConflict)
		}
		return nil
	}}

	p := NewPipeline(fs, a.ID, testOptions())
	_, err := p.Parse(context.Background(), threeRows())
	require.NoError(t, err)
	res, err := p.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 3, res.Failures[0].Row)
	assert.Equal(t, "TWO", res.Failures[0].Description)
	assert.ErrorIs(t, res.Failures[0], ledger.ErrConflict)
	assert.Len(t, allTxns(t, s), 2)
}

func TestPipeline_AllRowsRejected(t *testing.T) {
	s, a := newLedger(t)
	fs := &faultyStore{Store: s, onInsert: func(int) error { return ledger.ErrConflict }}

	p := NewPipeline(fs, a.ID, testOptions())
	_, err := p.Parse(context.Background(), threeRows())
	require.NoError(t, err)
	_, err = p.Confirm(context.Background())
	assert.ErrorIs(t, err, ledger.ErrConflict)
	assert.Equal(t, StateError, p.State())
}

func TestPipeline_UnavailableStoreRollsBack(t *testing.T) {
	s, a := newLedger(t)
	fs := &faultyStore{Store: s, onInsert: func(n int) error {
		if n == 2 {
			return fmt.Errorf("disk gone: %w", ledger.ErrUnavailable)
		}
		return nil
	}}

	p := NewPipeline(fs, a.ID, testOptions())
	_, err := p.Parse(context.Background(), threeRows())
	require.NoError(t, err)
	_, err = p.Confirm(context.Background())
	assert.ErrorIs(t, err, ledger.ErrUnavailable)
	assert.Equal(t, StateError, p.State())
	assert.Empty(t, allTxns(t, s))

	// The import slot was released by the rollback.
	tx, err := s.BeginImport(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
}

func TestPipeline_SQLiteLedger(t *testing.T) {
	ctx := context.Background()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "ledger.db"), logging.Discard())
	require.NoError(t, err)
	defer s.Close()
	a := ledgertest.Account("Everyday", 0)
	require.NoError(t, s.CreateAccount(ctx, a))

	c := NewCoordinator(s, testOptions())
	res, err := c.Import(ctx, everyday(t), a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)

	res, err = c.Import(ctx, everyday(t), a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 2, res.Duplicates)
	assert.Len(t, allTxns(t, s), 2)
}
