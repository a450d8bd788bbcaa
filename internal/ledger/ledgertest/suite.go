// Package ledgertest holds behaviour tests every ledger.Store must pass.
package ledgertest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enough-app/enough/internal/ledger"
	"github.com/enough-app/enough/internal/model"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) ledger.Store

// Account builds a valid account.
func Account(name string, sortOrder int) model.Account {
	return model.Account{
		ID:        uuid.New(),
		Name:      name,
		Bank:      model.BankING,
		Kind:      model.AccountChecking,
		Color:     model.DefaultAccountColor,
		SortOrder: sortOrder,
		Active:    true,
		CreatedAt: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

// Txn builds a valid unreviewed transaction dated 2025-01-day.
func Txn(account uuid.UUID, day int, amount, desc string) model.Transaction {
	return model.Transaction{
		ID:             uuid.New(),
		AccountID:      account,
		Date:           time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC),
		Amount:         decimal.RequireFromString(amount),
		RawDescription: desc,
		ImportedAt:     time.Date(2025, 2, 1, 8, 30, 0, 0, time.UTC),
	}
}

// Category builds a valid category.
func Category(name string, sortOrder int) model.Category {
	return model.Category{
		ID:        uuid.New(),
		Name:      name,
		Icon:      "cart",
		Color:     "5C7D60",
		SortOrder: sortOrder,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := map[string]func(t *testing.T, s ledger.Store){
		"AccountCRUD":                testAccountCRUD,
		"DeleteAccountCascades":      testDeleteAccountCascades,
		"TransactionRoundTrip":       testTransactionRoundTrip,
		"TransactionQuery":           testTransactionQuery,
		"TransactionErrors":          testTransactionErrors,
		"UpdateAndDeleteTransaction": testUpdateAndDeleteTransaction,
		"CategoryUniqueName":         testCategoryUniqueName,
		"DeleteCategoryClearsRefs":   testDeleteCategoryClearsRefs,
		"DeleteMerchantKeepsTxns":    testDeleteMerchantKeepsTransactions,
		"ImportCommit":               testImportCommit,
		"ImportRowFailureKeepsBatch": testImportRowFailureKeepsBatch,
		"ImportRollback":             testImportRollback,
		"ViewConcurrentReads":        testViewConcurrentReads,
		"ClosedStoreUnavailable":     testClosedStoreUnavailable,
	}
	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			fn(t, s)
		})
	}
}

func testAccountCRUD(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	b := Account("Savings", 2)
	a := Account("Everyday", 1)
	require.NoError(t, s.CreateAccount(ctx, b))
	require.NoError(t, s.CreateAccount(ctx, a))
	assert.ErrorIs(t, s.CreateAccount(ctx, a), ledger.ErrConflict)

	got, err := s.Account(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Everyday", got.Name)
	assert.Equal(t, model.BankING, got.Bank)
	assert.True(t, got.Active)
	assert.True(t, a.CreatedAt.Equal(got.CreatedAt))

	all, err := s.Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID, "ordered by sort order")

	a.Name = "Bills"
	a.Active = false
	require.NoError(t, s.UpdateAccount(ctx, a))
	got, err = s.Account(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bills", got.Name)
	assert.False(t, got.Active)

	_, err = s.Account(ctx, uuid.New())
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.ErrorIs(t, s.UpdateAccount(ctx, Account("Ghost", 0)), ledger.ErrNotFound)
	assert.ErrorIs(t, s.DeleteAccount(ctx, uuid.New()), ledger.ErrNotFound)

	bad := Account("", 0)
	var ve ledger.ValidationError
	assert.ErrorAs(t, s.CreateAccount(ctx, bad), &ve)
}

func testDeleteAccountCascades(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	keep := Account("Keep", 0)
	drop := Account("Drop", 1)
	require.NoError(t, s.CreateAccount(ctx, keep))
	require.NoError(t, s.CreateAccount(ctx, drop))
	require.NoError(t, s.InsertTransaction(ctx, Txn(keep.ID, 1, "-1.00", "A")))
	gone := Txn(drop.ID, 2, "-2.00", "B")
	require.NoError(t, s.InsertTransaction(ctx, gone))

	require.NoError(t, s.DeleteAccount(ctx, drop.ID))

	txns, err := s.Transactions(ctx, ledger.Query{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, keep.ID, txns[0].AccountID)
	_, err = s.Transaction(ctx, gone.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func testTransactionRoundTrip(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	a := Account("Everyday", 0)
	require.NoError(t, s.CreateAccount(ctx, a))
	cat := Category("Groceries", 3)
	require.NoError(t, s.CreateCategory(ctx, cat))
	m := model.Merchant{ID: uuid.New(), RawPattern: "COLES", DisplayName: "Coles", DefaultCategoryID: &cat.ID, CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	require.NoError(t, s.CreateMerchant(ctx, m))

	reviewedAt := time.Date(2025, 2, 2, 10, 0, 0, 0, time.UTC)
	in := Txn(a.ID, 9, "-4.50", "COLES 1234")
	in.Reviewed = true
	in.Manual = true
	in.ReviewedAt = &reviewedAt
	in.MerchantID = &m.ID
	in.CategoryID = &cat.ID
	require.NoError(t, s.InsertTransaction(ctx, in))

	got, err := s.Transaction(ctx, in.ID)
	require.NoError(t, err)
	assert.True(t, in.Date.Equal(got.Date))
	assert.True(t, in.Amount.Equal(got.Amount), "amount %s", got.Amount)
	assert.Equal(t, "COLES 1234", got.RawDescription)
	assert.True(t, got.Reviewed)
	assert.True(t, got.Manual)
	require.NotNil(t, got.ReviewedAt)
	assert.True(t, reviewedAt.Equal(*got.ReviewedAt))
	require.NotNil(t, got.MerchantID)
	assert.Equal(t, m.ID, *got.MerchantID)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, cat.ID, *got.CategoryID)
	assert.True(t, in.ImportedAt.Equal(got.ImportedAt))

	merchants, err := s.Merchants(ctx)
	require.NoError(t, err)
	require.Len(t, merchants, 1)
	require.NotNil(t, merchants[0].DefaultCategoryID)
	assert.Equal(t, cat.ID, *merchants[0].DefaultCategoryID)
	assert.True(t, m.CreatedAt.Equal(merchants[0].CreatedAt))

	cats, err := s.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Groceries", cats[0].Name)
	assert.Equal(t, 3, cats[0].SortOrder)
}

func testTransactionQuery(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	a := Account("A", 0)
	b := Account("B", 1)
	require.NoError(t, s.CreateAccount(ctx, a))
	require.NoError(t, s.CreateAccount(ctx, b))
	cat := Category("Transport", 0)
	require.NoError(t, s.CreateCategory(ctx, cat))

	early := Txn(a.ID, 2, "-10", "EARLY")
	late := Txn(a.ID, 20, "-20", "LATE")
	late.Reviewed = true
	late.CategoryID = &cat.ID
	other := Txn(b.ID, 10, "300", "PAY")
	for _, txn := range []model.Transaction{early, late, other} {
		require.NoError(t, s.InsertTransaction(ctx, txn))
	}

	all, err := s.Transactions(ctx, ledger.Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"LATE", "PAY", "EARLY"}, descriptions(all), "newest first")

	byAccount, err := s.Transactions(ctx, ledger.Query{AccountID: &a.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"LATE", "EARLY"}, descriptions(byAccount))

	window, err := s.Transactions(ctx, ledger.Query{
		From: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"PAY", "EARLY"}, descriptions(window))

	byCategory, err := s.Transactions(ctx, ledger.Query{CategoryID: &cat.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"LATE"}, descriptions(byCategory))

	reviewed, err := s.Transactions(ctx, ledger.Query{ReviewedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"LATE"}, descriptions(reviewed))
}

func testTransactionErrors(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	a := Account("A", 0)
	require.NoError(t, s.CreateAccount(ctx, a))

	orphan := Txn(uuid.New(), 1, "-1", "ORPHAN")
	assert.ErrorIs(t, s.InsertTransaction(ctx, orphan), ledger.ErrMissingReference)

	badCat := Txn(a.ID, 1, "-1", "BAD CAT")
	missing := uuid.New()
	badCat.CategoryID = &missing
	assert.ErrorIs(t, s.InsertTransaction(ctx, badCat), ledger.ErrMissingReference)

	ok := Txn(a.ID, 1, "-1", "OK")
	require.NoError(t, s.InsertTransaction(ctx, ok))
	assert.ErrorIs(t, s.InsertTransaction(ctx, ok), ledger.ErrConflict)

	invalid := Txn(a.ID, 1, "-1.001", "CENTS")
	var ve ledger.ValidationError
	assert.ErrorAs(t, s.InsertTransaction(ctx, invalid), &ve)
}

func testUpdateAndDeleteTransaction(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	a := Account("A", 0)
	require.NoError(t, s.CreateAccount(ctx, a))
	cat := Category("Dining", 0)
	require.NoError(t, s.CreateCategory(ctx, cat))
	txn := Txn(a.ID, 5, "-8.50", "CAFE")
	require.NoError(t, s.InsertTransaction(ctx, txn))

	now := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	txn.Reviewed = true
	txn.ReviewedAt = &now
	txn.CategoryID = &cat.ID
	require.NoError(t, s.UpdateTransaction(ctx, txn))

	got, err := s.Transaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.True(t, got.Reviewed)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, cat.ID, *got.CategoryID)

	assert.ErrorIs(t, s.UpdateTransaction(ctx, Txn(a.ID, 1, "-1", "GHOST")), ledger.ErrNotFound)

	require.NoError(t, s.DeleteTransaction(ctx, txn.ID))
	assert.ErrorIs(t, s.DeleteTransaction(ctx, txn.ID), ledger.ErrNotFound)
}

func testCategoryUniqueName(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateCategory(ctx, Category("Health", 0)))
	assert.ErrorIs(t, s.CreateCategory(ctx, Category("health", 1)), ledger.ErrConflict)
}

func testDeleteCategoryClearsRefs(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	a := Account("A", 0)
	require.NoError(t, s.CreateAccount(ctx, a))
	cat := Category("Gifts", 0)
	require.NoError(t, s.CreateCategory(ctx, cat))
	m := model.Merchant{ID: uuid.New(), RawPattern: "MYER", DisplayName: "Myer", DefaultCategoryID: &cat.ID, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateMerchant(ctx, m))
	txn := Txn(a.ID, 3, "-50", "MYER 0001")
	txn.CategoryID = &cat.ID
	require.NoError(t, s.InsertTransaction(ctx, txn))

	require.NoError(t, s.DeleteCategory(ctx, cat.ID))

	got, err := s.Transaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
	merchants, err := s.Merchants(ctx)
	require.NoError(t, err)
	require.Len(t, merchants, 1)
	assert.Nil(t, merchants[0].DefaultCategoryID)
	assert.ErrorIs(t, s.DeleteCategory(ctx, cat.ID), ledger.ErrNotFound)
}

func testDeleteMerchantKeepsTransactions(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	a := Account("A", 0)
	require.NoError(t, s.CreateAccount(ctx, a))
	m := model.Merchant{ID: uuid.New(), RawPattern: "NETFLIX", DisplayName: "Netflix", CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateMerchant(ctx, m))
	txn := Txn(a.ID, 3, "-22.99", "NETFLIX.COM")
	txn.MerchantID = &m.ID
	require.NoError(t, s.InsertTransaction(ctx, txn))

	require.NoError(t, s.DeleteMerchant(ctx, m.ID))

	got, err := s.Transaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Nil(t, got.MerchantID)

	m.DisplayName = "Gone"
	assert.ErrorIs(t, s.UpdateMerchant(ctx, m), ledger.ErrNotFound)
}

func testImportCommit(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	a := Account("A", 0)
	require.NoError(t, s.CreateAccount(ctx, a))
	require.NoError(t, s.InsertTransaction(ctx, Txn(a.ID, 1, "-1", "EXISTING")))

	tx, err := s.BeginImport(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Insert(ctx, Txn(a.ID, 2, "-2", "STAGED")))

	inBatch, err := tx.Transactions(ctx, ledger.Query{AccountID: &a.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"STAGED", "EXISTING"}, descriptions(inBatch))
	require.NoError(t, tx.Commit())

	after, err := s.Transactions(ctx, ledger.Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"STAGED", "EXISTING"}, descriptions(after))
}

func testImportRowFailureKeepsBatch(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	a := Account("A", 0)
	require.NoError(t, s.CreateAccount(ctx, a))

	tx, err := s.BeginImport(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, tx.Insert(ctx, Txn(uuid.New(), 1, "-1", "ORPHAN")), ledger.ErrMissingReference)
	require.NoError(t, tx.Insert(ctx, Txn(a.ID, 2, "-2", "GOOD")))
	require.NoError(t, tx.Commit())

	txns, err := s.Transactions(ctx, ledger.Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"GOOD"}, descriptions(txns))
}

func testImportRollback(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	a := Account("A", 0)
	require.NoError(t, s.CreateAccount(ctx, a))

	tx, err := s.BeginImport(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Insert(ctx, Txn(a.ID, 2, "-2", "DISCARDED")))
	require.NoError(t, tx.Rollback())

	txns, err := s.Transactions(ctx, ledger.Query{})
	require.NoError(t, err)
	assert.Empty(t, txns)

	// The slot is free again.
	tx, err = s.BeginImport(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
}

func testViewConcurrentReads(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	a := Account("A", 0)
	require.NoError(t, s.CreateAccount(ctx, a))
	require.NoError(t, s.InsertTransaction(ctx, Txn(a.ID, 1, "-1", "ONE")))
	require.NoError(t, s.CreateCategory(ctx, Category("Other", 0)))

	err := s.View(ctx, func(r ledger.Reader) error {
		var wg sync.WaitGroup
		var accounts []model.Account
		var txns []model.Transaction
		var cats []model.Category
		var errs [3]error
		wg.Add(3)
		go func() { defer wg.Done(); accounts, errs[0] = r.Accounts(ctx) }()
		go func() { defer wg.Done(); txns, errs[1] = r.Transactions(ctx, ledger.Query{}) }()
		go func() { defer wg.Done(); cats, errs[2] = r.Categories(ctx) }()
		wg.Wait()
		for _, err := range errs {
			require.NoError(t, err)
		}
		assert.Len(t, accounts, 1)
		assert.Len(t, txns, 1)
		assert.Len(t, cats, 1)
		return nil
	})
	require.NoError(t, err)
}

func testClosedStoreUnavailable(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	require.NoError(t, s.Close())
	_, err := s.Accounts(ctx)
	assert.ErrorIs(t, err, ledger.ErrUnavailable)
	_, err = s.BeginImport(ctx)
	assert.ErrorIs(t, err, ledger.ErrUnavailable)
}

func descriptions(txns []model.Transaction) []string {
	out := make([]string, len(txns))
	for i, t := range txns {
		out[i] = t.RawDescription
	}
	return out
}
