// Package memory is an in-process ledger.Store. Transactions live in one
// map per account, so deleting an account drops its transactions in one
// step. It backs tests and dry-run imports, which replay an import against
// a copy of the real ledger.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/enough-app/enough/internal/ledger"
	"github.com/enough-app/enough/internal/model"
)

// Store holds the whole ledger in memory. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	st     *state
	closed bool

	// importSlot admits one import batch at a time.
	importSlot chan struct{}
}

var _ ledger.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{st: newState(), importSlot: make(chan struct{}, 1)}
}

// Load copies every record readable from r into a new Store.
func Load(ctx context.Context, r ledger.Reader) (*Store, error) {
	s := New()
	accounts, err := r.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}
	categories, err := r.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}
	merchants, err := r.Merchants(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading merchants: %w", err)
	}
	txns, err := r.Transactions(ctx, ledger.Query{})
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	for _, a := range accounts {
		s.st.accounts[a.ID] = a
		s.st.ledgers[a.ID] = make(map[uuid.UUID]model.Transaction)
	}
	for _, c := range categories {
		s.st.categories[c.ID] = c
	}
	for _, m := range merchants {
		s.st.merchants[m.ID] = cloneMerchant(m)
	}
	for _, t := range txns {
		if _, ok := s.st.accounts[t.AccountID]; !ok {
			continue
		}
		s.st.put(t)
	}
	return s, nil
}

// Close marks the store unavailable. Later calls fail with ledger.ErrUnavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) read(fn func(st *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ledger.ErrUnavailable
	}
	return fn(s.st)
}

func (s *Store) write(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ledger.ErrUnavailable
	}
	return fn(s.st)
}

// View runs fn against a copy of the ledger taken under the read lock.
func (s *Store) View(ctx context.Context, fn func(r ledger.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var snap *state
	if err := s.read(func(st *state) error {
		snap = st.clone()
		return nil
	}); err != nil {
		return err
	}
	return fn(snapshot{st: snap})
}

func (s *Store) Account(ctx context.Context, id uuid.UUID) (model.Account, error) {
	var a model.Account
	err := s.read(func(st *state) error {
		var err error
		a, err = st.account(id)
		return err
	})
	return a, err
}

func (s *Store) Accounts(ctx context.Context) ([]model.Account, error) {
	var out []model.Account
	err := s.read(func(st *state) error {
		out = st.listAccounts()
		return nil
	})
	return out, err
}

func (s *Store) Categories(ctx context.Context) ([]model.Category, error) {
	var out []model.Category
	err := s.read(func(st *state) error {
		out = st.listCategories()
		return nil
	})
	return out, err
}

func (s *Store) Merchants(ctx context.Context) ([]model.Merchant, error) {
	var out []model.Merchant
	err := s.read(func(st *state) error {
		out = st.listMerchants()
		return nil
	})
	return out, err
}

func (s *Store) Transaction(ctx context.Context, id uuid.UUID) (model.Transaction, error) {
	var t model.Transaction
	err := s.read(func(st *state) error {
		var err error
		t, err = st.transaction(id)
		return err
	})
	return t, err
}

func (s *Store) Transactions(ctx context.Context, q ledger.Query) ([]model.Transaction, error) {
	var out []model.Transaction
	err := s.read(func(st *state) error {
		out = st.listTransactions(q)
		return nil
	})
	return out, err
}

func (s *Store) CreateAccount(ctx context.Context, a model.Account) error {
	if err := ledger.Join(ledger.ValidateAccount(a)); err != nil {
		return err
	}
	return s.write(func(st *state) error {
		if _, ok := st.accounts[a.ID]; ok {
			return fmt.Errorf("account %s: %w", a.ID, ledger.ErrConflict)
		}
		st.accounts[a.ID] = a
		st.ledgers[a.ID] = make(map[uuid.UUID]model.Transaction)
		return nil
	})
}

func (s *Store) UpdateAccount(ctx context.Context, a model.Account) error {
	if err := ledger.Join(ledger.ValidateAccount(a)); err != nil {
		return err
	}
	return s.write(func(st *state) error {
		if _, ok := st.accounts[a.ID]; !ok {
			return fmt.Errorf("account %s: %w", a.ID, ledger.ErrNotFound)
		}
		st.accounts[a.ID] = a
		return nil
	})
}

func (s *Store) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	return s.write(func(st *state) error {
		if _, ok := st.accounts[id]; !ok {
			return fmt.Errorf("account %s: %w", id, ledger.ErrNotFound)
		}
		for txnID := range st.ledgers[id] {
			delete(st.owner, txnID)
		}
		delete(st.ledgers, id)
		delete(st.accounts, id)
		return nil
	})
}

func (s *Store) CreateCategory(ctx context.Context, c model.Category) error {
	if err := ledger.Join(ledger.ValidateCategory(c)); err != nil {
		return err
	}
	return s.write(func(st *state) error {
		if _, ok := st.categories[c.ID]; ok {
			return fmt.Errorf("category %s: %w", c.ID, ledger.ErrConflict)
		}
		for _, existing := range st.categories {
			if strings.EqualFold(existing.Name, c.Name) {
				return fmt.Errorf("category %q: %w", c.Name, ledger.ErrConflict)
			}
		}
		st.categories[c.ID] = c
		return nil
	})
}

func (s *Store) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.write(func(st *state) error {
		if _, ok := st.categories[id]; !ok {
			return fmt.Errorf("category %s: %w", id, ledger.ErrNotFound)
		}
		delete(st.categories, id)
		for mid, m := range st.merchants {
			if m.DefaultCategoryID != nil && *m.DefaultCategoryID == id {
				m.DefaultCategoryID = nil
				st.merchants[mid] = m
			}
		}
		st.eachTransaction(func(t *model.Transaction) {
			if t.CategoryID != nil && *t.CategoryID == id {
				t.CategoryID = nil
			}
		})
		return nil
	})
}

func (s *Store) CreateMerchant(ctx context.Context, m model.Merchant) error {
	if err := ledger.Join(ledger.ValidateMerchant(m)); err != nil {
		return err
	}
	return s.write(func(st *state) error {
		if _, ok := st.merchants[m.ID]; ok {
			return fmt.Errorf("merchant %s: %w", m.ID, ledger.ErrConflict)
		}
		if err := st.checkCategory(m.DefaultCategoryID); err != nil {
			return err
		}
		st.merchants[m.ID] = cloneMerchant(m)
		return nil
	})
}

func (s *Store) UpdateMerchant(ctx context.Context, m model.Merchant) error {
	if err := ledger.Join(ledger.ValidateMerchant(m)); err != nil {
		return err
	}
	return s.write(func(st *state) error {
		if _, ok := st.merchants[m.ID]; !ok {
			return fmt.Errorf("merchant %s: %w", m.ID, ledger.ErrNotFound)
		}
		if err := st.checkCategory(m.DefaultCategoryID); err != nil {
			return err
		}
		st.merchants[m.ID] = cloneMerchant(m)
		return nil
	})
}

func (s *Store) DeleteMerchant(ctx context.Context, id uuid.UUID) error {
	return s.write(func(st *state) error {
		if _, ok := st.merchants[id]; !ok {
			return fmt.Errorf("merchant %s: %w", id, ledger.ErrNotFound)
		}
		delete(st.merchants, id)
		st.eachTransaction(func(t *model.Transaction) {
			if t.MerchantID != nil && *t.MerchantID == id {
				t.MerchantID = nil
			}
		})
		return nil
	})
}

func (s *Store) InsertTransaction(ctx context.Context, t model.Transaction) error {
	if err := ledger.Join(ledger.ValidateTransaction(t, nil)); err != nil {
		return err
	}
	return s.write(func(st *state) error {
		if err := st.checkInsert(t); err != nil {
			return err
		}
		st.put(t)
		return nil
	})
}

func (s *Store) UpdateTransaction(ctx context.Context, t model.Transaction) error {
	if err := ledger.Join(ledger.ValidateTransaction(t, nil)); err != nil {
		return err
	}
	return s.write(func(st *state) error {
		prev, ok := st.owner[t.ID]
		if !ok {
			return fmt.Errorf("transaction %s: %w", t.ID, ledger.ErrNotFound)
		}
		if err := st.checkRefs(t); err != nil {
			return err
		}
		delete(st.ledgers[prev], t.ID)
		st.put(t)
		return nil
	})
}

func (s *Store) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	return s.write(func(st *state) error {
		acct, ok := st.owner[id]
		if !ok {
			return fmt.Errorf("transaction %s: %w", id, ledger.ErrNotFound)
		}
		delete(st.ledgers[acct], id)
		delete(st.owner, id)
		return nil
	})
}

// snapshot serves reads from a private copy of the state.
type snapshot struct {
	st *state
}

func (s snapshot) Account(_ context.Context, id uuid.UUID) (model.Account, error) {
	return s.st.account(id)
}

func (s snapshot) Accounts(context.Context) ([]model.Account, error) {
	return s.st.listAccounts(), nil
}

func (s snapshot) Categories(context.Context) ([]model.Category, error) {
	return s.st.listCategories(), nil
}

func (s snapshot) Merchants(context.Context) ([]model.Merchant, error) {
	return s.st.listMerchants(), nil
}

func (s snapshot) Transaction(_ context.Context, id uuid.UUID) (model.Transaction, error) {
	return s.st.transaction(id)
}

func (s snapshot) Transactions(_ context.Context, q ledger.Query) ([]model.Transaction, error) {
	return s.st.listTransactions(q), nil
}

// state is the unlocked ledger data. Callers hold Store.mu.
type state struct {
	accounts   map[uuid.UUID]model.Account
	ledgers    map[uuid.UUID]map[uuid.UUID]model.Transaction // account -> transactions
	owner      map[uuid.UUID]uuid.UUID                       // transaction -> account
	merchants  map[uuid.UUID]model.Merchant
	categories map[uuid.UUID]model.Category
}

func newState() *state {
	return &state{
		accounts:   make(map[uuid.UUID]model.Account),
		ledgers:    make(map[uuid.UUID]map[uuid.UUID]model.Transaction),
		owner:      make(map[uuid.UUID]uuid.UUID),
		merchants:  make(map[uuid.UUID]model.Merchant),
		categories: make(map[uuid.UUID]model.Category),
	}
}

func (st *state) clone() *state {
	c := newState()
	for id, a := range st.accounts {
		c.accounts[id] = a
	}
	for acct, txns := range st.ledgers {
		m := make(map[uuid.UUID]model.Transaction, len(txns))
		for id, t := range txns {
			m[id] = cloneTransaction(t)
		}
		c.ledgers[acct] = m
	}
	for id, acct := range st.owner {
		c.owner[id] = acct
	}
	for id, m := range st.merchants {
		c.merchants[id] = cloneMerchant(m)
	}
	for id, cat := range st.categories {
		c.categories[id] = cat
	}
	return c
}

func (st *state) account(id uuid.UUID) (model.Account, error) {
	a, ok := st.accounts[id]
	if !ok {
		return model.Account{}, fmt.Errorf("account %s: %w", id, ledger.ErrNotFound)
	}
	return a, nil
}

func (st *state) transaction(id uuid.UUID) (model.Transaction, error) {
	acct, ok := st.owner[id]
	if !ok {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", id, ledger.ErrNotFound)
	}
	return cloneTransaction(st.ledgers[acct][id]), nil
}

func (st *state) listAccounts() []model.Account {
	out := make([]model.Account, 0, len(st.accounts))
	for _, a := range st.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (st *state) listCategories() []model.Category {
	out := make([]model.Category, 0, len(st.categories))
	for _, c := range st.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (st *state) listMerchants() []model.Merchant {
	out := make([]model.Merchant, 0, len(st.merchants))
	for _, m := range st.merchants {
		out = append(out, cloneMerchant(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (st *state) listTransactions(q ledger.Query) []model.Transaction {
	var out []model.Transaction
	collect := func(txns map[uuid.UUID]model.Transaction) {
		for _, t := range txns {
			if q.Matches(t) {
				out = append(out, cloneTransaction(t))
			}
		}
	}
	if q.AccountID != nil {
		collect(st.ledgers[*q.AccountID])
	} else {
		for _, txns := range st.ledgers {
			collect(txns)
		}
	}
	SortTransactions(out)
	return out
}

// SortTransactions orders newest date first, then newest import, then ID.
func SortTransactions(txns []model.Transaction) {
	sort.Slice(txns, func(i, j int) bool {
		a, b := txns[i], txns[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if !a.ImportedAt.Equal(b.ImportedAt) {
			return a.ImportedAt.After(b.ImportedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

func (st *state) eachTransaction(fn func(t *model.Transaction)) {
	for _, txns := range st.ledgers {
		for id, t := range txns {
			fn(&t)
			txns[id] = t
		}
	}
}

func (st *state) checkCategory(id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, ok := st.categories[*id]; !ok {
		return fmt.Errorf("category %s: %w", *id, ledger.ErrMissingReference)
	}
	return nil
}

func (st *state) checkRefs(t model.Transaction) error {
	if _, ok := st.accounts[t.AccountID]; !ok {
		return fmt.Errorf("account %s: %w", t.AccountID, ledger.ErrMissingReference)
	}
	if t.MerchantID != nil {
		if _, ok := st.merchants[*t.MerchantID]; !ok {
			return fmt.Errorf("merchant %s: %w", *t.MerchantID, ledger.ErrMissingReference)
		}
	}
	return st.checkCategory(t.CategoryID)
}

func (st *state) checkInsert(t model.Transaction) error {
	if _, ok := st.owner[t.ID]; ok {
		return fmt.Errorf("transaction %s: %w", t.ID, ledger.ErrConflict)
	}
	return st.checkRefs(t)
}

func (st *state) put(t model.Transaction) {
	st.ledgers[t.AccountID][t.ID] = cloneTransaction(t)
	st.owner[t.ID] = t.AccountID
}

func cloneTransaction(t model.Transaction) model.Transaction {
	if t.ReviewedAt != nil {
		v := *t.ReviewedAt
		t.ReviewedAt = &v
	}
	if t.MerchantID != nil {
		v := *t.MerchantID
		t.MerchantID = &v
	}
	if t.CategoryID != nil {
		v := *t.CategoryID
		t.CategoryID = &v
	}
	return t
}

func cloneMerchant(m model.Merchant) model.Merchant {
	if m.DefaultCategoryID != nil {
		v := *m.DefaultCategoryID
		m.DefaultCategoryID = &v
	}
	return m
}
