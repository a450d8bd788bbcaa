// Package accounts looks up and creates bank accounts.
package accounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/enough-app/enough/internal/ledger"
	"github.com/enough-app/enough/internal/model"
)

// Service provides in-memory lookup over the account list.
type Service struct {
	accounts []model.Account
	byID     map[uuid.UUID]model.Account
}

// NewService creates a Service from a slice of accounts.
func NewService(accounts []model.Account) *Service {
	byID := make(map[uuid.UUID]model.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	return &Service{accounts: accounts, byID: byID}
}

// Load reads every account from r and returns a Service.
func Load(ctx context.Context, r ledger.Reader) (*Service, error) {
	accts, err := r.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}
	return NewService(accts), nil
}

// All returns all accounts in display order.
func (s *Service) All() []model.Account {
	return s.accounts
}

// Get returns an account by ID.
func (s *Service) Get(id uuid.UUID) (model.Account, bool) {
	a, ok := s.byID[id]
	return a, ok
}

// Exists reports whether an account ID exists.
func (s *Service) Exists(id uuid.UUID) bool {
	_, ok := s.byID[id]
	return ok
}

// ByKind returns all accounts of the given kind.
func (s *Service) ByKind(kind model.AccountKind) []model.Account {
	var result []model.Account
	for _, a := range s.accounts {
		if a.Kind == kind {
			result = append(result, a)
		}
	}
	return result
}

// Resolve finds an account by full ID, unambiguous ID prefix, or name
// (case-insensitive). An empty ref resolves only when there is exactly
// one active account.
func (s *Service) Resolve(ref string) (model.Account, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		var active []model.Account
		for _, a := range s.accounts {
			if a.Active {
				active = append(active, a)
			}
		}
		if len(active) == 1 {
			return active[0], nil
		}
		return model.Account{}, fmt.Errorf("%d active accounts, choose one with --account: %w", len(active), ledger.ErrNotFound)
	}
	if id, err := uuid.Parse(ref); err == nil {
		if a, ok := s.byID[id]; ok {
			return a, nil
		}
		return model.Account{}, fmt.Errorf("account %s: %w", ref, ledger.ErrNotFound)
	}
	for _, a := range s.accounts {
		if strings.EqualFold(a.Name, ref) {
			return a, nil
		}
	}
	var matches []model.Account
	for _, a := range s.accounts {
		if strings.HasPrefix(a.ID.String(), strings.ToLower(ref)) {
			matches = append(matches, a)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return model.Account{}, fmt.Errorf("account %q: %w", ref, ledger.ErrNotFound)
	default:
		return model.Account{}, fmt.Errorf("account %q is ambiguous (%d matches): %w", ref, len(matches), ledger.ErrConflict)
	}
}

// NextSortOrder returns the sort order for a newly added account.
func (s *Service) NextSortOrder() int {
	next := 0
	for _, a := range s.accounts {
		if a.SortOrder >= next {
			next = a.SortOrder + 1
		}
	}
	return next
}
