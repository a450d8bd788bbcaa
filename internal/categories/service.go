// Package categories seeds and looks up spending categories.
package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/enough-app/enough/internal/ledger"
	"github.com/enough-app/enough/internal/model"
)

// Service provides in-memory lookup over the category list.
type Service struct {
	categories []model.Category
	byID       map[uuid.UUID]model.Category
	byName     map[string]model.Category
}

// NewService creates a Service from a slice of categories.
func NewService(categories []model.Category) *Service {
	byID := make(map[uuid.UUID]model.Category, len(categories))
	byName := make(map[string]model.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
		byName[strings.ToLower(c.Name)] = c
	}
	return &Service{categories: categories, byID: byID, byName: byName}
}

// Load reads every category from r and returns a Service.
func Load(ctx context.Context, r ledger.Reader) (*Service, error) {
	cats, err := r.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}
	return NewService(cats), nil
}

// All returns all categories in display order.
func (s *Service) All() []model.Category {
	return s.categories
}

// Get returns a category by ID.
func (s *Service) Get(id uuid.UUID) (model.Category, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// Exists reports whether a category ID exists.
func (s *Service) Exists(id uuid.UUID) bool {
	_, ok := s.byID[id]
	return ok
}

// ByName finds a category by name, ignoring case.
func (s *Service) ByName(name string) (model.Category, bool) {
	c, ok := s.byName[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// Resolve accepts either a category ID or a name.
func (s *Service) Resolve(ref string) (model.Category, error) {
	if u, err := uuid.Parse(strings.TrimSpace(ref)); err == nil {
		if c, ok := s.Get(u); ok {
			return c, nil
		}
	}
	if c, ok := s.ByName(ref); ok {
		return c, nil
	}
	return model.Category{}, fmt.Errorf("category %q: %w", ref, ledger.ErrNotFound)
}

// Name returns the category name for id, or "" when id is nil or unknown.
func (s *Service) Name(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return s.byID[*id].Name
}

// Store is the slice of ledger.Store that seeding needs.
type Store interface {
	Categories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, c model.Category) error
}

// Seed creates any built-in category that is missing, matching existing
// categories by ID or name. It returns the number created and is safe to
// run on every start.
func Seed(ctx context.Context, store Store, now time.Time) (int, error) {
	existing, err := store.Categories(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading categories: %w", err)
	}
	have := NewService(existing)

	created := 0
	for _, c := range DefaultSet(now) {
		if have.Exists(c.ID) {
			continue
		}
		if _, ok := have.ByName(c.Name); ok {
			continue
		}
		if err := store.CreateCategory(ctx, c); err != nil {
			if errors.Is(err, ledger.ErrConflict) {
				continue
			}
			return created, fmt.Errorf("seeding %s: %w", c.Name, err)
		}
		created++
	}
	return created, nil
}
