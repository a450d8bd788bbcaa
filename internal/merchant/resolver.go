// Package merchant resolves raw transaction descriptions to known merchants.
package merchant

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/enough-app/enough/internal/id"
	"github.com/enough-app/enough/internal/model"
	"github.com/enough-app/enough/internal/pattern"
)

// Matches reports whether description contains m's pattern, ignoring case.
// A merchant with an empty pattern never matches.
func Matches(m model.Merchant, description string) bool {
	if pattern.IsEmpty(m.RawPattern) {
		return false
	}
	fold := cases.Fold()
	return strings.Contains(fold.String(description), fold.String(m.RawPattern))
}

// Resolve returns the merchant whose pattern appears in description.
//
// When several merchants match, the longest pattern wins, then the most
// recently created merchant, then the lowest ID.
func Resolve(description string, merchants []model.Merchant) (model.Merchant, bool) {
	var best model.Merchant
	found := false
	for _, m := range merchants {
		if !Matches(m, description) {
			continue
		}
		if !found || preferred(m, best) {
			best = m
			found = true
		}
	}
	return best, found
}

// preferred reports whether a beats b under the tie-break rules.
func preferred(a, b model.Merchant) bool {
	la, lb := utf8.RuneCountInString(a.RawPattern), utf8.RuneCountInString(b.RawPattern)
	if la != lb {
		return la > lb
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

// FromTransaction builds a new merchant from a transaction's description.
// An empty displayName falls back to the cleaned description.
func FromTransaction(t model.Transaction, displayName string, categoryID *uuid.UUID) model.Merchant {
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = pattern.Clean(t.RawDescription)
	}
	return model.Merchant{
		ID:                id.New(),
		RawPattern:        pattern.Extract(t.RawDescription),
		DisplayName:       name,
		DefaultCategoryID: categoryID,
		CreatedAt:         time.Now().UTC(),
	}
}

// DisplayName returns the merchant display name when one is attached,
// otherwise the cleaned description.
func DisplayName(t model.Transaction, merchants map[uuid.UUID]model.Merchant) string {
	if t.MerchantID != nil {
		if m, ok := merchants[*t.MerchantID]; ok {
			return m.DisplayName
		}
	}
	return pattern.Clean(t.RawDescription)
}

// Suggestion is a merchant that looks similar to an unresolved description.
type Suggestion struct {
	Merchant model.Merchant
	Distance int
}

// Suggest ranks merchants by edit distance between their pattern and the
// description's extracted pattern. Suggestions are hints only; they are
// never assigned automatically. Candidates further away than half the
// longer pattern are dropped.
func Suggest(description string, merchants []model.Merchant, limit int) []Suggestion {
	if limit <= 0 {
		return nil
	}
	fold := cases.Fold()
	want := fold.String(pattern.Extract(description))
	if pattern.IsEmpty(want) {
		return nil
	}

	var out []Suggestion
	for _, m := range merchants {
		if pattern.IsEmpty(m.RawPattern) {
			continue
		}
		p := fold.String(m.RawPattern)
		d := levenshtein.ComputeDistance(want, p)
		longest := max(utf8.RuneCountInString(want), utf8.RuneCountInString(p))
		if d*2 > longest {
			continue
		}
		out = append(out, Suggestion{Merchant: m, Distance: d})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Merchant.DisplayName < out[j].Merchant.DisplayName
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
