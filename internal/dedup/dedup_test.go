package dedup

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/enough-app/enough/internal/model"
)

func txn(day int, amount, desc string) model.Transaction {
	return model.Transaction{
		ID:             uuid.New(),
		Date:           time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC),
		Amount:         decimal.RequireFromString(amount),
		RawDescription: desc,
	}
}

func TestIsDuplicate(t *testing.T) {
	base := txn(3, "-4.00", "GITHUB *PRO")
	tests := []struct {
		name  string
		other model.Transaction
		want  bool
	}{
		{"identical fields", txn(3, "-4.00", "GITHUB *PRO"), true},
		{"same amount different scale", txn(3, "-4", "GITHUB *PRO"), true},
		{"different date", txn(4, "-4.00", "GITHUB *PRO"), false},
		{"different amount", txn(3, "-4.01", "GITHUB *PRO"), false},
		{"sign flipped", txn(3, "4.00", "GITHUB *PRO"), false},
		{"different description", txn(3, "-4.00", "GITHUB *PRO "), false},
		{"description case differs", txn(3, "-4.00", "github *pro"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsDuplicate(base, tt.other), tt.name)
	}
}

func TestIsDuplicate_Reflexive(t *testing.T) {
	a := txn(9, "-12.50", "COLES 1234")
	assert.True(t, IsDuplicate(a, a))
}

func TestIsDuplicate_Symmetric(t *testing.T) {
	pairs := [][2]model.Transaction{
		{txn(1, "-1", "A"), txn(1, "-1.00", "A")},
		{txn(1, "-1", "A"), txn(2, "-1", "A")},
		{txn(5, "100", "PAY"), txn(5, "100", "PAYROLL")},
	}
	for _, p := range pairs {
		assert.Equal(t, IsDuplicate(p[0], p[1]), IsDuplicate(p[1], p[0]))
	}
}

func TestIsDuplicate_IgnoresIdentityAndReview(t *testing.T) {
	a := txn(3, "-4.00", "GITHUB")
	b := a
	b.ID = uuid.New()
	b.Reviewed = true
	b.AccountID = uuid.New()
	assert.True(t, IsDuplicate(a, b))
}

func TestIndex(t *testing.T) {
	idx := NewIndex([]model.Transaction{
		txn(3, "-4.00", "GITHUB"),
		txn(3, "-4", "GITHUB"), // same key as above
		txn(4, "-8.50", "COFFEE"),
	})
	assert.Equal(t, 2, idx.Len())
	assert.True(t, idx.Contains(txn(3, "-4.0", "GITHUB")))
	assert.False(t, idx.Contains(txn(3, "-4.00", "GITHUB INC")))

	p := model.ParsedTransaction{
		Date:        time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.RequireFromString("-8.5"),
		Description: "COFFEE",
	}
	assert.True(t, idx.ContainsParsed(p))

	fresh := txn(5, "-1", "NEW")
	assert.False(t, idx.Contains(fresh))
	idx.Add(fresh)
	assert.True(t, idx.Contains(fresh))
}

func TestIndex_AgreesWithIsDuplicate(t *testing.T) {
	existing := []model.Transaction{txn(1, "-10", "X"), txn(2, "-20", "Y")}
	idx := NewIndex(existing)
	candidates := []model.Transaction{txn(1, "-10.00", "X"), txn(2, "-20", "y"), txn(3, "-10", "X")}
	for _, c := range candidates {
		want := false
		for _, e := range existing {
			if IsDuplicate(c, e) {
				want = true
			}
		}
		assert.Equal(t, want, idx.Contains(c))
	}
}
