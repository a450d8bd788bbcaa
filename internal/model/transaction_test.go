package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBalance_IgnoresUnreviewed(t *testing.T) {
	txns := []Transaction{
		{Amount: decimal.RequireFromString("1000.00"), Reviewed: true},
		{Amount: decimal.RequireFromString("-45.50"), Reviewed: true},
		{Amount: decimal.RequireFromString("-999.99"), Reviewed: false},
	}
	assert.Equal(t, "954.50", Balance(txns).StringFixed(2))
}

func TestBalance_Empty(t *testing.T) {
	assert.True(t, Balance(nil).IsZero())
}

func TestTransactionNeedsReview(t *testing.T) {
	cat := uuid.New()
	tests := []struct {
		name     string
		reviewed bool
		category *uuid.UUID
		want     bool
	}{
		{"unreviewed uncategorized", false, nil, true},
		{"unreviewed categorized", false, &cat, false},
		{"reviewed uncategorized", true, nil, false},
		{"reviewed categorized", true, &cat, false},
	}
	for _, tt := range tests {
		txn := Transaction{Reviewed: tt.reviewed, CategoryID: tt.category}
		assert.Equal(t, tt.want, txn.NeedsReview(), tt.name)
	}
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("AEST", 10*60*60)
	in := time.Date(2025, 3, 14, 23, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), DateOf(in))
}

func TestMonthStart(t *testing.T) {
	in := time.Date(2025, 12, 31, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), MonthStart(in))
}

func TestBankTypeDisplayName(t *testing.T) {
	assert.Equal(t, "Commonwealth Bank", BankCBA.DisplayName())
	assert.Equal(t, "ING Australia", BankING.DisplayName())
	assert.Equal(t, "Westpac", BankWestpac.DisplayName())
	assert.True(t, BankUp.Valid())
	assert.False(t, BankType("Monzo").Valid())
}

func TestAccountKind(t *testing.T) {
	assert.Equal(t, "Everyday", AccountChecking.DisplayName())
	assert.Equal(t, "Credit Card", AccountCredit.DisplayName())
	assert.False(t, AccountKind("loan").Valid())
}
