package model

import (
	"time"

	"github.com/google/uuid"
)

// BankType identifies the institution an account is held with.
type BankType string

const (
	BankING       BankType = "ING"
	BankCBA       BankType = "CBA"
	BankANZ       BankType = "ANZ"
	BankWestpac   BankType = "Westpac"
	BankNAB       BankType = "NAB"
	BankUp        BankType = "Up"
	BankMacquarie BankType = "Macquarie"
	BankOther     BankType = "Other"
)

// Banks lists every supported BankType in display order.
var Banks = []BankType{BankING, BankCBA, BankANZ, BankWestpac, BankNAB, BankUp, BankMacquarie, BankOther}

// DisplayName returns the long institution name.
func (b BankType) DisplayName() string {
	switch b {
	case BankING:
		return "ING Australia"
	case BankCBA:
		return "Commonwealth Bank"
	case BankANZ, BankWestpac, BankNAB, BankUp, BankMacquarie:
		return string(b)
	default:
		return "Other"
	}
}

// Valid reports whether b is one of the supported banks.
func (b BankType) Valid() bool {
	for _, known := range Banks {
		if b == known {
			return true
		}
	}
	return false
}

// AccountKind classifies an account.
type AccountKind string

const (
	AccountChecking AccountKind = "checking"
	AccountSavings  AccountKind = "savings"
	AccountCredit   AccountKind = "credit"
)

// DisplayName returns the user-facing account kind label.
func (k AccountKind) DisplayName() string {
	switch k {
	case AccountChecking:
		return "Everyday"
	case AccountSavings:
		return "Savings"
	case AccountCredit:
		return "Credit Card"
	default:
		return string(k)
	}
}

// Valid reports whether k is a known account kind.
func (k AccountKind) Valid() bool {
	return k == AccountChecking || k == AccountSavings || k == AccountCredit
}

// DefaultAccountColor is the hex color given to new accounts.
const DefaultAccountColor = "7A9A7E"

// Account is a bank account that owns a set of transactions.
// Deleting an account deletes its transactions.
type Account struct {
	ID        uuid.UUID
	Name      string
	Bank      BankType
	Kind      AccountKind
	Color     string // hex, no leading '#'
	SortOrder int
	Active    bool
	CreatedAt time.Time
}
