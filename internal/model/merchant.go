package model

import (
	"time"

	"github.com/google/uuid"
)

// Merchant maps a description pattern to a canonical display name and an
// optional default category.
type Merchant struct {
	ID                uuid.UUID
	RawPattern        string // case-insensitive substring
	DisplayName       string
	DefaultCategoryID *uuid.UUID
	CreatedAt         time.Time
}

// Category groups spending. The default set is seeded once per ledger.
type Category struct {
	ID        uuid.UUID
	Name      string
	Icon      string
	Color     string
	SortOrder int
	IsDefault bool
	CreatedAt time.Time
}
