package id

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// namespace scopes all name-derived IDs to this application.
var namespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("enough"))

// New returns a fresh random ID.
func New() uuid.UUID {
	return uuid.New()
}

// Category returns the deterministic ID for a category name.
// "Personal Care" and "personal care" map to the same ID.
func Category(name string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte("category:"+normalize(name)))
}

// Parse parses a full UUID or fails with a readable message.
func Parse(s string) (uuid.UUID, error) {
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid ID %q: %w", s, err)
	}
	return u, nil
}

// Short returns the first 8 hex characters of an ID, for display.
func Short(u uuid.UUID) string {
	return u.String()[:8]
}

// Ptr returns a pointer to a copy of u.
func Ptr(u uuid.UUID) *uuid.UUID {
	return &u
}

func normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
