package sqlite

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/enough-app/enough/internal/ledger"
)

// classify maps driver errors onto the ledger sentinels. what names the
// record for the message.
func classify(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ledger.ErrNotFound)
	}

	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code {
		case sqlite3.ErrConstraint:
			if se.ExtendedCode == sqlite3.ErrConstraintForeignKey {
				return fmt.Errorf("%s: %w", what, ledger.ErrMissingReference)
			}
			return fmt.Errorf("%s: %w", what, ledger.ErrConflict)
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrCantOpen, sqlite3.ErrIoErr,
			sqlite3.ErrCorrupt, sqlite3.ErrFull, sqlite3.ErrNotADB, sqlite3.ErrReadonly:
			return fmt.Errorf("%s: %w: %v", what, ledger.ErrUnavailable, err)
		}
	}

	// database/sql does not export its closed-handle error.
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) ||
		strings.Contains(err.Error(), "sql: database is closed") {
		return fmt.Errorf("%s: %w: %v", what, ledger.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}
