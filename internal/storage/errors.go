package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"budgetbook/internal/core"
)

// ErrNotFound is returned when a query matches no row.
var ErrNotFound = errors.New("record not found")

// mapError translates driver errors into the store's error vocabulary.
// The original error stays in the chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
		case sqlite3.SQLITE_CONSTRAINT:
			if se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || strings.Contains(se.Error(), "UNIQUE constraint failed") {
				return fmt.Errorf("%w: %w", core.ErrConflict, err)
			}
		}
	}
	return err
}

func isConflict(err error) bool {
	return errors.Is(err, core.ErrConflict)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
