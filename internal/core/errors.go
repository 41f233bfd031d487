package core

import "errors"

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation error")

	ErrInvalidDate      = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidMonth     = errors.New("invalid month, expected YYYY-MM")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyUsername    = errors.New("empty username")
	ErrEmptyPassword    = errors.New("empty password")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPasswordTooLong  = errors.New("password longer than 72 bytes")

	ErrNotFoundOrUnauthorized = errors.New("expense not found or unauthorized")
	ErrNoBudgetForMonth       = errors.New("no budget set for month")
	ErrMonthLocked            = errors.New("month is closed")
	ErrFutureMonth            = errors.New("month is in the future")
	ErrAlreadyClosed          = errors.New("month is already closed")
	ErrDuplicateUsername      = errors.New("username already exists")
	ErrConflict               = errors.New("unique constraint violation")
	ErrStoreUnavailable       = errors.New("store unavailable, retry later")
	ErrInvalidCredentials     = errors.New("invalid username or password")
	ErrUnauthenticated        = errors.New("authentication required")
)

// ValidationError reports a malformed input field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
