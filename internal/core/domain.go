package core

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DateLayout is the wire format of expense dates.
	DateLayout = "2006-01-02"

	maxNameLength     = 200
	maxUsernameLength = 64
)

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID           int64
		Username     string
		PasswordHash string
		CreatedAt    time.Time
	}

	// Budget is the spending limit of one user for one month.
	// Locked only ever moves from false to true.
	Budget struct {
		ID        int64
		UserID    int64
		Month     MonthKey
		Amount    Money
		Locked    bool
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Expense struct {
		ID        int64
		UserID    int64
		Name      string
		Amount    Money
		Date      Date
		CreatedAt time.Time
		UpdatedAt time.Time
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Err: ErrInvalidDate}
	}
	return Date{Time: t}, nil
}

// String returns the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MonthKey returns the budget period the date falls in.
func (d Date) MonthKey() MonthKey {
	return MonthOf(d.Time)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return &ValidationError{Field: "date", Err: ErrInvalidDate}
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return &ValidationError{Field: "name", Err: ErrEmptyName}
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return &ValidationError{Field: "name", Err: fmt.Errorf("name too long (max %d characters)", maxNameLength)}
	}
	return e.Amount.Validate()
}

// Validate checks month format and a non-negative amount. Zero budgets are allowed.
func (b Budget) Validate() error {
	if _, err := ParseMonthKey(string(b.Month)); err != nil {
		return err
	}
	if b.Amount.Cents < 0 {
		return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	return nil
}

// ValidateUsername trims and checks a username for registration.
func ValidateUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", &ValidationError{Field: "username", Err: ErrEmptyUsername}
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return "", &ValidationError{Field: "username", Err: fmt.Errorf("username too long (max %d characters)", maxUsernameLength)}
	}
	return username, nil
}
