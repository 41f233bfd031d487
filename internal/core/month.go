package core

import (
	"strings"
	"time"
)

// MonthLayout is the layout of a MonthKey.
const MonthLayout = "2006-01"

// MonthKey identifies a budget period as "YYYY-MM". The format is fixed width
// and zero padded, so string order is chronological order.
type MonthKey string

// ParseMonthKey validates s and returns it as a MonthKey.
func ParseMonthKey(s string) (MonthKey, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(MonthLayout) {
		return "", &ValidationError{Field: "month", Err: ErrInvalidMonth}
	}
	if _, err := time.Parse(MonthLayout, s); err != nil {
		return "", &ValidationError{Field: "month", Err: ErrInvalidMonth}
	}
	return MonthKey(s), nil
}

// MonthOf returns the month key of t.
func MonthOf(t time.Time) MonthKey {
	return MonthKey(t.Format(MonthLayout))
}

// After reports whether m is strictly later than other.
func (m MonthKey) After(other MonthKey) bool {
	return m > other
}

func (m MonthKey) String() string {
	return string(m)
}
