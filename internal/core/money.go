// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents and decimal representations.
package core

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// maxAmount keeps cents comfortably inside int64.
var maxAmount = decimal.New(1, 15)

// ParseAmount converts a decimal string to Money with half-up rounding to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs,
// exponents and anything that is not a plain decimal are rejected. Zero is
// accepted here; callers decide whether zero is meaningful (budgets allow it,
// expenses do not).
//
// Examples:
//   ParseAmount("12.34") -> 1234
//   ParseAmount("12,345") -> 1235
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	s = strings.ReplaceAll(s, ",", ".")
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return Money{}, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	if d.GreaterThanOrEqual(maxAmount) {
		return Money{}, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	return Money{Cents: d.Shift(2).Round(0).IntPart()}, nil
}

// ParseDecimalToCents parses a strictly positive amount, as required for expenses.
func ParseDecimalToCents(s string) (int64, error) {
	m, err := ParseAmount(s)
	if err != nil {
		return 0, err
	}
	if err := m.Validate(); err != nil {
		return 0, err
	}
	return m.Cents, nil
}

// Decimal returns the amount as an exact decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with two decimals, e.g. "12.34".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// USD formats the amount for display, e.g. "$1,234.50" or "-$3.00".
func (m Money) USD() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	rem := cents % 100
	frac := string([]byte{byte('0' + rem/10), byte('0' + rem%10)})
	return sign + "$" + humanize.Comma(cents/100) + "." + frac
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}
