package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseMonthKey(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2025-06", true},
		{" 2025-12 ", true},
		{"2025-6", false},
		{"2025-13", false},
		{"2025-00", false},
		{"25-06", false},
		{"2025-06-01", false},
		{"", false},
	}
	for _, tc := range cases {
		_, err := ParseMonthKey(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q expected ok, got %v", tc.in, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidMonth) {
			t.Fatalf("%q expected invalid month, got %v", tc.in, err)
		}
	}
}

func TestMonthKeyOrdering(t *testing.T) {
	if !MonthKey("2025-10").After("2025-09") {
		t.Fatal("2025-10 should be after 2025-09")
	}
	if !MonthKey("2026-01").After("2025-12") {
		t.Fatal("2026-01 should be after 2025-12")
	}
	if MonthKey("2025-06").After("2025-06") {
		t.Fatal("a month is not after itself")
	}
}

func TestMonthOf(t *testing.T) {
	got := MonthOf(time.Date(2025, time.March, 31, 23, 0, 0, 0, time.UTC))
	if got != "2025-03" {
		t.Fatalf("MonthOf = %q, want 2025-03", got)
	}
}
