package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"budgetbook/internal/core"
)

func TestAccountService(t *testing.T) {
	f := newFixture(t)
	accounts := newAccountService(f.repo, bcrypt.MinCost)
	ctx := context.Background()

	u, err := accounts.Register(ctx, "  bob ", "s3cret", "s3cret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Username != "bob" {
		t.Errorf("username not trimmed: %q", u.Username)
	}
	if u.PasswordHash == "s3cret" {
		t.Error("password stored in clear")
	}

	registerErrs := []struct {
		name                    string
		username, pass, confirm string
		want                    error
	}{
		{"duplicate", "bob", "x", "x", core.ErrDuplicateUsername},
		{"empty username", " ", "x", "x", core.ErrEmptyUsername},
		{"empty password", "carol", "", "", core.ErrEmptyPassword},
		{"mismatch", "carol", "a", "b", core.ErrPasswordMismatch},
		{"too long", "carol", strings.Repeat("p", 73), strings.Repeat("p", 73), core.ErrPasswordTooLong},
	}
	for _, tt := range registerErrs {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := accounts.Register(ctx, tt.username, tt.pass, tt.confirm); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	got, err := accounts.Authenticate(ctx, "bob", "s3cret")
	if err != nil || got.ID != u.ID {
		t.Fatalf("authenticate: %+v, %v", got, err)
	}
	for _, creds := range [][2]string{{"bob", "wrong"}, {"nobody", "s3cret"}, {"", ""}} {
		if _, err := accounts.Authenticate(ctx, creds[0], creds[1]); !errors.Is(err, core.ErrInvalidCredentials) {
			t.Errorf("Authenticate(%q) = %v, want invalid credentials", creds[0], err)
		}
	}

	if err := accounts.ChangePassword(ctx, u.ID, "wrong", "n3w", "n3w"); !errors.Is(err, core.ErrInvalidCredentials) {
		t.Fatalf("change with bad current: %v", err)
	}
	if err := accounts.ChangePassword(ctx, u.ID, "s3cret", "n3w", "other"); !errors.Is(err, core.ErrPasswordMismatch) {
		t.Fatalf("change with mismatch: %v", err)
	}
	if err := accounts.ChangePassword(ctx, u.ID, "s3cret", "n3w", "n3w"); err != nil {
		t.Fatalf("change: %v", err)
	}
	if _, err := accounts.Authenticate(ctx, "bob", "n3w"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if err := accounts.ChangePassword(ctx, 9999, "a", "b", "b"); !errors.Is(err, core.ErrUnauthenticated) {
		t.Fatalf("unknown user: %v", err)
	}
}
