package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"budgetbook/internal/core"
	"budgetbook/internal/log"
	"budgetbook/internal/storage"
)

// bcrypt ignores input past this length
const maxPasswordBytes = 72

// AccountService registers users and checks their credentials.
type AccountService struct {
	storage *storage.SQLiteRepository
	cost    int
	// compared against when the username is unknown, so both failure paths cost the same
	dummyHash []byte
}

func NewAccountService(storage *storage.SQLiteRepository) *AccountService {
	return newAccountService(storage, bcrypt.DefaultCost)
}

func newAccountService(storage *storage.SQLiteRepository, cost int) *AccountService {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("budgetbook-placeholder"), cost)
	return &AccountService{storage: storage, cost: cost, dummyHash: dummy}
}

func checkNewPassword(password, confirmation string) error {
	if password == "" {
		return &core.ValidationError{Field: "password", Err: core.ErrEmptyPassword}
	}
	if len(password) > maxPasswordBytes {
		return &core.ValidationError{Field: "password", Err: core.ErrPasswordTooLong}
	}
	if password != confirmation {
		return &core.ValidationError{Field: "confirmation", Err: core.ErrPasswordMismatch}
	}
	return nil
}

// Register creates a user with a bcrypt-hashed password.
func (s *AccountService) Register(ctx context.Context, username, password, confirmation string) (core.User, error) {
	username, err := core.ValidateUsername(username)
	if err != nil {
		return core.User{}, err
	}
	if err := checkNewPassword(password, confirmation); err != nil {
		return core.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.storage.Queries().CreateUser(ctx, username, string(hash))
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	authLogger(ctx).InfoContext(ctx, "User registered", log.FieldUserID, u.ID, "username", u.Username)
	return u, nil
}

// Authenticate returns the user for a valid username and password.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (core.User, error) {
	username, err := core.ValidateUsername(username)
	if err != nil {
		return core.User{}, core.ErrInvalidCredentials
	}

	u, err := s.storage.Queries().GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return core.User{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return core.User{}, core.ErrInvalidCredentials
	}
	return u, nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *AccountService) ChangePassword(ctx context.Context, userID int64, current, password, confirmation string) error {
	u, err := s.storage.Queries().GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.ErrUnauthenticated
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return core.ErrInvalidCredentials
	}
	if err := checkNewPassword(password, confirmation); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.storage.Queries().UpdateUserHash(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	authLogger(ctx).InfoContext(ctx, "Password changed", log.FieldUserID, userID)
	return nil
}

func authLogger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentAuth)
}
