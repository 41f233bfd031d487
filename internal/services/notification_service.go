package services

import (
	"context"
	"errors"
	"fmt"

	"budgetbook/internal/core"
	"budgetbook/internal/log"
	"budgetbook/internal/storage"
)

// NotificationService keeps one over-budget notification per user and month.
type NotificationService struct {
	ledger  *LedgerService
	storage *storage.SQLiteRepository
}

func NewNotificationService(ledger *LedgerService, storage *storage.SQLiteRepository) *NotificationService {
	return &NotificationService{ledger: ledger, storage: storage}
}

// Evaluate recomputes month and stores a notification when spending exceeds
// the budget, or removes it when it no longer does. It reports whether the
// month is over budget.
func (s *NotificationService) Evaluate(ctx context.Context, userID int64, month core.MonthKey) (bool, error) {
	month, err := checkMonth(month)
	if err != nil {
		return false, err
	}

	sum, err := s.ledger.ComputeSummary(ctx, userID, month)
	if errors.Is(err, core.ErrNoBudgetForMonth) {
		return false, s.clear(ctx, userID, month)
	}
	if err != nil {
		return false, fmt.Errorf("compute summary: %w", err)
	}

	if !sum.OverBudget() {
		return false, s.clear(ctx, userID, month)
	}

	n, err := s.storage.Queries().UpsertNotification(ctx, storage.UpsertNotificationParams{
		UserID:      userID,
		Month:       month,
		BudgetCents: sum.BudgetAmount.Cents,
		TotalCents:  sum.TotalExpense.Cents,
		Message:     overBudgetMessage(sum),
	})
	if err != nil {
		return true, fmt.Errorf("save notification: %w", err)
	}
	ledgerLogger(ctx).InfoContext(ctx, "Month over budget",
		log.FieldUserID, userID,
		log.FieldMonth, month,
		"notification_id", n.ID,
		"over_by_cents", -sum.Remaining().Cents)
	return true, nil
}

func (s *NotificationService) clear(ctx context.Context, userID int64, month core.MonthKey) error {
	if _, err := s.storage.Queries().DeleteNotification(ctx, userID, month); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

// List returns the user's notifications, most recently updated first.
func (s *NotificationService) List(ctx context.Context, userID int64) ([]core.Notification, error) {
	ns, err := s.storage.Queries().ListNotifications(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return ns, nil
}

func overBudgetMessage(sum core.Summary) string {
	over := sum.TotalExpense.Sub(sum.BudgetAmount)
	return fmt.Sprintf("Spent %s of a %s budget in %s, %s over.",
		sum.TotalExpense.USD(), sum.BudgetAmount.USD(), sum.Month, over.USD())
}
