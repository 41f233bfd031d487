package services

import (
	"context"
	"errors"
	"fmt"

	"budgetbook/internal/amqp"
	"budgetbook/internal/core"
	"budgetbook/internal/log"
	"budgetbook/internal/metrics"
	"budgetbook/internal/storage"
)

// SetBudget creates or updates the budget for month and reports whether it
// was created. Future months are refused. Updating the amount of a closed
// month is allowed and leaves it closed.
func (s *LedgerService) SetBudget(ctx context.Context, userID int64, month core.MonthKey, amount core.Money) (core.Budget, bool, error) {
	month, err := checkMonth(month)
	if err != nil {
		return core.Budget{}, false, reject(err)
	}
	if err := (core.Budget{Month: month, Amount: amount}).Validate(); err != nil {
		return core.Budget{}, false, reject(err)
	}
	if month.After(core.MonthOf(s.now())) {
		return core.Budget{}, false, reject(core.ErrFutureMonth)
	}

	var (
		saved   core.Budget
		created bool
	)
	err = s.storage.InTx(ctx, func(q *storage.Queries) error {
		_, err := q.GetBudget(ctx, userID, month)
		switch {
		case err == nil:
			saved, err = q.UpdateBudgetAmount(ctx, userID, month, amount.Cents)
			if err != nil {
				return fmt.Errorf("update budget: %w", err)
			}
			return nil
		case !errors.Is(err, storage.ErrNotFound):
			return fmt.Errorf("load budget: %w", err)
		}

		saved, err = q.CreateBudget(ctx, userID, month, amount.Cents)
		if err != nil {
			return fmt.Errorf("create budget: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return core.Budget{}, false, reject(err)
	}

	s.invalidate(userID, month)
	metrics.LedgerWrite(metrics.OpBudgetSet)
	ledgerLogger(ctx).InfoContext(ctx, "Budget set",
		log.FieldUserID, userID,
		log.FieldMonth, month,
		log.FieldAmountCents, amount.Cents,
		"created", created)
	s.publish(ctx, amqp.EventBudgetSet, userID, month, 0)
	return saved, created, nil
}

// ListBudgets returns the user's budgets, newest month first.
func (s *LedgerService) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	budgets, err := s.storage.Queries().ListBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}
