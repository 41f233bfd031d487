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

// BudgetExists reports whether the user has a budget for month.
func (s *LedgerService) BudgetExists(ctx context.Context, userID int64, month core.MonthKey) (bool, error) {
	month, err := checkMonth(month)
	if err != nil {
		return false, err
	}
	_, err = s.storage.Queries().GetBudget(ctx, userID, month)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load budget: %w", err)
	}
	return true, nil
}

// IsMonthClosed reports whether month has a budget and it is locked. A month
// without a budget is open.
func (s *LedgerService) IsMonthClosed(ctx context.Context, userID int64, month core.MonthKey) (bool, error) {
	month, err := checkMonth(month)
	if err != nil {
		return false, err
	}
	b, err := s.storage.Queries().GetBudget(ctx, userID, month)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load budget: %w", err)
	}
	return b.Locked, nil
}

// CloseMonth locks month. There is no way to reopen it.
func (s *LedgerService) CloseMonth(ctx context.Context, userID int64, month core.MonthKey) (core.Budget, error) {
	month, err := checkMonth(month)
	if err != nil {
		return core.Budget{}, reject(err)
	}

	var closed core.Budget
	err = s.storage.InTx(ctx, func(q *storage.Queries) error {
		b, err := q.GetBudget(ctx, userID, month)
		if errors.Is(err, storage.ErrNotFound) {
			return core.ErrNoBudgetForMonth
		}
		if err != nil {
			return fmt.Errorf("load budget: %w", err)
		}
		if b.Locked {
			return core.ErrAlreadyClosed
		}

		closed, err = q.LockBudget(ctx, userID, month)
		if errors.Is(err, storage.ErrNotFound) {
			// locked by a concurrent request
			return core.ErrAlreadyClosed
		}
		if err != nil {
			return fmt.Errorf("lock budget: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Budget{}, reject(err)
	}

	s.invalidate(userID, month)
	metrics.LedgerWrite(metrics.OpMonthClose)
	ledgerLogger(ctx).InfoContext(ctx, "Month closed", log.FieldUserID, userID, log.FieldMonth, month)
	s.publish(ctx, amqp.EventMonthClosed, userID, month, 0)
	return closed, nil
}
