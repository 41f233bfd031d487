package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"budgetbook/internal/core"
	"budgetbook/internal/storage"
)

// ComputeSummary returns the budget, total spend and expenses of month.
// ErrNoBudgetForMonth is returned when no budget was set.
func (s *LedgerService) ComputeSummary(ctx context.Context, userID int64, month core.MonthKey) (core.Summary, error) {
	month, err := checkMonth(month)
	if err != nil {
		return core.Summary{}, err
	}

	key := summaryKey(userID, month)
	var gen uint64
	if s.summaries != nil {
		gen = s.generation(key)
		if sum, ok := s.summaries.Get(key); ok {
			sum.Expenses = slices.Clone(sum.Expenses)
			return sum, nil
		}
	}

	var sum core.Summary
	// one transaction so the total and the list agree
	err = s.storage.InTx(ctx, func(q *storage.Queries) error {
		b, err := q.GetBudget(ctx, userID, month)
		if errors.Is(err, storage.ErrNotFound) {
			return core.ErrNoBudgetForMonth
		}
		if err != nil {
			return fmt.Errorf("load budget: %w", err)
		}

		total, err := q.SumExpensesByMonth(ctx, userID, month)
		if err != nil {
			return fmt.Errorf("sum expenses: %w", err)
		}
		expenses, err := q.ListExpensesByMonth(ctx, userID, month)
		if err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}

		sum = core.Summary{
			Month:        month,
			BudgetAmount: b.Amount,
			TotalExpense: core.Money{Cents: total},
			Locked:       b.Locked,
			Expenses:     expenses,
		}
		return nil
	})
	if err != nil {
		return core.Summary{}, err
	}

	if s.summaries != nil {
		s.storeSummary(key, gen, sum)
		sum.Expenses = slices.Clone(sum.Expenses)
	}
	return sum, nil
}
