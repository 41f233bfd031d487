package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"budgetbook/internal/amqp"
	"budgetbook/internal/core"
	"budgetbook/internal/log"
	"budgetbook/internal/metrics"
	"budgetbook/internal/storage"
)

// UpsertExpenseInput creates an expense when ID is nil and edits expense ID otherwise.
type UpsertExpenseInput struct {
	ID     *int64
	Name   string
	Amount core.Money
	Date   core.Date
}

// UpsertExpense records an expense against the budget month of its date.
// The month must have a budget and must not be closed. For edits only the
// month of the new date is checked.
func (s *LedgerService) UpsertExpense(ctx context.Context, userID int64, in UpsertExpenseInput) (core.Expense, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := (core.Expense{Name: in.Name, Amount: in.Amount, Date: in.Date}).Validate(); err != nil {
		return core.Expense{}, reject(err)
	}
	month := in.Date.MonthKey()

	var (
		saved     core.Expense
		prevMonth core.MonthKey
	)
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		b, err := q.GetBudget(ctx, userID, month)
		if errors.Is(err, storage.ErrNotFound) {
			return core.ErrNoBudgetForMonth
		}
		if err != nil {
			return fmt.Errorf("load budget: %w", err)
		}
		if b.Locked {
			return core.ErrMonthLocked
		}

		if in.ID == nil {
			saved, err = q.CreateExpense(ctx, storage.CreateExpenseParams{
				UserID:      userID,
				Name:        in.Name,
				AmountCents: in.Amount.Cents,
				Date:        in.Date,
			})
			if err != nil {
				return fmt.Errorf("create expense: %w", err)
			}
			return nil
		}

		prev, err := q.GetExpense(ctx, *in.ID, userID)
		if errors.Is(err, storage.ErrNotFound) {
			return core.ErrNotFoundOrUnauthorized
		}
		if err != nil {
			return fmt.Errorf("load expense: %w", err)
		}
		prevMonth = prev.Date.MonthKey()

		saved, err = q.UpdateExpense(ctx, storage.UpdateExpenseParams{
			ID:          *in.ID,
			UserID:      userID,
			Name:        in.Name,
			AmountCents: in.Amount.Cents,
			Date:        in.Date,
		})
		if errors.Is(err, storage.ErrNotFound) {
			return core.ErrNotFoundOrUnauthorized
		}
		if err != nil {
			return fmt.Errorf("update expense: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Expense{}, reject(err)
	}

	op := metrics.OpExpenseCreate
	if in.ID != nil {
		op = metrics.OpExpenseUpdate
		if prevMonth != month {
			s.invalidate(userID, prevMonth)
		}
	}
	s.invalidate(userID, month)
	metrics.LedgerWrite(op)

	ledgerLogger(ctx).InfoContext(ctx, "Expense saved",
		log.FieldUserID, userID,
		log.FieldExpenseID, saved.ID,
		log.FieldMonth, month,
		log.FieldAmountCents, saved.Amount.Cents)

	s.publish(ctx, amqp.EventExpenseUpserted, userID, month, saved.ID)
	if prevMonth != "" && prevMonth != month {
		// the old month's total changed too
		s.publish(ctx, amqp.EventExpenseUpserted, userID, prevMonth, saved.ID)
	}
	return saved, nil
}

// DeleteExpense removes one of the user's expenses. Closed months do not
// block deletion.
func (s *LedgerService) DeleteExpense(ctx context.Context, userID, id int64) error {
	var month core.MonthKey
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		e, err := q.GetExpense(ctx, id, userID)
		if errors.Is(err, storage.ErrNotFound) {
			return core.ErrNotFoundOrUnauthorized
		}
		if err != nil {
			return fmt.Errorf("load expense: %w", err)
		}
		month = e.Date.MonthKey()

		n, err := q.DeleteExpense(ctx, id, userID)
		if err != nil {
			return fmt.Errorf("delete expense: %w", err)
		}
		if n != 1 {
			return core.ErrNotFoundOrUnauthorized
		}
		return nil
	})
	if err != nil {
		return reject(err)
	}

	s.invalidate(userID, month)
	metrics.LedgerWrite(metrics.OpExpenseDelete)
	ledgerLogger(ctx).InfoContext(ctx, "Expense deleted",
		log.FieldUserID, userID,
		log.FieldExpenseID, id,
		log.FieldMonth, month)
	s.publish(ctx, amqp.EventExpenseDeleted, userID, month, id)
	return nil
}

// GetExpense returns one of the user's expenses.
func (s *LedgerService) GetExpense(ctx context.Context, userID, id int64) (core.Expense, error) {
	e, err := s.storage.Queries().GetExpense(ctx, id, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Expense{}, core.ErrNotFoundOrUnauthorized
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("load expense: %w", err)
	}
	return e, nil
}
