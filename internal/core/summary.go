package core

import "time"

// Summary is the aggregated view of one budget month.
type Summary struct {
	Month        MonthKey
	BudgetAmount Money
	TotalExpense Money
	Locked       bool
	Expenses     []Expense // date desc, id desc
}

// Remaining is budget minus spend; negative when over budget.
func (s Summary) Remaining() Money {
	return s.BudgetAmount.Sub(s.TotalExpense)
}

func (s Summary) OverBudget() bool {
	return s.TotalExpense.Cents > s.BudgetAmount.Cents
}

// Notification records that a month went over budget.
type Notification struct {
	ID           int64
	UserID       int64
	Month        MonthKey
	BudgetAmount Money
	TotalExpense Money
	Message      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
