package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"budgetbook/internal/core"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries holds one method per SQL statement. It runs against either the
// pool or a transaction.
type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// sqliteTime accepts the representations SQLite drivers hand back for DATETIME columns.
type sqliteTime struct {
	t *time.Time
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
}

func (s sqliteTime) Scan(v interface{}) error {
	switch x := v.(type) {
	case nil:
		*s.t = time.Time{}
		return nil
	case time.Time:
		*s.t = x.UTC()
		return nil
	case string:
		return s.parse(x)
	case []byte:
		return s.parse(string(x))
	default:
		return fmt.Errorf("unsupported time value %T", v)
	}
}

func (s sqliteTime) parse(v string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			*s.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("unparseable time %q", v)
}

// Users

const userColumns = `id, username, hash, created_at`

func scanUser(row rowScanner) (core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, sqliteTime{&u.CreatedAt})
	return u, mapError(err)
}

const createUser = `INSERT INTO users (username, hash) VALUES (?, ?) RETURNING ` + userColumns

func (q *Queries) CreateUser(ctx context.Context, username, hash string) (core.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, createUser, username, hash))
	if isConflict(err) {
		return core.User{}, fmt.Errorf("%w: %s", core.ErrDuplicateUsername, username)
	}
	return u, err
}

const getUserByUsername = `SELECT ` + userColumns + ` FROM users WHERE username = ?`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByUsername, username))
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const updateUserHash = `UPDATE users SET hash = ? WHERE id = ?`

func (q *Queries) UpdateUserHash(ctx context.Context, id int64, hash string) error {
	res, err := q.db.ExecContext(ctx, updateUserHash, hash, id)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(res)
}

// Budgets

const budgetColumns = `id, user_id, month, amount_cents, locked, created_at, updated_at`

func scanBudget(row rowScanner) (core.Budget, error) {
	var (
		b     core.Budget
		month string
	)
	err := row.Scan(&b.ID, &b.UserID, &month, &b.Amount.Cents, &b.Locked,
		sqliteTime{&b.CreatedAt}, sqliteTime{&b.UpdatedAt})
	b.Month = core.MonthKey(month)
	return b, mapError(err)
}

const getBudget = `SELECT ` + budgetColumns + ` FROM budgets WHERE user_id = ? AND month = ?`

func (q *Queries) GetBudget(ctx context.Context, userID int64, month core.MonthKey) (core.Budget, error) {
	return scanBudget(q.db.QueryRowContext(ctx, getBudget, userID, string(month)))
}

const createBudget = `INSERT INTO budgets (user_id, month, amount_cents, locked)
VALUES (?, ?, ?, 0)
RETURNING ` + budgetColumns

func (q *Queries) CreateBudget(ctx context.Context, userID int64, month core.MonthKey, amountCents int64) (core.Budget, error) {
	return scanBudget(q.db.QueryRowContext(ctx, createBudget, userID, string(month), amountCents))
}

const updateBudgetAmount = `UPDATE budgets SET amount_cents = ?, updated_at = CURRENT_TIMESTAMP
WHERE user_id = ? AND month = ?
RETURNING ` + budgetColumns

func (q *Queries) UpdateBudgetAmount(ctx context.Context, userID int64, month core.MonthKey, amountCents int64) (core.Budget, error) {
	return scanBudget(q.db.QueryRowContext(ctx, updateBudgetAmount, amountCents, userID, string(month)))
}

// lockBudget only matches unlocked rows, so locked never goes back to 0.
const lockBudget = `UPDATE budgets SET locked = 1, updated_at = CURRENT_TIMESTAMP
WHERE user_id = ? AND month = ? AND locked = 0
RETURNING ` + budgetColumns

func (q *Queries) LockBudget(ctx context.Context, userID int64, month core.MonthKey) (core.Budget, error) {
	return scanBudget(q.db.QueryRowContext(ctx, lockBudget, userID, string(month)))
}

const listBudgets = `SELECT ` + budgetColumns + ` FROM budgets WHERE user_id = ? ORDER BY month DESC`

func (q *Queries) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, mapError(rows.Err())
}

const listBudgetsToRecheck = `SELECT b.id, b.user_id, b.month, b.amount_cents, b.locked, b.created_at, b.updated_at
FROM budgets b
WHERE b.locked = 0
   OR EXISTS (SELECT 1 FROM notifications n WHERE n.user_id = b.user_id AND n.month = b.month)
   OR b.amount_cents < (SELECT COALESCE(SUM(e.amount_cents), 0) FROM expenses e
                        WHERE e.user_id = b.user_id AND e.month = b.month)
ORDER BY b.user_id, b.month`

// ListBudgetsToRecheck returns every budget whose notification state may
// need refreshing: unlocked months, plus locked months that either carry a
// notification or are over budget. Locked months still accept deletes and
// amount edits, so they can drift too.
func (q *Queries) ListBudgetsToRecheck(ctx context.Context) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgetsToRecheck)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, mapError(rows.Err())
}

// Expenses

const expenseColumns = `id, user_id, name, amount_cents, date, created_at, updated_at`

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e    core.Expense
		date string
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.Name, &e.Amount.Cents, &date,
		sqliteTime{&e.CreatedAt}, sqliteTime{&e.UpdatedAt}); err != nil {
		return core.Expense{}, mapError(err)
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d has corrupt date %q: %w", e.ID, date, err)
	}
	e.Date = d
	return e, nil
}

type CreateExpenseParams struct {
	UserID      int64
	Name        string
	AmountCents int64
	Date        core.Date
}

const createExpense = `INSERT INTO expenses (user_id, name, amount_cents, date, month)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + expenseColumns

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (core.Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, createExpense,
		arg.UserID, arg.Name, arg.AmountCents, arg.Date.String(), string(arg.Date.MonthKey())))
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ? AND user_id = ?`

func (q *Queries) GetExpense(ctx context.Context, id, userID int64) (core.Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpense, id, userID))
}

type UpdateExpenseParams struct {
	ID          int64
	UserID      int64
	Name        string
	AmountCents int64
	Date        core.Date
}

const updateExpense = `UPDATE expenses
SET name = ?, amount_cents = ?, date = ?, month = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND user_id = ?
RETURNING ` + expenseColumns

func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (core.Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, updateExpense,
		arg.Name, arg.AmountCents, arg.Date.String(), string(arg.Date.MonthKey()), arg.ID, arg.UserID))
}

const deleteExpense = `DELETE FROM expenses WHERE id = ? AND user_id = ?`

// DeleteExpense returns the number of rows removed.
func (q *Queries) DeleteExpense(ctx context.Context, id, userID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpense, id, userID)
	if err != nil {
		return 0, mapError(err)
	}
	return res.RowsAffected()
}

const listExpensesByMonth = `SELECT ` + expenseColumns + ` FROM expenses
WHERE user_id = ? AND month = ?
ORDER BY date DESC, id DESC`

func (q *Queries) ListExpensesByMonth(ctx context.Context, userID int64, month core.MonthKey) ([]core.Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpensesByMonth, userID, string(month))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, mapError(rows.Err())
}

const sumExpensesByMonth = `SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE user_id = ? AND month = ?`

func (q *Queries) SumExpensesByMonth(ctx context.Context, userID int64, month core.MonthKey) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx, sumExpensesByMonth, userID, string(month)).Scan(&total)
	return total, mapError(err)
}

const countExpenses = `SELECT COUNT(*) FROM expenses WHERE user_id = ?`

func (q *Queries) CountExpenses(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countExpenses, userID).Scan(&n)
	return n, mapError(err)
}

// Notifications

const notificationColumns = `id, user_id, month, budget_cents, total_cents, message, created_at, updated_at`

func scanNotification(row rowScanner) (core.Notification, error) {
	var (
		n     core.Notification
		month string
	)
	err := row.Scan(&n.ID, &n.UserID, &month, &n.BudgetAmount.Cents, &n.TotalExpense.Cents, &n.Message,
		sqliteTime{&n.CreatedAt}, sqliteTime{&n.UpdatedAt})
	n.Month = core.MonthKey(month)
	return n, mapError(err)
}

type UpsertNotificationParams struct {
	UserID      int64
	Month       core.MonthKey
	BudgetCents int64
	TotalCents  int64
	Message     string
}

const upsertNotification = `INSERT INTO notifications (user_id, month, budget_cents, total_cents, message)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (user_id, month) DO UPDATE SET
    budget_cents = excluded.budget_cents,
    total_cents = excluded.total_cents,
    message = excluded.message,
    updated_at = CURRENT_TIMESTAMP
RETURNING ` + notificationColumns

func (q *Queries) UpsertNotification(ctx context.Context, arg UpsertNotificationParams) (core.Notification, error) {
	return scanNotification(q.db.QueryRowContext(ctx, upsertNotification,
		arg.UserID, string(arg.Month), arg.BudgetCents, arg.TotalCents, arg.Message))
}

const deleteNotification = `DELETE FROM notifications WHERE user_id = ? AND month = ?`

func (q *Queries) DeleteNotification(ctx context.Context, userID int64, month core.MonthKey) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteNotification, userID, string(month))
	if err != nil {
		return 0, mapError(err)
	}
	return res.RowsAffected()
}

const listNotifications = `SELECT ` + notificationColumns + ` FROM notifications
WHERE user_id = ?
ORDER BY updated_at DESC, id DESC`

func (q *Queries) ListNotifications(ctx context.Context, userID int64) ([]core.Notification, error) {
	rows, err := q.db.QueryContext(ctx, listNotifications, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []core.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, mapError(rows.Err())
}
