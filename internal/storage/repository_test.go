package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"budgetbook/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"), 0)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustUser(t *testing.T, repo *SQLiteRepository, name string) core.User {
	t.Helper()
	u, err := repo.Queries().CreateUser(context.Background(), name, "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestDSN(t *testing.T) {
	dsn := DSN("/tmp/x.db", 0)
	if !strings.HasPrefix(dsn, "file:/tmp/x.db?") {
		t.Fatalf("unexpected dsn %q", dsn)
	}
	for _, want := range []string{"busy_timeout%285000%29", "foreign_keys%281%29", "journal_mode%28WAL%29"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn %q missing %q", dsn, want)
		}
	}
}

func TestUsers(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	q := repo.Queries()

	u := mustUser(t, repo, "alice")
	if u.ID == 0 || u.Username != "alice" || u.CreatedAt.IsZero() {
		t.Fatalf("unexpected user %+v", u)
	}

	_, err := q.CreateUser(ctx, "alice", "other")
	if !errors.Is(err, core.ErrDuplicateUsername) {
		t.Fatalf("expected duplicate username, got %v", err)
	}

	got, err := q.GetUserByUsername(ctx, "alice")
	if err != nil || got.ID != u.ID {
		t.Fatalf("get by username: %+v, %v", got, err)
	}

	if err := q.UpdateUserHash(ctx, u.ID, "new-hash"); err != nil {
		t.Fatalf("update hash: %v", err)
	}
	got, err = q.GetUserByID(ctx, u.ID)
	if err != nil || got.PasswordHash != "new-hash" {
		t.Fatalf("hash not updated: %+v, %v", got, err)
	}

	if _, err := q.GetUserByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := q.UpdateUserHash(ctx, 9999, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBudgetsUniqueAndLock(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	q := repo.Queries()
	u := mustUser(t, repo, "bob")

	b, err := q.CreateBudget(ctx, u.ID, "2025-06", 50000)
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}
	if b.Locked || b.Amount.Cents != 50000 || b.Month != "2025-06" {
		t.Fatalf("unexpected budget %+v", b)
	}

	if _, err := q.CreateBudget(ctx, u.ID, "2025-06", 1); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict on second budget for month, got %v", err)
	}

	locked, err := q.LockBudget(ctx, u.ID, "2025-06")
	if err != nil || !locked.Locked {
		t.Fatalf("lock budget: %+v, %v", locked, err)
	}
	if _, err := q.LockBudget(ctx, u.ID, "2025-06"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("locking twice should match no row, got %v", err)
	}

	updated, err := q.UpdateBudgetAmount(ctx, u.ID, "2025-06", 60000)
	if err != nil || updated.Amount.Cents != 60000 || !updated.Locked {
		t.Fatalf("update amount on locked budget: %+v, %v", updated, err)
	}

	if _, err := q.CreateBudget(ctx, u.ID, "2025-04", 100); err != nil {
		t.Fatalf("create budget: %v", err)
	}
	list, err := q.ListBudgets(ctx, u.ID)
	if err != nil || len(list) != 2 || list[0].Month != "2025-06" || list[1].Month != "2025-04" {
		t.Fatalf("list budgets: %+v, %v", list, err)
	}

	recheck, err := q.ListBudgetsToRecheck(ctx)
	if err != nil || len(recheck) != 1 || recheck[0].Month != "2025-04" {
		t.Fatalf("recheck should list only the open month: %+v, %v", recheck, err)
	}
}

func TestListBudgetsToRecheck(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	q := repo.Queries()
	u := mustUser(t, repo, "frank")

	for _, m := range []core.MonthKey{"2025-03", "2025-04", "2025-05"} {
		if _, err := q.CreateBudget(ctx, u.ID, m, 1000); err != nil {
			t.Fatalf("create budget %s: %v", m, err)
		}
		if _, err := q.LockBudget(ctx, u.ID, m); err != nil {
			t.Fatalf("lock budget %s: %v", m, err)
		}
	}
	if _, err := q.CreateBudget(ctx, u.ID, "2025-06", 1000); err != nil {
		t.Fatalf("create budget: %v", err)
	}

	// 2025-03 keeps a notification from before its last delete
	if _, err := q.UpsertNotification(ctx, UpsertNotificationParams{
		UserID: u.ID, Month: "2025-03", BudgetCents: 1000, TotalCents: 1500, Message: "over",
	}); err != nil {
		t.Fatalf("upsert notification: %v", err)
	}
	// 2025-04 is over budget without a notification
	if _, err := q.CreateExpense(ctx, CreateExpenseParams{UserID: u.ID, Name: "Rent", AmountCents: 1500, Date: core.NewDate(2025, 4, 2)}); err != nil {
		t.Fatalf("create expense: %v", err)
	}
	// 2025-05 is locked and under budget
	if _, err := q.CreateExpense(ctx, CreateExpenseParams{UserID: u.ID, Name: "Tea", AmountCents: 300, Date: core.NewDate(2025, 5, 2)}); err != nil {
		t.Fatalf("create expense: %v", err)
	}

	got, err := q.ListBudgetsToRecheck(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var months []core.MonthKey
	for _, b := range got {
		months = append(months, b.Month)
	}
	want := []core.MonthKey{"2025-03", "2025-04", "2025-06"}
	if len(months) != len(want) {
		t.Fatalf("months = %v, want %v", months, want)
	}
	for i := range want {
		if months[i] != want[i] {
			t.Fatalf("months = %v, want %v", months, want)
		}
	}
}

func TestExpensesByMonth(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	q := repo.Queries()
	u := mustUser(t, repo, "carol")
	other := mustUser(t, repo, "dave")

	add := func(user int64, name string, cents int64, date core.Date) core.Expense {
		t.Helper()
		e, err := q.CreateExpense(ctx, CreateExpenseParams{UserID: user, Name: name, AmountCents: cents, Date: date})
		if err != nil {
			t.Fatalf("create expense: %v", err)
		}
		return e
	}

	first := add(u.ID, "Coffee", 450, core.NewDate(2025, 6, 1))
	second := add(u.ID, "Lunch", 1200, core.NewDate(2025, 6, 15))
	third := add(u.ID, "Tea", 300, core.NewDate(2025, 6, 15))
	add(u.ID, "July", 999, core.NewDate(2025, 7, 1))
	add(other.ID, "Foreign", 5000, core.NewDate(2025, 6, 2))

	list, err := q.ListExpensesByMonth(ctx, u.ID, "2025-06")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	wantOrder := []int64{third.ID, second.ID, first.ID}
	if len(list) != len(wantOrder) {
		t.Fatalf("expected %d expenses, got %d", len(wantOrder), len(list))
	}
	for i, id := range wantOrder {
		if list[i].ID != id {
			t.Fatalf("position %d: got id %d, want %d", i, list[i].ID, id)
		}
	}

	total, err := q.SumExpensesByMonth(ctx, u.ID, "2025-06")
	if err != nil || total != 1950 {
		t.Fatalf("sum = %d, err = %v", total, err)
	}
	empty, err := q.SumExpensesByMonth(ctx, u.ID, "2024-01")
	if err != nil || empty != 0 {
		t.Fatalf("empty sum = %d, err = %v", empty, err)
	}

	if _, err := q.GetExpense(ctx, first.ID, other.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign read should be not found, got %v", err)
	}

	moved, err := q.UpdateExpense(ctx, UpdateExpenseParams{ID: first.ID, UserID: u.ID, Name: "Espresso", AmountCents: 500, Date: core.NewDate(2025, 7, 3)})
	if err != nil || moved.Name != "Espresso" || moved.Date.MonthKey() != "2025-07" {
		t.Fatalf("update: %+v, %v", moved, err)
	}
	july, _ := q.SumExpensesByMonth(ctx, u.ID, "2025-07")
	if july != 1499 {
		t.Fatalf("moved expense should count in July, got %d", july)
	}

	n, err := q.DeleteExpense(ctx, first.ID, other.ID)
	if err != nil || n != 0 {
		t.Fatalf("foreign delete removed %d rows, err=%v", n, err)
	}
	n, err = q.DeleteExpense(ctx, first.ID, u.ID)
	if err != nil || n != 1 {
		t.Fatalf("delete removed %d rows, err=%v", n, err)
	}
	count, _ := q.CountExpenses(ctx, u.ID)
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}

func TestInTxRollsBack(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := mustUser(t, repo, "erin")
	boom := errors.New("boom")

	err := repo.InTx(ctx, func(q *Queries) error {
		if _, err := q.CreateBudget(ctx, u.ID, "2025-06", 100); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := repo.Queries().GetBudget(ctx, u.ID, "2025-06"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("budget should have been rolled back, got %v", err)
	}

	err = repo.InTx(ctx, func(q *Queries) error {
		_, err := q.CreateBudget(ctx, u.ID, "2025-06", 100)
		return err
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := repo.Queries().GetBudget(ctx, u.ID, "2025-06"); err != nil {
		t.Fatalf("budget should be committed, got %v", err)
	}
}

func TestNotifications(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	q := repo.Queries()
	u := mustUser(t, repo, "frank")

	n, err := q.UpsertNotification(ctx, UpsertNotificationParams{UserID: u.ID, Month: "2025-06", BudgetCents: 100, TotalCents: 150, Message: "over"})
	if err != nil || n.TotalExpense.Cents != 150 {
		t.Fatalf("upsert: %+v, %v", n, err)
	}
	n2, err := q.UpsertNotification(ctx, UpsertNotificationParams{UserID: u.ID, Month: "2025-06", BudgetCents: 100, TotalCents: 200, Message: "over more"})
	if err != nil || n2.ID != n.ID || n2.TotalExpense.Cents != 200 {
		t.Fatalf("second upsert should update in place: %+v, %v", n2, err)
	}
	list, err := q.ListNotifications(ctx, u.ID)
	if err != nil || len(list) != 1 || list[0].Message != "over more" {
		t.Fatalf("list: %+v, %v", list, err)
	}
	removed, err := q.DeleteNotification(ctx, u.ID, "2025-06")
	if err != nil || removed != 1 {
		t.Fatalf("delete: %d, %v", removed, err)
	}
}
