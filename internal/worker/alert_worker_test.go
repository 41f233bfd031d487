package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"budgetbook/internal/amqp"
	"budgetbook/internal/core"
	"budgetbook/internal/services"
	"budgetbook/internal/storage"
)

func setup(t *testing.T) (*storage.SQLiteRepository, *AlertWorker, *services.NotificationService, int64) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "worker.db"), 0)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	u, err := repo.Queries().CreateUser(context.Background(), "alice", "hash")
	if err != nil {
		t.Fatal(err)
	}

	ledger := services.NewLedgerService(repo)
	notes := services.NewNotificationService(ledger, repo)
	return repo, NewAlertWorker(repo, notes), notes, u.ID
}

func TestAlertWorker_LocalPublisherProducesNotification(t *testing.T) {
	repo, w, notes, user := setup(t)
	ctx := context.Background()
	now := time.Now()
	month := core.MonthOf(now)

	ledger := services.NewLedgerService(repo, services.WithPublisher(NewLocalPublisher(w)))
	if _, _, err := ledger.SetBudget(ctx, user, month, core.Money{Cents: 1000}); err != nil {
		t.Fatal(err)
	}
	date := core.NewDate(now.Year(), int(now.Month()), now.Day())
	if _, err := ledger.UpsertExpense(ctx, user, services.UpsertExpenseInput{Name: "Bike", Amount: core.Money{Cents: 2500}, Date: date}); err != nil {
		t.Fatal(err)
	}

	list, err := notes.List(ctx, user)
	if err != nil || len(list) != 1 || list[0].Month != month {
		t.Fatalf("notifications = %+v, %v", list, err)
	}

	if _, _, err := ledger.SetBudget(ctx, user, month, core.Money{Cents: 5000}); err != nil {
		t.Fatal(err)
	}
	if list, _ := notes.List(ctx, user); len(list) != 0 {
		t.Fatalf("raising the budget should clear the notification: %+v", list)
	}
}

func TestAlertWorker_StartupCheck(t *testing.T) {
	repo, w, notes, user := setup(t)
	ctx := context.Background()
	q := repo.Queries()

	if _, err := q.CreateBudget(ctx, user, "2025-03", 100); err != nil {
		t.Fatal(err)
	}
	if _, err := q.CreateExpense(ctx, storage.CreateExpenseParams{UserID: user, Name: "x", AmountCents: 500, Date: core.NewDate(2025, 3, 2)}); err != nil {
		t.Fatal(err)
	}

	if err := w.StartupCheck(ctx); err != nil {
		t.Fatalf("startup check: %v", err)
	}
	if list, _ := notes.List(ctx, user); len(list) != 1 {
		t.Fatalf("expected a notification, got %+v", list)
	}
}

func TestAlertWorker_StartupCheckRefreshesLockedMonth(t *testing.T) {
	repo, w, notes, user := setup(t)
	ctx := context.Background()
	q := repo.Queries()

	if _, err := q.CreateBudget(ctx, user, "2025-02", 1000); err != nil {
		t.Fatal(err)
	}
	if _, err := q.LockBudget(ctx, user, "2025-02"); err != nil {
		t.Fatal(err)
	}
	// left behind by a delete whose event never reached the worker
	if _, err := q.UpsertNotification(ctx, storage.UpsertNotificationParams{
		UserID: user, Month: "2025-02", BudgetCents: 1000, TotalCents: 1500, Message: "over",
	}); err != nil {
		t.Fatal(err)
	}

	if err := w.StartupCheck(ctx); err != nil {
		t.Fatalf("startup check: %v", err)
	}
	if list, _ := notes.List(ctx, user); len(list) != 0 {
		t.Fatalf("stale notification on locked month should be cleared, got %+v", list)
	}
}

func TestAlertWorker_HandleEventWithoutBudget(t *testing.T) {
	_, w, _, user := setup(t)
	ev := amqp.NewLedgerEvent(amqp.EventExpenseDeleted, user, "2024-01", 1)
	if err := w.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("event for a month without budget should be a no-op: %v", err)
	}
}
