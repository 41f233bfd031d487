package worker

import (
	"context"
	"fmt"
	"log/slog"

	"budgetbook/internal/amqp"
	"budgetbook/internal/log"
	"budgetbook/internal/services"
	"budgetbook/internal/storage"
)

// AlertWorker turns ledger events into over-budget notifications.
type AlertWorker struct {
	storage       *storage.SQLiteRepository
	notifications *services.NotificationService
}

func NewAlertWorker(storage *storage.SQLiteRepository, notifications *services.NotificationService) *AlertWorker {
	return &AlertWorker{storage: storage, notifications: notifications}
}

// HandleEvent re-evaluates the month the event touched. Returning an error
// makes the consumer requeue the message.
func (w *AlertWorker) HandleEvent(ctx context.Context, ev amqp.LedgerEvent) error {
	over, err := w.notifications.Evaluate(ctx, ev.UserID, ev.Month)
	if err != nil {
		return fmt.Errorf("evaluate %s for user %d: %w", ev.Month, ev.UserID, err)
	}
	slog.DebugContext(ctx, "Processed ledger event",
		"type", ev.Type,
		log.FieldUserID, ev.UserID,
		log.FieldMonth, ev.Month,
		"over_budget", over)
	return nil
}

// StartupCheck evaluates every month whose notification may be stale so
// that events lost while the worker was down are caught up.
func (w *AlertWorker) StartupCheck(ctx context.Context) error {
	budgets, err := w.storage.Queries().ListBudgetsToRecheck(ctx)
	if err != nil {
		return fmt.Errorf("list budgets to recheck: %w", err)
	}

	overCount := 0
	for _, b := range budgets {
		if err := ctx.Err(); err != nil {
			return err
		}
		over, err := w.notifications.Evaluate(ctx, b.UserID, b.Month)
		if err != nil {
			slog.ErrorContext(ctx, "Startup evaluation failed",
				log.FieldUserID, b.UserID,
				log.FieldMonth, b.Month,
				log.FieldError, err)
			continue
		}
		if over {
			overCount++
		}
	}

	slog.InfoContext(ctx, "Startup check completed",
		"months_checked", len(budgets),
		"over_budget", overCount)
	return nil
}

// LocalPublisher hands events straight to an AlertWorker. The server uses it
// when no broker is configured.
type LocalPublisher struct {
	worker *AlertWorker
}

func NewLocalPublisher(w *AlertWorker) *LocalPublisher {
	return &LocalPublisher{worker: w}
}

func (p *LocalPublisher) Publish(ctx context.Context, ev amqp.LedgerEvent) error {
	return p.worker.HandleEvent(ctx, ev)
}
