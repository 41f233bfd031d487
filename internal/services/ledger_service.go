package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"budgetbook/internal/amqp"
	"budgetbook/internal/cache"
	"budgetbook/internal/core"
	"budgetbook/internal/log"
	"budgetbook/internal/metrics"
	"budgetbook/internal/storage"
)

// Publisher delivers ledger events to the message broker.
type Publisher interface {
	Publish(ctx context.Context, ev amqp.LedgerEvent) error
}

// LedgerService owns the month-gated ledger rules: budget gate, expense
// ledger, budget setter and aggregator. State lives in SQLite only; every
// mutation runs in one transaction and is published after commit.
type LedgerService struct {
	storage   *storage.SQLiteRepository
	publisher Publisher
	summaries cache.Cache[core.Summary]
	now       func() time.Time

	// genMu guards gens, bumped by every invalidation of a summary key
	genMu sync.Mutex
	gens  map[string]uint64
}

// Option configures a LedgerService.
type Option func(*LedgerService)

// WithPublisher enables event publishing after each committed mutation.
func WithPublisher(p Publisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

// WithSummaryCache caches computed month summaries until the next mutation.
func WithSummaryCache(c cache.Cache[core.Summary]) Option {
	return func(s *LedgerService) { s.summaries = c }
}

// WithClock overrides the clock used to decide which months are in the future.
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

func NewLedgerService(storage *storage.SQLiteRepository, opts ...Option) *LedgerService {
	s := &LedgerService{
		storage: storage,
		now:     time.Now,
		gens:    make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LedgerService) publish(ctx context.Context, typ amqp.EventType, userID int64, month core.MonthKey, expenseID int64) {
	if s.publisher == nil {
		return
	}
	ev := amqp.NewLedgerEvent(typ, userID, month, expenseID)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		// the ledger write already committed
		log.NewStructuredLogger(ledgerLogger(ctx)).LogError(ctx, "Failed to publish ledger event", err,
			string(typ), log.NewFields().WithLedger(userID, string(month)))
	}
}

func ledgerLogger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentLedger)
}

func summaryKey(userID int64, month core.MonthKey) string {
	return fmt.Sprintf("%d:%s", userID, month)
}

func (s *LedgerService) generation(key string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[key]
}

func (s *LedgerService) invalidate(userID int64, months ...core.MonthKey) {
	if s.summaries == nil {
		return
	}
	for _, m := range months {
		key := summaryKey(userID, m)
		s.genMu.Lock()
		s.gens[key]++
		s.genMu.Unlock()
		s.summaries.Delete(key)
	}
}

// storeSummary caches sum unless key was invalidated after gen was read.
// A write that lands while Set runs is caught by the second check.
func (s *LedgerService) storeSummary(key string, gen uint64, sum core.Summary) {
	if s.generation(key) != gen {
		return
	}
	s.summaries.Set(key, sum)
	if s.generation(key) != gen {
		s.summaries.Delete(key)
	}
}

// reject counts business-rule refusals and passes err through.
func reject(err error) error {
	switch {
	case errors.Is(err, core.ErrNoBudgetForMonth):
		metrics.LedgerRejection("no_budget")
	case errors.Is(err, core.ErrMonthLocked):
		metrics.LedgerRejection("month_locked")
	case errors.Is(err, core.ErrFutureMonth):
		metrics.LedgerRejection("future_month")
	case errors.Is(err, core.ErrAlreadyClosed):
		metrics.LedgerRejection("already_closed")
	case errors.Is(err, core.ErrNotFoundOrUnauthorized):
		metrics.LedgerRejection("not_found")
	case errors.Is(err, core.ErrValidation):
		metrics.LedgerRejection("validation")
	}
	return err
}

// checkMonth validates month and returns its canonical form.
func checkMonth(month core.MonthKey) (core.MonthKey, error) {
	return core.ParseMonthKey(string(month))
}
