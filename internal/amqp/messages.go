package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"budgetbook/internal/core"
)

// EventType names a committed ledger mutation.
type EventType string

const (
	EventExpenseUpserted EventType = "expense.upserted"
	EventExpenseDeleted  EventType = "expense.deleted"
	EventBudgetSet       EventType = "budget.set"
	EventMonthClosed     EventType = "month.closed"
)

// LedgerEvent is published after a mutation commits. Consumers re-read the
// ledger for current state, so the message carries only identifiers.
type LedgerEvent struct {
	Type      EventType     `json:"type"`
	UserID    int64         `json:"user_id"`
	Month     core.MonthKey `json:"month"`
	ExpenseID int64         `json:"expense_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewLedgerEvent creates an event stamped with the current time.
func NewLedgerEvent(typ EventType, userID int64, month core.MonthKey, expenseID int64) LedgerEvent {
	return LedgerEvent{
		Type:      typ,
		UserID:    userID,
		Month:     month,
		ExpenseID: expenseID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and sanity-checks an event body.
func LedgerEventFromJSON(data []byte) (LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return LedgerEvent{}, err
	}
	switch ev.Type {
	case EventExpenseUpserted, EventExpenseDeleted, EventBudgetSet, EventMonthClosed:
	default:
		return LedgerEvent{}, fmt.Errorf("unknown event type %q", ev.Type)
	}
	if ev.UserID <= 0 {
		return LedgerEvent{}, fmt.Errorf("event without user id")
	}
	if _, err := core.ParseMonthKey(string(ev.Month)); err != nil {
		return LedgerEvent{}, fmt.Errorf("event month: %w", err)
	}
	return ev, nil
}
