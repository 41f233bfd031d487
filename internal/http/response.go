package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"budgetbook/internal/core"
	"budgetbook/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// defaultErrorHandlers is checked in order; the first match wins.
func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		validationHandler,
		sentinelHandler(errMalformedBody, http.StatusBadRequest),
		sentinelHandler(core.ErrNotFoundOrUnauthorized, http.StatusNotFound),
		sentinelHandler(core.ErrNoBudgetForMonth, http.StatusConflict),
		sentinelHandler(core.ErrMonthLocked, http.StatusConflict),
		sentinelHandler(core.ErrFutureMonth, http.StatusUnprocessableEntity),
		alreadyClosedHandler,
		sentinelHandler(core.ErrDuplicateUsername, http.StatusConflict),
		sentinelHandler(core.ErrConflict, http.StatusConflict),
		retryableHandler(core.ErrStoreUnavailable),
		sentinelHandler(core.ErrInvalidCredentials, http.StatusUnauthorized),
		sentinelHandler(core.ErrUnauthenticated, http.StatusUnauthorized),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The client sees the sentinel's message, never the wrapped chain.
func sentinelHandler(sentinel error, status int) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, sentinel.Error())
		return true
	}
}

func validationHandler(w http.ResponseWriter, err error) bool {
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: verr.Err.Error(), Field: verr.Field})
	return true
}

// alreadyClosedHandler reports a repeated close as a success.
func alreadyClosedHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, core.ErrAlreadyClosed) {
		return false
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: core.ErrAlreadyClosed.Error()})
	return true
}

func retryableHandler(sentinel error) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, sentinel.Error())
		return true
	}
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	fields := log.NewFields().WithRoute(routePattern(r))
	if uid, ok := UserFromContext(r.Context()); ok {
		fields.WithLedger(uid, chi.URLParam(r, "month"))
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogError(r.Context(), "Request failed", err, r.Method, fields)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// moneyView carries an amount as exact cents, a plain decimal and the
// display form.
type moneyView struct {
	Cents   int64  `json:"cents"`
	Amount  string `json:"amount"`
	Display string `json:"display"`
}

func newMoneyView(m core.Money) moneyView {
	return moneyView{Cents: m.Cents, Amount: m.String(), Display: m.USD()}
}

type userView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type expenseView struct {
	ID     int64     `json:"id"`
	Name   string    `json:"name"`
	Amount moneyView `json:"amount"`
	Date   string    `json:"date"`
	Month  string    `json:"month"`
}

func newExpenseView(e core.Expense) expenseView {
	return expenseView{
		ID:     e.ID,
		Name:   e.Name,
		Amount: newMoneyView(e.Amount),
		Date:   e.Date.String(),
		Month:  string(e.Date.MonthKey()),
	}
}

type budgetView struct {
	Month  string    `json:"month"`
	Amount moneyView `json:"amount"`
	Locked bool      `json:"locked"`
}

func newBudgetView(b core.Budget) budgetView {
	return budgetView{Month: string(b.Month), Amount: newMoneyView(b.Amount), Locked: b.Locked}
}

func newBudgetViews(budgets []core.Budget) []budgetView {
	out := make([]budgetView, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, newBudgetView(b))
	}
	return out
}

type summaryView struct {
	Month      string        `json:"month"`
	Budget     moneyView     `json:"budget"`
	Total      moneyView     `json:"total"`
	Remaining  moneyView     `json:"remaining"`
	OverBudget bool          `json:"over_budget"`
	Locked     bool          `json:"locked"`
	Expenses   []expenseView `json:"expenses"`
}

func newSummaryView(sum core.Summary) summaryView {
	expenses := make([]expenseView, 0, len(sum.Expenses))
	for _, e := range sum.Expenses {
		expenses = append(expenses, newExpenseView(e))
	}
	return summaryView{
		Month:      string(sum.Month),
		Budget:     newMoneyView(sum.BudgetAmount),
		Total:      newMoneyView(sum.TotalExpense),
		Remaining:  newMoneyView(sum.Remaining()),
		OverBudget: sum.OverBudget(),
		Locked:     sum.Locked,
		Expenses:   expenses,
	}
}

type notificationView struct {
	Month     string    `json:"month"`
	Budget    moneyView `json:"budget"`
	Total     moneyView `json:"total"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newNotificationView(n core.Notification) notificationView {
	return notificationView{
		Month:     string(n.Month),
		Budget:    newMoneyView(n.BudgetAmount),
		Total:     newMoneyView(n.TotalExpense),
		Message:   n.Message,
		UpdatedAt: n.UpdatedAt,
	}
}
