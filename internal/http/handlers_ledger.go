package http

import (
	"errors"
	"net/http"

	"budgetbook/internal/core"
	"budgetbook/internal/services"
)

type dashboardView struct {
	Month     string       `json:"month"`
	BudgetSet bool         `json:"budget_set"`
	Summary   *summaryView `json:"summary,omitempty"`
	Budgets   []budgetView `json:"budgets"`
}

// selectedMonth is the session's month, or the current month when none was
// picked.
func (s *Server) selectedMonth(sess Session) core.MonthKey {
	if sess.SelectedMonth != "" {
		return sess.SelectedMonth
	}
	return core.MonthOf(s.now())
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess, err := mustSession(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	month := s.selectedMonth(sess)

	budgets, err := s.ledger.ListBudgets(r.Context(), sess.UserID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	view := dashboardView{Month: string(month), Budgets: newBudgetViews(budgets)}

	sum, err := s.ledger.ComputeSummary(r.Context(), sess.UserID, month)
	switch {
	case errors.Is(err, core.ErrNoBudgetForMonth):
		// the dashboard shows "no budget set" instead of failing
	case err != nil:
		s.handleError(w, r, err)
		return
	default:
		sv := newSummaryView(sum)
		view.BudgetSet = true
		view.Summary = &sv
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSelectMonth(w http.ResponseWriter, r *http.Request) {
	sess, err := mustSession(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	p, err := parseBody(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	month, err := core.ParseMonthKey(p.Get("month"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if month.After(core.MonthOf(s.now())) {
		s.handleError(w, r, core.ErrFutureMonth)
		return
	}

	sess.SelectedMonth = month
	if err := s.sessions.Issue(w, sess); err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"month": string(month)})
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	sess, err := mustSession(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	budgets, err := s.ledger.ListBudgets(r.Context(), sess.UserID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBudgetViews(budgets))
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	sess, err := mustSession(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	p, err := parseBody(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	month, err := core.ParseMonthKey(p.Get("month"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	budget, created, err := s.ledger.SetBudget(r.Context(), sess.UserID, month, amount)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, newBudgetView(budget))
}

func (s *Server) handleCloseMonth(w http.ResponseWriter, r *http.Request) {
	sess, err := mustSession(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	month, err := monthParam(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	budget, err := s.ledger.CloseMonth(r.Context(), sess.UserID, month)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBudgetView(budget))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sess, err := mustSession(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	month, err := monthParam(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	sum, err := s.ledger.ComputeSummary(r.Context(), sess.UserID, month)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryView(sum))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	s.upsertExpense(w, r, nil)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := expenseIDParam(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.upsertExpense(w, r, &id)
}

func (s *Server) upsertExpense(w http.ResponseWriter, r *http.Request, id *int64) {
	sess, err := mustSession(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	p, err := parseBody(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	name, amount, date, err := expenseFields(p)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	e, err := s.ledger.UpsertExpense(r.Context(), sess.UserID, services.UpsertExpenseInput{
		ID:     id,
		Name:   name,
		Amount: amount,
		Date:   date,
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	status := http.StatusOK
	if id == nil {
		status = http.StatusCreated
	}
	writeJSON(w, status, newExpenseView(e))
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	sess, err := mustSession(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	id, err := expenseIDParam(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	e, err := s.ledger.GetExpense(r.Context(), sess.UserID, id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseView(e))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	sess, err := mustSession(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	id, err := expenseIDParam(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	if err := s.ledger.DeleteExpense(r.Context(), sess.UserID, id); err != nil {
		s.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	sess, err := mustSession(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if s.notifications == nil {
		writeJSON(w, http.StatusOK, []notificationView{})
		return
	}

	list, err := s.notifications.List(r.Context(), sess.UserID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	out := make([]notificationView, 0, len(list))
	for _, n := range list {
		out = append(out, newNotificationView(n))
	}
	writeJSON(w, http.StatusOK, out)
}
