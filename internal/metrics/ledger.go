package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ledger write operations.
const (
	OpExpenseCreate = "expense_create"
	OpExpenseUpdate = "expense_update"
	OpExpenseDelete = "expense_delete"
	OpBudgetSet     = "budget_set"
	OpMonthClose    = "month_close"
)

var (
	ledgerWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "budgetbook",
			Name:      "ledger_writes_total",
			Help:      "Committed ledger mutations",
		},
		[]string{"op"},
	)

	ledgerRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "budgetbook",
			Name:      "ledger_rejections_total",
			Help:      "Ledger writes refused by a business rule",
		},
		[]string{"reason"},
	)
)

// LedgerWrite counts one committed mutation.
func LedgerWrite(op string) {
	ledgerWritesTotal.WithLabelValues(op).Inc()
}

// LedgerRejection counts a refused write, e.g. reason "month_locked".
func LedgerRejection(reason string) {
	ledgerRejectionsTotal.WithLabelValues(reason).Inc()
}
