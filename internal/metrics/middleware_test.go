package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/expenses/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, id := range []string{"1", "2", "3"} {
		req := httptest.NewRequest(http.MethodGet, "/expenses/"+id, http.NoBody)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/expenses/{id}", "200"))
	if got < 3 {
		t.Errorf("expected >= 3 requests on route pattern, got %f", got)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected duration observations")
	}
}

func TestMiddleware_StatusCodes(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/conflict", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	tests := []struct {
		path   string
		status string
	}{
		{"/ok", "200"},
		{"/conflict", "409"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, http.NoBody)
			r.ServeHTTP(httptest.NewRecorder(), req)

			if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", tc.path, tc.status)); v < 1 {
				t.Errorf("expected count for %s/%s, got %f", tc.path, tc.status, v)
			}
		})
	}
}

func TestLedgerCounters(t *testing.T) {
	before := testutil.ToFloat64(ledgerWritesTotal.WithLabelValues(OpMonthClose))
	LedgerWrite(OpMonthClose)
	if after := testutil.ToFloat64(ledgerWritesTotal.WithLabelValues(OpMonthClose)); after != before+1 {
		t.Errorf("writes = %f, want %f", after, before+1)
	}

	before = testutil.ToFloat64(ledgerRejectionsTotal.WithLabelValues("month_locked"))
	LedgerRejection("month_locked")
	if after := testutil.ToFloat64(ledgerRejectionsTotal.WithLabelValues("month_locked")); after != before+1 {
		t.Errorf("rejections = %f, want %f", after, before+1)
	}
}
