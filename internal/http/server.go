package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"budgetbook/internal/config"
	"budgetbook/internal/log"
	"budgetbook/internal/metrics"
	"budgetbook/internal/middleware/ratelimit"
	"budgetbook/internal/middleware/security"
	"budgetbook/internal/middleware/trace"
	"budgetbook/internal/services"
)

// Pinger reports whether the backing store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Ledger        *services.LedgerService
	Accounts      *services.AccountService
	Notifications *services.NotificationService
	Store         Pinger
	Sessions      *SessionManager
	Params        config.Params
	Logger        *log.Logger
}

// Options tune the transport.
type Options struct {
	Addr               string
	CORSAllowedOrigins []string
	LoginRateLimit     int
	TrustedProxies     []string
}

type Server struct {
	http.Server
	ledger        *services.LedgerService
	accounts      *services.AccountService
	notifications *services.NotificationService
	store         Pinger
	sessions      *SessionManager
	params        config.Params
	logger        *log.Logger

	limiter       *ratelimit.Limiter
	detector      *security.Detector
	errorHandlers []errorHandler
	now           func() time.Time
}

func NewServer(opts Options, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		ledger:        deps.Ledger,
		accounts:      deps.Accounts,
		notifications: deps.Notifications,
		store:         deps.Store,
		sessions:      deps.Sessions,
		params:        deps.Params,
		logger:        logger.WithComponent(log.ComponentHTTP),
		limiter:       ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.LoginRateLimit}),
		detector:      security.NewDetector(),
		errorHandlers: defaultErrorHandlers(),
		now:           time.Now,
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(opts),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(metrics.Middleware())
	r.Use(trace.NewMiddleware(s.logger, s.detector.ExtractClientIP).Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)
	if len(opts.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/", s.handleParams)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(log.ComponentMiddleware(log.ComponentAuth))
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).
				WarnContext(r.Context(), "Rate limit exceeded",
					log.FieldClientIP, s.detector.ExtractClientIP(r),
					log.FieldRoute, routePattern(r))
			writeError(w, http.StatusTooManyRequests, "too many attempts, try again later")
		}))
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
	})
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.RequireUser)

		r.Post("/account/password", s.handleChangePassword)

		r.Get("/dashboard", s.handleDashboard)
		r.Post("/dashboard/month", s.handleSelectMonth)

		r.Get("/budgets", s.handleListBudgets)
		r.Post("/budgets", s.handleSetBudget)

		r.Post("/months/{month}/close", s.handleCloseMonth)
		r.Get("/months/{month}/summary", s.handleSummary)

		r.Post("/expenses", s.handleCreateExpense)
		r.Get("/expenses/{id}", s.handleGetExpense)
		r.Put("/expenses/{id}", s.handleUpdateExpense)
		r.Post("/expenses/{id}", s.handleUpdateExpense)
		r.Delete("/expenses/{id}", s.handleDeleteExpense)

		r.Get("/notifications", s.handleNotifications)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func (s *Server) handleParams(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.params)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Shutdown stops background work and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}
