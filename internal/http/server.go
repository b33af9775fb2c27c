// Package http exposes the ledger and its reports as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/log"
	"fintrack/internal/middleware/auth"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/report"
	"fintrack/internal/services"
)

// Config holds the server's boundary settings.
type Config struct {
	Addr               string
	DefaultPageSize    int
	RateLimitPerMinute int
	TrustedProxies     []string
	Authenticator      auth.Authenticator
	Logger             *log.Logger
	// Now resolves "current month" defaults; time.Now when nil.
	Now func() time.Time
}

type Server struct {
	http.Server
	ledger          *services.LedgerService
	engine          *report.Engine
	defaultPageSize int
	now             func() time.Time

	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. It fails only on a malformed trusted proxy CIDR.
func NewServer(cfg Config, ledger *services.LedgerService, engine *report.Engine) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.FromContext(context.Background())
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.Authenticator == nil {
		cfg.Authenticator = auth.HeaderAuthenticator{}
	}

	detector := security.NewDetector()
	for _, cidr := range cfg.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	s := &Server{
		ledger:          ledger,
		engine:          engine,
		defaultPageSize: cfg.DefaultPageSize,
		now:             cfg.Now,
		limiter:         ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
	}

	api := http.NewServeMux()
	api.HandleFunc("GET /api/budgets", s.handleListBudgets)
	api.HandleFunc("POST /api/budgets", s.handleUpsertBudget)
	api.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)

	api.HandleFunc("GET /api/expenses", s.handleListExpenses)
	api.HandleFunc("GET /api/expenses/summary", s.handleExpenseSummary)
	api.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	api.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	api.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	api.HandleFunc("GET /api/income", s.handleListIncome)
	api.HandleFunc("POST /api/income", s.handleCreateIncome)
	api.HandleFunc("PUT /api/income/{id}", s.handleUpdateIncome)
	api.HandleFunc("DELETE /api/income/{id}", s.handleDeleteIncome)

	api.HandleFunc("GET /api/transactions", s.handleTransactionFeed)
	api.HandleFunc("GET /api/transactions/dashboard", s.handleDashboard)

	api.HandleFunc("GET /api/taxonomy", handleTaxonomy)

	api.HandleFunc("/api/", handleNotFound)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("/api/", auth.Middleware(cfg.Authenticator)(api))

	// Outermost first: trace, security headers, probe detection, rate limit, auth.
	var handler http.Handler = mux
	handler = s.limiter.Middleware(detector.ExtractClientIP)(handler)
	handler = detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(cfg.Logger, detector.ExtractClientIP).Middleware(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64KB
	}
	return s, nil
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// ownerID returns the owner resolved by the auth middleware. Every /api
// route sits behind it.
func ownerID(r *http.Request) string {
	owner, _ := auth.OwnerFromContext(r.Context())
	return owner
}
