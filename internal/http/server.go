package http

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"labcash/internal/core"
	"labcash/internal/finance"
	applog "labcash/internal/log"
	"labcash/internal/middleware/ratelimit"
	"labcash/internal/middleware/security"
	"labcash/internal/middleware/trace"
	"labcash/internal/services"
	"labcash/internal/store"
)

// RecordStore is the write side the API needs. *store.Store implements it.
type RecordStore interface {
	Snapshot(ctx context.Context) (store.Snapshot, error)
	AddRevenue(ctx context.Context, date core.Date, shift core.Shift, amount decimal.Decimal) (core.RevenueEntry, store.Snapshot, error)
	DeleteRevenue(ctx context.Context, id string) (store.Snapshot, error)
	AddExpense(ctx context.Context, date core.Date, amount decimal.Decimal, description, remarks string) (core.Expense, store.Snapshot, error)
	DeleteExpense(ctx context.Context, id string) (store.Snapshot, error)
	AddAdvance(ctx context.Context, date core.Date, amount decimal.Decimal, staffID, remarks string) (core.Advance, store.Snapshot, error)
	DeleteAdvance(ctx context.Context, id string) (store.Snapshot, error)
	AddStaff(ctx context.Context, name, role string) (core.StaffMember, store.Snapshot, error)
	RemoveStaff(ctx context.Context, id string) (store.Snapshot, error)
	Import(ctx context.Context, snap store.Snapshot) (store.Snapshot, error)
}

// Reports is the read side. *services.ReportService implements it.
type Reports interface {
	CurrentMonth() core.Month
	MonthlyReport(ctx context.Context, m core.Month) (finance.Report, error)
	StaffLedger(ctx context.Context, m core.Month, staffID string) (finance.Ledger, error)
	Summary(ctx context.Context, m core.Month) (services.SummaryResult, error)
}

// Options tunes the middleware chain. Zero values use defaults.
type Options struct {
	RateLimitPerMinute int
	Logger             *applog.Logger
}

type Server struct {
	http.Server
	records RecordStore
	reports Reports

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	logger   *applog.Logger
	now      func() time.Time
}

func NewServer(addr string, records RecordStore, reports Reports, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}

	s := &Server{
		records:  records,
		reports:  reports,
		detector: security.NewDetector(),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		logger: logger,
		now:    time.Now,
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	mux := http.NewServeMux()
	s.routes(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	})

	var h http.Handler = mux
	h = limit(h)
	h = s.detector.Middleware(h)
	h = headers.Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/revenue", s.handleListRevenue)
	mux.HandleFunc("POST /api/revenue", s.handleAddRevenue)
	mux.HandleFunc("DELETE /api/revenue/{id}", s.handleDeleteRevenue)

	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleAddExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /api/advances", s.handleListAdvances)
	mux.HandleFunc("POST /api/advances", s.handleAddAdvance)
	mux.HandleFunc("DELETE /api/advances/{id}", s.handleDeleteAdvance)

	mux.HandleFunc("GET /api/staff", s.handleListStaff)
	mux.HandleFunc("POST /api/staff", s.handleAddStaff)
	mux.HandleFunc("DELETE /api/staff/{id}", s.handleRemoveStaff)

	mux.HandleFunc("GET /api/statement", s.handleStatement)
	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("GET /api/ledger/{staffID}", s.handleLedger)
	mux.HandleFunc("GET /api/daily", s.handleDaily)
	mux.HandleFunc("POST /api/summary", s.handleSummary)
	mux.HandleFunc("POST /api/cash-count", s.handleCashCount)

	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("POST /api/import", s.handleImport)
}

// Shutdown stops the rate limiter cleanup and drains connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once a snapshot can be loaded from storage.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.records.Snapshot(r.Context()); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Readiness check failed", applog.FieldError, err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
