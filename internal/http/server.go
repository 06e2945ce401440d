package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"financeiro/internal/cashregister"
	applog "financeiro/internal/log"
	"financeiro/internal/middleware/ratelimit"
	"financeiro/internal/middleware/security"
	"financeiro/internal/middleware/trace"
	"financeiro/internal/services"
)

// Services are the application services the API exposes.
type Services struct {
	Transactions *services.TransactionService
	Suppliers    *services.SupplierService
	Dashboard    *services.DashboardService
	Recurring    *services.RecurringProcessor
	Registers    *cashregister.Service

	// Ready reports whether dependencies can serve traffic; nil means always ready.
	Ready func(ctx context.Context) error
}

// Options tune the middleware stack.
type Options struct {
	RateLimitPerMinute int
	Logger             *applog.Logger
}

type Server struct {
	http.Server
	svc         Services
	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware
	now         func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}

	s := &Server{
		svc:         svc,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:    security.NewDetector(),
		now:         time.Now,
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PATCH /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/transactions/{id}/pay", s.handlePayTransaction)
	mux.HandleFunc("POST /api/transactions/{id}/cancel", s.handleCancelTransaction)
	mux.HandleFunc("GET /api/transactions/{id}/series", s.handleSeries)
	mux.HandleFunc("POST /api/transactions/{id}/stop-recurrence", s.handleStopRecurrence)

	mux.HandleFunc("GET /api/recurrence/preview", s.handleRecurrencePreview)
	mux.HandleFunc("POST /api/recurrence/sweep", s.handleRecurrenceSweep)

	mux.HandleFunc("GET /api/suppliers", s.handleListSuppliers)
	mux.HandleFunc("POST /api/suppliers", s.handleCreateSupplier)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)

	mux.HandleFunc("GET /api/cash-register/{date}", s.handleRegisterStatus)
	mux.HandleFunc("POST /api/cash-register/{date}/open", s.handleRegisterOpen)
	mux.HandleFunc("POST /api/cash-register/{date}/close", s.handleRegisterClose)

	var h http.Handler = mux
	h = s.limitWrites(h)
	h = s.tracer.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// limitWrites rate limits mutating requests per client; reads are not limited.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.detector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			limited.ServeHTTP(w, r)
		}
	})
}

// Shutdown gracefully shuts down the server and the limiter cleanup goroutine
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.svc.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.svc.Ready(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
