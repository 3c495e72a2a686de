package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"ledger/internal/auth"
	applog "ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/notes"
	"ledger/internal/services"
)

// Pinger is implemented by backends that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the API server.
type Options struct {
	// JWTSecret enables bearer authentication. Empty means every request
	// acts as DefaultOwner.
	JWTSecret    string
	DefaultOwner string

	// RequestsPerMinute bounds writes per client IP. Zero uses the limiter default.
	RequestsPerMinute int
	TrustedProxies    []string

	Logger *applog.Logger
	// Ready backs /readyz; nil means always ready.
	Ready Pinger
}

// Server wraps http.Server with the ledger API routes.
type Server struct {
	http.Server

	ledger   *services.LedgerService
	notes    *notes.Saver
	ready    Pinger
	logger   *applog.Logger
	detector *security.Detector
	limiter  *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledger *services.LedgerService, saver *notes.Saver, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}

	s := &Server{
		ledger:   ledger,
		notes:    saver,
		ready:    opts.Ready,
		logger:   logger,
		detector: detector,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/categories", s.handleCategories)
	api.HandleFunc("GET /api/entries", s.handleListEntries)
	api.HandleFunc("POST /api/entries", s.handleCreateEntry)
	api.HandleFunc("GET /api/entries/{id}", s.handleGetEntry)
	api.HandleFunc("PATCH /api/entries/{id}", s.handleUpdateEntry)
	api.HandleFunc("DELETE /api/entries/{id}", s.handleDeleteEntry)
	api.HandleFunc("GET /api/summary", s.handleSummary)
	api.HandleFunc("GET /api/calendar", s.handleCalendar)
	api.HandleFunc("GET /api/export", s.handleExport)
	api.HandleFunc("GET /api/notes", s.handleGetNote)
	api.HandleFunc("PUT /api/notes", s.handlePutNote)
	mux.Handle("/api/", chain(api,
		auth.Middleware(opts.JWTSecret, opts.DefaultOwner),
		s.limiter.Middleware(detector.ExtractClientIP),
	))

	s.Server = http.Server{
		Addr: addr,
		Handler: chain(mux,
			trace.NewMiddleware(logger, detector.ExtractClientIP).Middleware,
			applog.Middleware(logger),
			applog.RequestIDMiddleware(trace.RequestIDFromRequest),
			security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
			detector.Middleware,
		),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// chain applies middlewares so that the first one listed runs outermost.
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Shutdown stops accepting requests, drains in-flight ones and releases the
// rate limiter. Pending notes are flushed by the caller once no handler can
// schedule more.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			slog.WarnContext(ctx, "Readiness check failed", "component", applog.ComponentStorage, "error", err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
