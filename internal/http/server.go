package http

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/device"
	applog "spendlog/internal/log"
	"spendlog/internal/middleware/ratelimit"
	"spendlog/internal/middleware/security"
	"spendlog/internal/middleware/trace"
)

// ExpenseService is the device-scoped CRUD and summary surface the server
// exposes.
type ExpenseService interface {
	Create(ctx context.Context, deviceID string, in core.ExpenseInput) (core.Expense, error)
	List(ctx context.Context, deviceID string) ([]core.Expense, error)
	Update(ctx context.Context, deviceID, id string, patch core.ExpensePatch) (core.Expense, error)
	Delete(ctx context.Context, deviceID, id string) error
	Summary(ctx context.Context, deviceID string, f core.ExpenseFilter, budget *core.Money) (core.Summary, error)
	Ready(ctx context.Context) error
}

// Options tunes the middleware chain.
type Options struct {
	Logger             *applog.Logger
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	TrustedProxies     []string
	ReadyTimeout       time.Duration
}

// expensePrefixes are the mount points of the expense routes.
var expensePrefixes = []string{"/expenses", "/api/expenses"}

type Server struct {
	http.Server
	svc          ExpenseService
	logger       *applog.Logger
	limiter      *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware
	readyTimeout time.Duration
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc ExpenseService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	readyTimeout := opts.ReadyTimeout
	if readyTimeout <= 0 {
		readyTimeout = 5 * time.Second
	}

	s := &Server{
		svc:          svc,
		logger:       logger,
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:     security.NewDetector(),
		readyTimeout: readyTimeout,
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", applog.FieldError, err.Error())
		}
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	for _, prefix := range expensePrefixes {
		mux.HandleFunc("POST "+prefix, s.handleCreateExpense)
		mux.HandleFunc("GET "+prefix, s.handleListExpenses)
		mux.HandleFunc("GET "+prefix+"/summary", s.handleSummary)
		mux.HandleFunc("PUT "+prefix+"/{id}", s.handleUpdateExpense)
		mux.HandleFunc("DELETE "+prefix+"/{id}", s.handleDeleteExpense)
	}
	mux.HandleFunc("GET /{$}", handleIndex)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	cors := security.NewCORS(opts.CORSAllowedOrigins, device.HeaderName)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(
		limiterKey(s.detector.ExtractClientIP),
		func(r *http.Request) bool { return !isMutation(r.Method) },
		func(w http.ResponseWriter, r *http.Request) {
			s.logger.WarnContext(r.Context(), "Rate limit exceeded",
				applog.FieldClientIP, s.detector.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			TooManyRequestsError().Write(w)
		},
	)

	var handler http.Handler = mux
	handler = limit(handler)
	handler = cors.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = s.flagSuspicious(handler)
	handler = s.tracer.Middleware(handler)
	handler = applog.Middleware(logger)(handler)
	handler = s.recoverPanics(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// recoverPanics turns a handler panic into a JSON 500.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.ErrorContext(r.Context(), "Panic in HTTP handler",
					applog.FieldError, fmt.Sprint(rec),
					applog.FieldPath, r.URL.Path,
					"stack", string(debug.Stack()))
				InternalServerError(msgInternal).Write(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// flagSuspicious logs probing requests without blocking them.
func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.IsSuspicious(r) {
			applog.FromContext(r.Context()).WithComponent(applog.ComponentSecurity).WarnContext(r.Context(), "Suspicious request",
				applog.FieldClientIP, s.detector.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("API is running ✅"))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady pings the record store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.readyTimeout)
	defer cancel()

	if err := s.svc.Ready(ctx); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err.Error())
		NewJSONResponse().
			Status(http.StatusServiceUnavailable).
			Payload(map[string]string{"status": "not_ready", "store": err.Error()}).
			Write(w)
		return
	}
	NewJSONResponse().Payload(map[string]string{"status": "ready", "store": "ok"}).Write(w)
}
