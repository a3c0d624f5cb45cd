package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"orgledger/internal/auth"
	"orgledger/internal/ingest"
	"orgledger/internal/log"
	"orgledger/internal/middleware/ratelimit"
	"orgledger/internal/middleware/security"
	"orgledger/internal/middleware/trace"
	"orgledger/internal/services"
)

// Services are the application services the handlers call.
type Services struct {
	Catalog      *services.CatalogService
	Ledger       *services.LedgerService
	Transactions *services.TransactionService
	Imports      *services.ImportService
	Auth         *auth.Authenticator
	// Normalizer maps manually entered transactions. Nil means ingest.Default.
	Normalizer *ingest.Normalizer
}

// Options tune the middleware chain and readiness probe.
type Options struct {
	RateLimitPerMinute int
	AllowedOrigins     []string
	// TrustedProxies are CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string
	// MaxUploadBytes caps multipart uploads. Zero means 16 MiB.
	MaxUploadBytes int64
	// Ready reports whether dependencies are reachable. Nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *log.Logger
}

type Server struct {
	http.Server
	svc            Services
	ready          func(ctx context.Context) error
	maxUploadBytes int64
	logger         *log.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 16 << 20
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		svc:            svc,
		ready:          opts.Ready,
		maxUploadBytes: opts.MaxUploadBytes,
		logger:         logger.WithComponent(log.ComponentHTTP),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			CleanupInterval:   5 * time.Minute,
		}),
		detector: security.NewDetector(),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	router := s.routes()

	// The chain wraps the router rather than using router.Use so that
	// preflight, 404 and 405 responses get the same headers.
	var handler http.Handler = router
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
	})(handler)
	handler = security.CORS(opts.AllowedOrigins)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) normalizer() *ingest.Normalizer {
	if s.svc.Normalizer != nil {
		return s.svc.Normalizer
	}
	return ingest.Default
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		NotFoundError("route not found").Write(w)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		MethodNotAllowedError().Write(w)
	})

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	r.HandleFunc("/organizations", s.handleListOrganizations).Methods(http.MethodGet)
	r.HandleFunc("/organizations", s.handleCreateOrganization).Methods(http.MethodPost)
	r.HandleFunc("/organizations/{id}", s.handleGetOrganization).Methods(http.MethodGet)
	r.HandleFunc("/organizations/{id}", s.handleUpdateOrganization).Methods(http.MethodPut)
	r.HandleFunc("/organizations/{id}", s.handleDeleteOrganization).Methods(http.MethodDelete)
	r.HandleFunc("/organizations/{id}/dashboard", s.handleDashboard).Methods(http.MethodGet)
	r.HandleFunc("/organizations/{id}/breakdown", s.handleBreakdown).Methods(http.MethodGet)
	r.HandleFunc("/organizations/{id}/rankings", s.handleRankings).Methods(http.MethodGet)
	r.HandleFunc("/organizations/{id}/trend", s.handleTrend).Methods(http.MethodGet)

	r.HandleFunc("/departments", s.handleListDepartments).Methods(http.MethodGet)
	r.HandleFunc("/clients", s.handleListClients).Methods(http.MethodGet)

	r.HandleFunc("/projects", s.handleListProjects).Methods(http.MethodGet)
	r.HandleFunc("/projects", s.handleCreateProject).Methods(http.MethodPost)
	r.HandleFunc("/projects/{id}", s.handleUpdateProject).Methods(http.MethodPut)
	r.HandleFunc("/projects/{id}", s.handleDeleteProject).Methods(http.MethodDelete)
	r.HandleFunc("/projects/{id}/summary", s.handleProjectSummary).Methods(http.MethodGet)

	r.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	r.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)

	r.HandleFunc("/import-transactions", s.handleImportRows).Methods(http.MethodPost)
	r.HandleFunc("/import-transactions/upload", s.handleImportUpload).Methods(http.MethodPost)
	r.HandleFunc("/import-transactions/sheet", s.handleImportSheet).Methods(http.MethodPost)
	r.HandleFunc("/imported-transactions", s.handleListImported).Methods(http.MethodGet)
	r.HandleFunc("/project-financials", s.handleProjectFinancials).Methods(http.MethodGet)

	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	return r
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
		s.logger.InfoContext(ctx, "HTTP server stopped",
			"requests_served", s.tracer.GetMetrics().TotalRequests,
			"rate_limit_hits", s.limiter.GetMetrics().TotalHits,
			"suspicious_requests", s.detector.GetMetrics().SuspiciousRequests,
			log.FieldOperation, log.OpShutdown)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			ServiceUnavailableError("not ready").Write(w)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
