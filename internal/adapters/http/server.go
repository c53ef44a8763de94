// Package http provides the HTTP server and handlers.
package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/paulmach/orb"

	"github.com/jobrunner/georef/internal/application"
	"github.com/jobrunner/georef/internal/config"
	"github.com/jobrunner/georef/internal/ports/input"
)

// RequestIDHeader carries the id assigned to every request.
const RequestIDHeader = "X-Request-ID"

// Transformer runs coordinate batches and geometries through a
// transformation.
type Transformer interface {
	input.TransformService
	TransformGeometry(ctx context.Context, source, target string, g orb.Geometry) (orb.Geometry, error)
}

// Syncer triggers a catalog sync on demand.
type Syncer interface {
	TriggerSync(ctx context.Context) (application.SyncResult, error)
}

// MetricsExporter exposes request metrics and the scrape endpoint.
type MetricsExporter interface {
	Handler() http.Handler
	Middleware(next http.Handler) http.Handler
}

// Services bundles the application services the handlers call. Sync and
// Metrics may be nil.
type Services struct {
	Resolver  input.DefinitionResolver
	Transform Transformer
	Health    input.HealthChecker
	Sync      Syncer
	Metrics   MetricsExporter
}

// Server wraps the HTTP server with application handlers.
type Server struct {
	server      *http.Server
	router      *mux.Router
	services    Services
	logger      *slog.Logger
	config      config.ServerConfig
	metricsPath string
}

// NewServer creates a new HTTP server. metricsPath is where the metrics
// handler is mounted when services.Metrics is set.
func NewServer(cfg config.ServerConfig, services Services, metricsPath string, logger *slog.Logger) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 4 << 20
	}
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	s := &Server{
		services:    services,
		logger:      logger,
		config:      cfg,
		metricsPath: metricsPath,
	}

	s.router = s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	if s.services.Metrics != nil {
		r.Use(s.services.Metrics.Middleware)
	}

	// Add CORS middleware if configured
	if s.config.CORS.Enabled() {
		r.Use(newCORSPolicy(s.config.CORS.AllowedOrigins).middleware)
	}

	// Health endpoints
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/health/live", s.handleLiveness).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", s.handleReadiness).Methods(http.MethodGet)

	if s.services.Metrics != nil {
		r.Handle(s.metricsPath, s.services.Metrics.Handler()).Methods(http.MethodGet)
	}

	// API v1
	api := r.PathPrefix("/api/v1").Subrouter()

	// Definition endpoints
	api.HandleFunc("/srs/validate", s.handleValidate).Methods(s.methods(http.MethodPost)...)
	api.HandleFunc("/srs/proj", s.handleProjString).Methods(s.methods(http.MethodPost)...)
	api.HandleFunc("/srs/{code}", s.handleGetDefinition).Methods(s.methods(http.MethodGet)...)

	// Transformation endpoints
	api.HandleFunc("/transform", s.handleTransform).Methods(s.methods(http.MethodPost)...)
	api.HandleFunc("/transform/geojson", s.handleTransformGeoJSON).Methods(s.methods(http.MethodPost)...)

	// Sync endpoint (only if sync service is configured)
	if s.services.Sync != nil {
		api.HandleFunc("/sync", s.handleSync).Methods(s.methods(http.MethodPost)...)
	}

	r.HandleFunc("/openapi.json", s.handleOpenAPI).Methods(http.MethodGet)

	return r
}

// methods adds OPTIONS for API routes when CORS preflight requests have
// to reach the CORS middleware.
func (s *Server) methods(m string) []string {
	if s.config.CORS.Enabled() {
		return []string{m, http.MethodOptions}
	}
	return []string{m}
}

// Router returns the mux router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "address", s.config.Address())
	return s.server.ListenAndServe()
}

// StartTLS starts the HTTP server with the given TLS configuration. The
// certificates come from tlsConfig, so no files are passed.
func (s *Server) StartTLS(tlsConfig *tls.Config) error {
	s.server.TLSConfig = tlsConfig
	s.logger.Info("starting HTTPS server", "address", s.config.Address())
	return s.server.ListenAndServeTLS("", "")
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

type requestIDKey struct{}

// RequestID returns the id the middleware attached to ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestIDMiddleware keeps a client supplied X-Request-ID or assigns a
// new one, and echoes it in the response.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// loggingMiddleware logs incoming requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.Info("request",
			"request_id", RequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// recoveryMiddleware recovers from panics.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered",
					"error", err,
					"path", r.URL.Path,
					"request_id", RequestID(r.Context()),
				)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
