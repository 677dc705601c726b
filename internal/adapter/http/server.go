package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/coastal-alert-service/internal/domain"
	"github.com/couchcryptid/coastal-alert-service/internal/notify"
	"github.com/couchcryptid/coastal-alert-service/internal/pipeline"
	"github.com/couchcryptid/coastal-alert-service/internal/store"
)

// StatusReporter reports which notification providers are live.
type StatusReporter interface {
	Status() notify.ServiceStatus
}

// Options configures the API surface.
type Options struct {
	Addr           string
	Region         string
	Timezone       *time.Location
	Origin         domain.Geo
	StreamInterval time.Duration
}

// Server exposes the coastal alert API together with health, readiness, and
// metrics endpoints.
type Server struct {
	httpServer *http.Server
	opts       Options
	pipeline   *pipeline.Pipeline
	store      store.Store
	notifier   StatusReporter
	logger     *slog.Logger
}

// NewServer creates the HTTP server and mounts every route.
func NewServer(opts Options, p *pipeline.Pipeline, s store.Store, notifier StatusReporter, logger *slog.Logger) *Server {
	if opts.Timezone == nil {
		opts.Timezone = time.UTC
	}
	if opts.StreamInterval <= 0 {
		opts.StreamInterval = 5 * time.Second
	}
	r := chi.NewRouter()

	srv := &Server{
		httpServer: &http.Server{
			Addr:        opts.Addr,
			Handler:     r,
			ReadTimeout: 10 * time.Second,
			// The event stream clears its own write deadline.
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		opts:     opts,
		pipeline: p,
		store:    s,
		notifier: notifier,
		logger:   logger,
	}

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(p))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/ingest", srv.handleIngest)
		r.Get("/ingest", srv.handleListReadings)

		r.Get("/alerts", srv.handleListAlerts)
		r.Post("/alerts", srv.handleAlertAction)
		r.Delete("/alerts", srv.handleClearAlert)

		r.Post("/simulator", srv.handleSimulate)
		r.Get("/simulator", srv.handleSimulatorInfo)

		r.Get("/stream", srv.handleStream)
		r.Get("/risk-levels", srv.handleRiskLevels)
		r.Get("/status", srv.handleStatus)
	})

	return srv
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// requestLogger writes one access log line per request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
