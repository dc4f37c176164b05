package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/oddsight/oddsight/internal/domain"
	"github.com/oddsight/oddsight/internal/server/handler"
	"github.com/oddsight/oddsight/internal/server/middleware"
	"github.com/oddsight/oddsight/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	CronSecret  string // guards the /api/cron endpoints

	// ReadLimiter, when set, rate-limits the read surface per client IP.
	ReadLimiter domain.RateLimiter
	ReadLimit   int
	ReadWindow  time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	EV        *handler.EVHandler
	Mispriced *handler.MispricedHandler
	History   *handler.HistoryHandler
	Cron      *handler.CronHandler
}

// Server is the read-side HTTP + WebSocket surface. It serves only the
// published cache buckets and the cron trigger endpoints.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered. It wires up
// middleware (logging, CORS, cron auth on the trigger routes) and attaches
// the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Published aggregate buckets.
	mux.HandleFunc("GET /api/ev/{sport}", handlers.EV.GetSport)
	mux.HandleFunc("GET /api/ev/{sport}/events/{event}", handlers.EV.GetEvent)
	mux.HandleFunc("GET /api/mispriced", handlers.Mispriced.Get)

	// Postgres-backed audit surface.
	if handlers.History != nil {
		mux.HandleFunc("GET /api/history/ev/{sport}", handlers.History.ListEV)
		mux.HandleFunc("GET /api/runs", handlers.History.ListRuns)
	}

	// Scheduled triggers, guarded by the shared cron secret.
	if handlers.Cron != nil {
		cronAuth := middleware.CronAuth(cfg.CronSecret)
		mux.Handle("POST /api/cron/ev", cronAuth(http.HandlerFunc(handlers.Cron.TriggerEV)))
		mux.Handle("POST /api/cron/mispriced", cronAuth(http.HandlerFunc(handlers.Cron.TriggerMispriced)))
		mux.Handle("POST /api/cron/aggregate", cronAuth(http.HandlerFunc(handlers.Cron.TriggerAggregate)))
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	if cfg.ReadLimiter != nil && cfg.ReadLimit > 0 {
		h = middleware.RateLimit(cfg.ReadLimiter, cfg.ReadLimit, cfg.ReadWindow)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		handler:    h,
		logger:     logger,
	}
}

// Handler exposes the full middleware-wrapped handler chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
