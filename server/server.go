// Package server exposes the cost model over HTTP: one-shot computation of a
// posted scenario, the stock presets, and live websocket sessions that
// recompute after every edit.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"roi-calculator/config"
	"roi-calculator/costmodel"
	"roi-calculator/formatter"
	"roi-calculator/metrics"
	"roi-calculator/models"
	"roi-calculator/session"
)

// Server wires the HTTP routes to the cost model.
type Server struct {
	cfg       *config.Config
	logger    *slog.Logger
	upgrader  websocket.Upgrader
	startTime time.Time
	initial   models.Scenario
	limiter   *RateLimiter
}

// New builds a server whose live sessions start from initial.
func New(cfg *config.Config, logger *slog.Logger, initial models.Scenario) *Server {
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		startTime: time.Now(),
		initial:   initial.Clone(),
	}
	if cfg.RateLimit.Enabled {
		s.limiter = NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize, cfg.RateLimit.VisitorTTL)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Routes returns the router with all middleware applied.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	if s.cfg.RateLimit.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(RequestID)
	r.Use(RequestLogger(s.logger))
	r.Use(RecoveryLogger(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/health/live", s.handleLiveness)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Middleware)
		}
		r.Get("/presets/{name}", s.handlePreset)
		r.Post("/compute", s.handleCompute)
		r.Get("/ws", s.handleLiveSession)
	})

	return r
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then shuts down
// gracefully within the configured timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.Routes(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	if s.limiter != nil {
		go s.limiter.RunCleanup(ctx, s.cfg.RateLimit.CleanupInterval)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server shutdown complete")
	return nil
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version,omitempty"`
	Uptime    string `json:"uptime,omitempty"`
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.cfg.App.Version,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Server) handlePreset(w http.ResponseWriter, r *http.Request) {
	p, err := session.Preset(chi.URLParam(r, "name"))
	if err != nil {
		WriteError(w, http.StatusNotFound, "UNKNOWN_PRESET", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

// handleCompute decodes a scenario on top of the default preset and answers with
// the derived results. Omitted sections keep their defaults; an empty body
// computes the default scenario.
func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	switch format {
	case "", "json", "text", "csv":
	default:
		WriteError(w, http.StatusBadRequest, "INVALID_FORMAT",
			fmt.Sprintf("format must be one of: json, text, csv (got: %s)", format))
		return
	}

	// Channels start nil so a posted list never inherits fields from the
	// default channel at the same index.
	scenario := models.DefaultScenario()
	scenario.Channels = nil
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&scenario); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, http.StatusBadRequest, "INVALID_SCENARIO", "invalid scenario: "+err.Error())
		return
	}
	if scenario.Channels == nil {
		scenario.Channels = models.DefaultChannels()
	}

	start := time.Now()
	results := costmodel.Compute(scenario)
	metrics.ComputeDurationSeconds.Observe(time.Since(start).Seconds())
	metrics.ObserveResults("http", results)

	if err := costmodel.CheckFinite(results); err != nil {
		WriteError(w, http.StatusUnprocessableEntity, "NON_FINITE_RESULT", err.Error())
		return
	}

	switch format {
	case "text":
		writeText(w, "text/plain; charset=utf-8", formatter.FormatText(results, r.URL.Query().Get("breakdown") == "true"))
	case "csv":
		writeText(w, "text/csv; charset=utf-8", formatter.FormatCSV(results))
	default:
		WriteJSON(w, http.StatusOK, results)
	}
}
