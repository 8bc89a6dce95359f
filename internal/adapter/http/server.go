// Package http exposes the engine's operational surface: health, readiness,
// metrics, the manual collection trigger, alert lifecycle updates, and the
// WebSocket fan-out endpoint.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazardwatch/alert-engine/internal/domain"
	"github.com/hazardwatch/alert-engine/internal/scheduler"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Collector triggers a synchronous collection cycle for one category or
// "all".
type Collector interface {
	CollectNow(ctx context.Context, category string) ([]scheduler.CollectionResult, error)
}

// StatusUpdater moves an alert through its lifecycle.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, id string, status domain.Status) (domain.Alert, error)
}

// UpdatePublisher pushes a status change to live subscribers.
type UpdatePublisher interface {
	PublishUpdate(alert domain.Alert) int
}

// Deps are the collaborators behind the HTTP surface. WS may be nil to run
// without the WebSocket endpoint.
type Deps struct {
	Ready   ReadinessChecker
	Trigger Collector
	Alerts  StatusUpdater
	Updates UpdatePublisher
	WS      http.Handler
}

// Server exposes the engine's HTTP endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with all engine routes registered.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// A manual "all" trigger runs three upstream collections
			// back-to-back, so the write timeout is generous.
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /collect", s.handleCollect)
	mux.HandleFunc("POST /alerts/{id}/status", s.handleStatusUpdate)
	if deps.WS != nil {
		mux.Handle("GET /ws", deps.WS)
	}

	return s
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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.deps.Ready.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleCollect runs a synchronous collection cycle. Per-category failures
// live inside the summary; only an unknown category fails the request.
func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		category = "all"
	}

	results, err := s.deps.Trigger.CollectNow(r.Context(), category)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleStatusUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	updated, err := s.deps.Alerts.UpdateStatus(r.Context(), id, status)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, domain.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	case err != nil:
		s.logger.Error("status update failed", "alert_id", id, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "alert store unavailable"})
		return
	}

	if s.deps.Updates != nil {
		s.deps.Updates.PublishUpdate(updated)
	}
	writeJSON(w, http.StatusOK, updated)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
