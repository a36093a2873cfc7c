package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds the dependency probes in the health endpoint.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", s.handleHealth)

		// Scene endpoints
		r.Route("/scenes", func(r chi.Router) {
			r.Get("/", s.handleListScenes)

			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.handleGetScene)
				r.Put("/", s.handlePutScene)
				r.Delete("/", s.handleDeleteScene)
				r.Post("/activate", s.handleActivateScene)
				r.Get("/activations", s.handleListSceneActivations)
			})
		})

		// Alert endpoints
		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", s.handleListAlerts)
			r.Get("/unacknowledged", s.handleUnacknowledgedAlerts)
			r.Post("/{id}/ack", s.handleAcknowledgeAlert)
		})

		// Monitoring engine status
		r.Get("/monitor/status", s.handleMonitorStatus)

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns server health plus the status of each backing
// dependency. The overall status degrades when a dependency probe fails
// but the endpoint always responds 200 so load balancers can read it.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := "ok"
	deps := make(map[string]string)

	if s.db != nil {
		if err := s.db.HealthCheck(ctx); err != nil {
			deps["database"] = "error: " + err.Error()
			status = "degraded"
		} else {
			deps["database"] = "ok"
		}
	}

	if s.ha != nil {
		if err := s.ha.HealthCheck(ctx); err != nil {
			deps["home_assistant"] = "error: " + err.Error()
			status = "degraded"
		} else {
			deps["home_assistant"] = "ok"
		}
	}

	if s.mqtt != nil {
		if s.mqtt.IsConnected() {
			deps["mqtt"] = "ok"
		} else {
			deps["mqtt"] = "disconnected"
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       status,
		"version":      s.version,
		"dependencies": deps,
	})
}
