package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/FraudShield1/homeai-bot/internal/alert"
)

// handleListAlerts returns paginated alerts with optional filters.
//
// Query parameters:
//   - type: filter by alert type (door_open, motion, water_leak, ...)
//   - severity: filter by severity (info, warning, critical)
//   - entity_id: filter by the entity that raised the alert
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := alert.Filter{
		EntityID: q.Get("entity_id"),
	}

	if v := q.Get("type"); v != "" {
		typ := alert.Type(v)
		valid := false
		for _, t := range alert.AllTypes() {
			if t == typ {
				valid = true
				break
			}
		}
		if !valid {
			writeBadRequest(w, "invalid alert type")
			return
		}
		filter.Type = typ
	}

	if v := q.Get("severity"); v != "" {
		sev := alert.Severity(v)
		valid := false
		for _, sv := range alert.AllSeverities() {
			if sv == sev {
				valid = true
				break
			}
		}
		if !valid {
			writeBadRequest(w, "invalid severity")
			return
		}
		filter.Severity = sev
	}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.alerts.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list alerts", "error", err)
		writeInternalError(w, "failed to list alerts")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleUnacknowledgedAlerts returns all alerts awaiting acknowledgement,
// newest first.
func (s *Server) handleUnacknowledgedAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.alerts.Unacknowledged(r.Context())
	if err != nil {
		s.logger.Error("failed to list unacknowledged alerts", "error", err)
		writeInternalError(w, "failed to list alerts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts, "count": len(alerts)})
}

// handleAcknowledgeAlert marks an alert as acknowledged.
func (s *Server) handleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid alert ID")
		return
	}

	if err := s.alerts.Acknowledge(r.Context(), id); err != nil {
		if errors.Is(err, alert.ErrNotFound) {
			writeNotFound(w, "alert not found")
			return
		}
		writeInternalError(w, "failed to acknowledge alert")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "acknowledged"})
}
