package api

import "net/http"

// handleMonitorStatus reports the monitoring engine's runtime counters.
func (s *Server) handleMonitorStatus(w http.ResponseWriter, _ *http.Request) {
	if s.monitor == nil {
		writeInternalError(w, "monitoring engine not configured")
		return
	}

	writeJSON(w, http.StatusOK, s.monitor.Status())
}
