// Package handler provides the HTTP and live channel handlers of the
// stand-in server.
package handler

import (
	"net/http"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	hub *Hub
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(hub *Hub) *HealthHandler {
	return &HealthHandler{
		hub: hub,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "live channel hub not running",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ready",
		"connections": h.hub.Count(),
	})
}
