package gateway

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for wheel renderers.
type WebSocketHandler struct {
	svc *Service
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(svc *Service) *WebSocketHandler {
	return &WebSocketHandler{svc: svc}
}

// HandleWheelConnection handles WebSocket connections for a specific wheel.
// The new connection immediately receives a WheelState snapshot.
func (h *WebSocketHandler) HandleWheelConnection(w http.ResponseWriter, r *http.Request) {
	wheelIDStr := chi.URLParam(r, "wheel_id")
	wheelID, err := uuid.Parse(wheelIDStr)
	if err != nil {
		http.Error(w, "invalid wheel_id format", http.StatusBadRequest)
		return
	}

	session, err := h.svc.ViewFor(r.Context(), wheelID)
	if err != nil {
		log.Error().
			Err(err).
			Str("wheel_id", wheelID.String()).
			Msg("failed to load wheel view")
		http.Error(w, "failed to load wheel", http.StatusBadGateway)
		return
	}

	conn, err := h.svc.ConnectionManager().UpgradeConnection(w, r, wheelID)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}

	snapshot, err := NewWheelEvent(wheelID, EventTypeWheelState, h.svc.StatePayload(session))
	if err != nil {
		log.Error().Err(err).Str("wheel_id", wheelID.String()).Msg("failed to build state snapshot")
		return
	}
	h.svc.ConnectionManager().SendToConnection(conn, snapshot)
}

// HandleConnectionStats returns statistics about active connections.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	total, wheels := h.svc.ConnectionManager().GetConnectionStats()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"total_connections":%d,"active_wheels":%d}`, total, wheels)
}

// HandleHealth is a liveness probe.
func (h *WebSocketHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// RegisterRoutes registers the gateway routes.
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{wheel_id}", h.HandleWheelConnection)
	r.Get("/ws-stats", h.HandleConnectionStats)
	r.Get("/healthz", h.HandleHealth)
}
