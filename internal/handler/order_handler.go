package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"pizzaria/internal/model"
	"pizzaria/internal/service"
	"pizzaria/internal/tracker"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Board is the live order list feeding the admin stream.
type Board interface {
	Subscribe() (<-chan tracker.Snapshot, func())
}

// OrderHandler handles order fulfilment HTTP requests.
type OrderHandler struct {
	service   service.FulfillmentService
	board     Board
	keepAlive time.Duration
	logger    zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.FulfillmentService, board Board, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service:   service,
		board:     board,
		keepAlive: 25 * time.Second,
		logger:    logger.With().Str("handler", "order").Logger(),
	}
}

// GetBySession handles GET /api/orders/by-session/{sessionId} requests.
func (h *OrderHandler) GetBySession(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetByProviderSession(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// List handles GET /api/admin/orders requests.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid limit parameter", h.logger)
			return
		}
	}

	orders, err := h.service.List(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// Advance handles POST /api/admin/orders/{id}/advance requests.
func (h *OrderHandler) Advance(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", h.logger)
	if !ok {
		return
	}

	order, err := h.service.Advance(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Stream handles GET /api/admin/orders/stream requests as server-sent
// events. Every event carries the full order list.
func (h *OrderHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "streaming unsupported", h.logger)
		return
	}

	// The server write timeout would otherwise cut the stream.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	snapshots, unsubscribe := h.board.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				h.logger.Error().Err(err).Msg("failed to encode snapshot")
				continue
			}
			if _, err := fmt.Fprintf(w, "event: orders\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
