package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"pizzaria/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// idempotencyHeader carries the client-supplied checkout token.
const idempotencyHeader = "Idempotency-Key"

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already sent; nothing useful left to tell the client.
		return
	}
}

// writeError writes an error response with the given status code and code.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("error", message).Str("code", code).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: message, Code: code})
}

// writeDomainError maps err to its HTTP status and writes it.
func writeDomainError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		// Storage and configuration details stay in the log.
		logger.Error().Err(err).Msg("request failed")
		message = "internal server error"
		var de *model.DomainError
		if errors.As(err, &de) {
			message = de.Message
		}
	}
	writeError(w, status, model.CodeOf(err), message, logger)
}

// statusFor returns the HTTP status of a domain error kind.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation),
		errors.Is(err, model.ErrInvalidQuantity),
		errors.Is(err, model.ErrInvalidPostalCode):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrOrderNotFound),
		errors.Is(err, model.ErrProductNotFound),
		errors.Is(err, model.ErrSessionNotFound),
		errors.Is(err, model.ErrCartLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrInvalidState),
		errors.Is(err, model.ErrCheckoutInFlight):
		return http.StatusConflict
	case errors.Is(err, model.ErrProviderNotConfigured):
		return http.StatusInternalServerError
	case errors.Is(err, model.ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes the request body into dst, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, logger zerolog.Logger) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", logger)
		return false
	}
	return true
}

// uuidParam parses a UUID route parameter, answering 400 on failure.
func uuidParam(w http.ResponseWriter, r *http.Request, name string, logger zerolog.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid "+name+" format", logger)
		return uuid.Nil, false
	}
	return id, true
}
