package handler

import (
	"net/http"

	"pizzaria/internal/address"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// AddressHandler handles postal code lookups.
type AddressHandler struct {
	resolver address.Resolver
	logger   zerolog.Logger
}

// NewAddressHandler creates a new address handler.
func NewAddressHandler(resolver address.Resolver, logger zerolog.Logger) *AddressHandler {
	return &AddressHandler{
		resolver: resolver,
		logger:   logger.With().Str("handler", "address").Logger(),
	}
}

// Lookup handles GET /api/cep/{cep} requests.
func (h *AddressHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	result, err := h.resolver.Lookup(r.Context(), chi.URLParam(r, "cep"))
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
