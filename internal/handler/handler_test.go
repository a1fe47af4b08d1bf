package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"pizzaria/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{model.ValidationError("bad"), http.StatusBadRequest},
		{model.ErrInvalidQuantity, http.StatusBadRequest},
		{model.InvalidPostalCodeError("123"), http.StatusBadRequest},
		{model.ErrOrderNotFound, http.StatusNotFound},
		{model.ErrProductNotFound, http.StatusNotFound},
		{model.ErrSessionNotFound, http.StatusNotFound},
		{model.ErrCartLineNotFound, http.StatusNotFound},
		{model.InvalidTransitionError(model.StatusEntregue, "terminal"), http.StatusConflict},
		{model.InvalidStateError("confirm", "idle"), http.StatusConflict},
		{model.ErrCheckoutInFlight, http.StatusConflict},
		{model.ProviderNotConfiguredError("stripe"), http.StatusInternalServerError},
		{model.ProviderError("stripe", errors.New("declined")), http.StatusBadGateway},
		{model.PersistenceError(errors.New("down")), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", model.ErrOrderNotFound), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestWriteDomainError_HidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()

	writeDomainError(w, model.PersistenceError(errors.New("password authentication failed")), zerolog.Nop())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	assert.Contains(t, w.Body.String(), model.ErrCodePersistence)

	w = httptest.NewRecorder()
	writeDomainError(w, errors.New("nil pointer"), zerolog.Nop())

	assert.Contains(t, w.Body.String(), "internal server error")
	assert.Contains(t, w.Body.String(), model.ErrCodeInternalError)
}
