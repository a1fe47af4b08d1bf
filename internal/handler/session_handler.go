package handler

import (
	"context"
	"errors"
	"net/http"

	"pizzaria/internal/cart"
	"pizzaria/internal/model"
	"pizzaria/internal/service"
	"pizzaria/internal/session"
	"pizzaria/internal/wizard"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionHandler handles browsing session, cart and wizard HTTP requests.
type SessionHandler struct {
	sessions *session.Manager
	products service.ProductService
	checkout service.CheckoutService
	logger   zerolog.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(
	sessions *session.Manager,
	products service.ProductService,
	checkout service.CheckoutService,
	logger zerolog.Logger,
) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		products: products,
		checkout: checkout,
		logger:   logger.With().Str("handler", "session").Logger(),
	}
}

// SessionResponse is a session with its cart and wizard state.
type SessionResponse struct {
	SessionID uuid.UUID         `json:"sessionId"`
	Cart      model.CartSummary `json:"cart"`
	Wizard    wizard.View       `json:"wizard"`
}

// CustomizationRequest is the payload of a wizard customization.
type CustomizationRequest struct {
	model.Customization
	Quantity int `json:"quantity"`
}

// OpenRequest is the payload of a wizard open.
type OpenRequest struct {
	ProductID string `json:"productId"`
}

// Create handles POST /api/sessions requests.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	h.logger.Debug().Str("session_id", s.ID.String()).Msg("session created")
	writeJSON(w, http.StatusCreated, map[string]uuid.UUID{"sessionId": s.ID})
}

// Get handles GET /api/sessions/{sid} requests.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeSession(w, r, s)
}

// Cart handles GET /api/sessions/{sid}/cart?type= requests.
func (h *SessionHandler) Cart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	summary, _, err := s.Summary(h.fulfillment(r, s))
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// AddItem handles POST /api/sessions/{sid}/cart/items requests.
func (h *SessionHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req model.CartItemRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	product, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	c := model.DefaultCustomization()
	if req.Size != "" {
		c.Size = req.Size
	}
	if req.Border != "" {
		c.Border = req.Border
	}
	c.Observations = req.Observations
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	var line model.CartLine
	err = s.Do(func(store *cart.Store, _ *wizard.Wizard) error {
		var addErr error
		line, addErr = store.Add(*product, c, quantity)
		return addErr
	})
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, line)
}

// UpdateItem handles PATCH /api/sessions/{sid}/cart/items/{lineId} requests.
// A quantity of 0 removes the line.
func (h *SessionHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	lineID, ok := uuidParam(w, r, "lineId", h.logger)
	if !ok {
		return
	}

	var req model.QuantityRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	err := s.Do(func(c *cart.Store, _ *wizard.Wizard) error {
		return c.UpdateQuantity(lineID, req.Quantity)
	})
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	h.Cart(w, r)
}

// RemoveItem handles DELETE /api/sessions/{sid}/cart/items/{lineId} requests.
func (h *SessionHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	lineID, ok := uuidParam(w, r, "lineId", h.logger)
	if !ok {
		return
	}

	_ = s.Do(func(c *cart.Store, _ *wizard.Wizard) error {
		c.Remove(lineID)
		return nil
	})
	w.WriteHeader(http.StatusNoContent)
}

// ClearCart handles DELETE /api/sessions/{sid}/cart requests.
func (h *SessionHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	_ = s.Do(func(c *cart.Store, _ *wizard.Wizard) error {
		c.Clear()
		return nil
	})
	w.WriteHeader(http.StatusNoContent)
}

// Wizard handles GET /api/sessions/{sid}/wizard requests.
func (h *SessionHandler) Wizard(w http.ResponseWriter, r *http.Request) {
	h.wizardEvent(w, r, func(*wizard.Wizard) error { return nil })
}

// Open handles POST /api/sessions/{sid}/wizard/open requests.
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	product, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	h.wizardEvent(w, r, func(wz *wizard.Wizard) error {
		return wz.Open(*product)
	})
}

// Customize handles PUT /api/sessions/{sid}/wizard/customization requests.
func (h *SessionHandler) Customize(w http.ResponseWriter, r *http.Request) {
	var req CustomizationRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	h.wizardEvent(w, r, func(wz *wizard.Wizard) error {
		return wz.Customize(req.Customization, req.Quantity)
	})
}

// AddToCart handles POST /api/sessions/{sid}/wizard/add-to-cart requests.
func (h *SessionHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	h.wizardEvent(w, r, func(wz *wizard.Wizard) error {
		_, err := wz.AddToCart()
		return err
	})
}

// Finalize handles POST /api/sessions/{sid}/wizard/finalize requests.
func (h *SessionHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	h.wizardEvent(w, r, func(wz *wizard.Wizard) error {
		_, err := wz.Finalize()
		return err
	})
}

// SetDelivery handles PUT /api/sessions/{sid}/wizard/delivery requests.
func (h *SessionHandler) SetDelivery(w http.ResponseWriter, r *http.Request) {
	var req model.DeliveryInfo
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	h.wizardEvent(w, r, func(wz *wizard.Wizard) error {
		return wz.SetDelivery(req)
	})
}

// Continue handles POST /api/sessions/{sid}/wizard/continue requests.
func (h *SessionHandler) Continue(w http.ResponseWriter, r *http.Request) {
	h.wizardEvent(w, r, (*wizard.Wizard).Continue)
}

// Back handles POST /api/sessions/{sid}/wizard/back requests.
func (h *SessionHandler) Back(w http.ResponseWriter, r *http.Request) {
	h.wizardEvent(w, r, (*wizard.Wizard).Back)
}

// Cancel handles POST /api/sessions/{sid}/wizard/cancel requests.
func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.wizardEvent(w, r, (*wizard.Wizard).Cancel)
}

// Confirm handles POST /api/sessions/{sid}/wizard/confirm requests. A
// recorded-but-unsaved checkout still answers 200 with the redirect and a
// warning in the wizard view.
func (h *SessionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	checkout := keyedCheckout{service: h.checkout, key: r.Header.Get(idempotencyHeader)}
	result, err := s.Confirm(r.Context(), checkout)
	if err != nil && (result == nil || !errors.Is(err, model.ErrPersistence)) {
		writeDomainError(w, err, h.logger)
		return
	}
	if err != nil {
		h.logger.Warn().Err(err).Str("session_id", s.ID.String()).Msg("checkout completed without order record")
	}

	h.writeSession(w, r, s)
}

func (h *SessionHandler) wizardEvent(w http.ResponseWriter, r *http.Request, fn func(*wizard.Wizard) error) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var view wizard.View
	err := s.Do(func(_ *cart.Store, wz *wizard.Wizard) error {
		if err := fn(wz); err != nil {
			return err
		}
		view = wz.View()
		return nil
	})
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, ok := uuidParam(w, r, "sid", h.logger)
	if !ok {
		return nil, false
	}
	s, err := h.sessions.Get(id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return nil, false
	}
	return s, true
}

func (h *SessionHandler) writeSession(w http.ResponseWriter, r *http.Request, s *session.Session) {
	summary, view, err := s.Summary(h.fulfillment(r, s))
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{SessionID: s.ID, Cart: summary, Wizard: view})
}

// fulfillment picks the fulfillment type for totals: the query parameter,
// else the wizard's delivery type, else pickup.
func (h *SessionHandler) fulfillment(r *http.Request, s *session.Session) model.FulfillmentType {
	if t := model.FulfillmentType(r.URL.Query().Get("type")); t.Valid() {
		return t
	}
	var t model.FulfillmentType
	_ = s.Do(func(_ *cart.Store, wz *wizard.Wizard) error {
		t = wz.View().Delivery.Type
		return nil
	})
	if t.Valid() {
		return t
	}
	return model.FulfillmentRetirada
}

// keyedCheckout forwards a wizard checkout with the request's idempotency key.
type keyedCheckout struct {
	service service.CheckoutService
	key     string
}

func (k keyedCheckout) CreateCheckoutSession(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutResult, error) {
	req.IdempotencyKey = k.key
	return k.service.CreateCheckoutSession(ctx, req)
}
