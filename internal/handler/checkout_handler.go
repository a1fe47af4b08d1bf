package handler

import (
	"errors"
	"net/http"
	"strconv"

	"pizzaria/internal/model"
	"pizzaria/internal/service"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CheckoutHandler handles the direct checkout endpoints used by storefronts
// that keep the cart client-side.
type CheckoutHandler struct {
	checkout      service.CheckoutService
	notifications service.NotificationService
	logger        zerolog.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(
	checkout service.CheckoutService,
	notifications service.NotificationService,
	logger zerolog.Logger,
) *CheckoutHandler {
	return &CheckoutHandler{
		checkout:      checkout,
		notifications: notifications,
		logger:        logger.With().Str("handler", "checkout").Logger(),
	}
}

// PreferenceItem is a Mercado Pago item as sent by the storefront.
type PreferenceItem struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	CurrencyID  string          `json:"currency_id"`
	CategoryID  string          `json:"category_id"`
}

// PreferenceRequest is the body of POST /api/mercado-pago/create-checkout.
type PreferenceRequest struct {
	Items     []PreferenceItem `json:"items"`
	UserEmail string           `json:"userEmail"`
	TesteID   string           `json:"testeId"`
}

// PaymentItem is a cart item as sent to POST /api/create-payment.
type PaymentItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Image       string          `json:"image"`
}

// CustomerInfo is the customer block of POST /api/create-payment. Type and
// address are optional; pickup is assumed without them.
type CustomerInfo struct {
	Name    string                `json:"name"`
	Email   string                `json:"email"`
	Phone   string                `json:"phone"`
	Type    model.FulfillmentType `json:"type,omitempty"`
	Address *model.Address        `json:"address,omitempty"`
}

// PaymentRequest is the body of POST /api/create-payment.
type PaymentRequest struct {
	Items        []PaymentItem `json:"items"`
	CustomerInfo CustomerInfo  `json:"customerInfo"`
	Provider     string        `json:"provider,omitempty"`
}

// PaymentResponse is the redirect target of a created payment session.
type PaymentResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
	OrderID   string `json:"orderId,omitempty"`
	Warning   string `json:"warning,omitempty"`
}

// PaymentNotification is the JSON body Mercado Pago posts to the webhook.
type PaymentNotification struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// CreatePreference handles POST /api/mercado-pago/create-checkout requests.
// Malformed items answer 400; configuration and provider failures answer 500.
func (h *CheckoutHandler) CreatePreference(w http.ResponseWriter, r *http.Request) {
	var req PreferenceRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	items := make([]model.LineItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = model.LineItem{
			ID:          item.ID,
			Title:       item.Title,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Currency:    item.CurrencyID,
			CategoryID:  item.CategoryID,
		}
	}

	result, err := h.checkout.CreatePreference(r.Context(), model.PreferenceRequest{
		Items:     items,
		UserEmail: req.UserEmail,
		Reference: req.TesteID,
	})
	if err != nil {
		if statusFor(err) == http.StatusBadRequest {
			writeDomainError(w, err, h.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, model.CodeOf(err), err.Error(), h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// CreatePayment handles POST /api/create-payment requests. When the provider
// session was created but the order could not be recorded, the redirect is
// still returned with a warning.
func (h *CheckoutHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	items := make([]model.LineItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = model.LineItem{
			ID:          item.ID,
			Title:       item.Name,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.Price,
			Currency:    "BRL",
			Image:       item.Image,
		}
	}

	fulfillment := req.CustomerInfo.Type
	if fulfillment == "" {
		fulfillment = model.FulfillmentRetirada
	}

	result, err := h.checkout.CreateCheckoutSession(r.Context(), model.CheckoutRequest{
		Items: items,
		Customer: model.DeliveryInfo{
			Type:    fulfillment,
			Name:    req.CustomerInfo.Name,
			Email:   req.CustomerInfo.Email,
			Phone:   req.CustomerInfo.Phone,
			Address: req.CustomerInfo.Address,
		},
		Provider:       req.Provider,
		IdempotencyKey: r.Header.Get(idempotencyHeader),
	})
	if err != nil && (result == nil || !errors.Is(err, model.ErrPersistence)) {
		writeDomainError(w, err, h.logger)
		return
	}

	resp := PaymentResponse{
		URL:       result.RedirectURL,
		SessionID: result.SessionID,
		OrderID:   result.OrderID.String(),
	}
	if err != nil {
		h.logger.Warn().Err(err).Str("session_id", result.SessionID).Msg("payment session created without order record")
		resp.OrderID = ""
		resp.Warning = "order could not be recorded"
	}

	writeJSON(w, http.StatusOK, resp)
}

// PaymentWebhook handles POST /api/mercado-pago/webhook notifications. The
// payment id comes from the JSON body or from the data.id / id query
// parameters. Non-payment topics are acknowledged and ignored.
func (h *CheckoutHandler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var note PaymentNotification
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &note, h.logger) {
			return
		}
	}

	q := r.URL.Query()
	if note.Type == "" {
		note.Type = q.Get("type")
	}
	if note.Type == "" {
		note.Type = q.Get("topic")
	}
	if note.Data.ID == "" {
		note.Data.ID = q.Get("data.id")
	}
	if note.Data.ID == "" {
		note.Data.ID = q.Get("id")
	}

	if note.Type != "payment" {
		h.logger.Debug().Str("type", note.Type).Msg("ignoring notification")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	paymentID, err := strconv.Atoi(note.Data.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid payment id", h.logger)
		return
	}

	status, err := h.notifications.HandlePayment(r.Context(), paymentID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": status.Status})
}
