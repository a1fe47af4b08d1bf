package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem is a priced item sent to a payment provider.
type LineItem struct {
	ID          string          `json:"id" validate:"required"`
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description,omitempty"`
	Quantity    int             `json:"quantity" validate:"gte=1"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Currency    string          `json:"currency,omitempty"`
	CategoryID  string          `json:"categoryId,omitempty"`
	Image       string          `json:"image,omitempty"`

	// Order snapshot details, not sent to providers.
	Size         Size   `json:"size,omitempty"`
	Border       Border `json:"border,omitempty"`
	Observations string `json:"observations,omitempty"`
}

// CheckoutRequest is the input of a checkout session creation.
type CheckoutRequest struct {
	Items          []LineItem   `json:"items"`
	Customer       DeliveryInfo `json:"customer"`
	Provider       string       `json:"provider,omitempty"`
	IdempotencyKey string       `json:"-"`
}

// CheckoutResult is what the caller needs to redirect the customer.
type CheckoutResult struct {
	OrderID     uuid.UUID       `json:"orderId"`
	Provider    string          `json:"provider"`
	SessionID   string          `json:"sessionId"`
	RedirectURL string          `json:"url"`
	Total       decimal.Decimal `json:"total"`
	Replayed    bool            `json:"replayed,omitempty"`
}

// PreferenceRequest is the Mercado Pago checkout contract: items plus a correlation id.
type PreferenceRequest struct {
	Items     []LineItem
	UserEmail string
	Reference string
}

// PreferenceResult is the created Mercado Pago preference.
type PreferenceResult struct {
	PreferenceID string `json:"preferenceId"`
	InitPoint    string `json:"initPoint"`
}
