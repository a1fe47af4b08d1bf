package model

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Border is the crust add-on chosen for a pizza.
type Border string

const (
	BorderTradicional Border = "tradicional"
	BorderCatupiry    Border = "catupiry"
	BorderCheddar     Border = "cheddar"
	BorderChocolate   Border = "chocolate"
)

// Valid reports whether b is a known border.
func (b Border) Valid() bool {
	switch b {
	case BorderTradicional, BorderCatupiry, BorderCheddar, BorderChocolate:
		return true
	}
	return false
}

// Customization is the per-pizza choice made in the order wizard.
type Customization struct {
	Size         Size   `json:"size"`
	Border       Border `json:"border"`
	Observations string `json:"observations"`
}

// DefaultCustomization is what the wizard starts with when opened for a product.
func DefaultCustomization() Customization {
	return Customization{Size: SizeM, Border: BorderTradicional}
}

// Signature identifies lines that should be merged in the cart.
func (c Customization) Signature() string {
	return string(c.Size) + "|" + string(c.Border) + "|" + strings.TrimSpace(c.Observations)
}

// CartLine is a product selection held in a cart.
type CartLine struct {
	ID            uuid.UUID       `json:"id"`
	Product       Product         `json:"product"`
	Customization Customization   `json:"customization"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	LineTotal     decimal.Decimal `json:"lineTotal"`
}

// CartSummary is the cart contents with derived totals.
type CartSummary struct {
	Lines        []CartLine      `json:"lines"`
	ItemCount    int             `json:"itemCount"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	DeliveryFee  decimal.Decimal `json:"deliveryFee"`
	Total        decimal.Decimal `json:"total"`
	FreeDelivery bool            `json:"freeDelivery"`
	Shortfall    decimal.Decimal `json:"shortfall"`
	Fulfillment  FulfillmentType `json:"fulfillment"`
}

// CartItemRequest is the payload for adding an item to a cart.
type CartItemRequest struct {
	ProductID    string `json:"productId"`
	Size         Size   `json:"size,omitempty"`
	Border       Border `json:"border,omitempty"`
	Observations string `json:"observations,omitempty"`
	Quantity     int    `json:"quantity,omitempty"`
}

// QuantityRequest is the payload for changing a cart line quantity.
type QuantityRequest struct {
	Quantity int `json:"quantity"`
}
