package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the fulfilment status of a persisted order.
type Status string

const (
	StatusPendente  Status = "pendente"
	StatusEmPreparo Status = "em_preparo"
	StatusEnviado   Status = "enviado"
	StatusEntregue  Status = "entregue"
)

// statusFlow is the forward-only fulfilment chain. Entregue has no successor.
var statusFlow = map[Status]Status{
	StatusPendente:  StatusEmPreparo,
	StatusEmPreparo: StatusEnviado,
	StatusEnviado:   StatusEntregue,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPendente, StatusEmPreparo, StatusEnviado, StatusEntregue:
		return true
	}
	return false
}

// Next returns the unique successor of s. ok is false when s is terminal or unknown.
func (s Status) Next() (next Status, ok bool) {
	next, ok = statusFlow[s]
	return next, ok
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusEntregue
}

func (s Status) String() string {
	return string(s)
}

// Order is a checkout persisted for fulfilment.
type Order struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	CustomerName      string          `json:"customerName" db:"customer_name"`
	CustomerEmail     string          `json:"customerEmail" db:"customer_email"`
	CustomerPhone     string          `json:"customerPhone" db:"customer_phone"`
	FulfillmentType   FulfillmentType `json:"fulfillmentType" db:"fulfillment_type"`
	Address           *Address        `json:"address,omitempty" db:"address"`
	Items             []OrderItem     `json:"items" db:"items"`
	Total             decimal.Decimal `json:"total" db:"total"`
	Status            Status          `json:"status" db:"status"`
	Provider          string          `json:"provider" db:"provider"`
	ProviderSessionID string          `json:"providerSessionId" db:"provider_session_id"`
	RedirectURL       string          `json:"redirectUrl,omitempty" db:"redirect_url"`
	IdempotencyKey    *string         `json:"-" db:"idempotency_key"`
	CreatedAt         time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time       `json:"updatedAt" db:"updated_at"`
}

// OrderItem is a line of an order with the unit price captured at purchase time.
type OrderItem struct {
	ProductID    string          `json:"productId,omitempty"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Image        string          `json:"image,omitempty"`
	Size         Size            `json:"size,omitempty"`
	Border       Border          `json:"border,omitempty"`
	Observations string          `json:"observations,omitempty"`
}

// OrderChange is a notification from the order store change feed.
type OrderChange struct {
	Op      string    `json:"op"`
	OrderID uuid.UUID `json:"id"`
}
