package service

import (
	"context"

	"pizzaria/internal/model"
	"pizzaria/internal/payment"

	"github.com/google/uuid"
)

// ProductService defines read operations over the menu.
type ProductService interface {
	// List returns the products of a category; "" or "all" lists the whole menu.
	List(ctx context.Context, category string) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)
}

// CheckoutService creates payment provider sessions and records the orders.
type CheckoutService interface {
	// CreateCheckoutSession validates the request, creates the provider session
	// and persists a pendente order. When persistence fails after the provider
	// accepted the session, the result is returned together with a
	// PersistenceError.
	CreateCheckoutSession(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutResult, error)

	// CreatePreference creates a Mercado Pago preference without recording an
	// order; payments are correlated later through the reference.
	CreatePreference(ctx context.Context, req model.PreferenceRequest) (*model.PreferenceResult, error)
}

// FulfillmentService reads and advances persisted orders.
type FulfillmentService interface {
	// List returns orders newest first. A limit of 0 lists all.
	List(ctx context.Context, limit int) ([]model.Order, error)

	// Advance moves an order to its next status.
	Advance(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetByProviderSession returns the order recorded for a provider session.
	GetByProviderSession(ctx context.Context, sessionID string) (*model.Order, error)
}

// NotificationService handles asynchronous payment provider notifications.
type NotificationService interface {
	// HandlePayment fetches a Mercado Pago payment and reports its status.
	HandlePayment(ctx context.Context, paymentID int) (*payment.PaymentStatus, error)
}
