package repository

import (
	"context"
	"errors"

	"pizzaria/internal/model"

	"github.com/google/uuid"
)

// ErrDuplicateIdempotencyKey is returned by Create when another order already
// holds the idempotency key.
var ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// Create inserts a new order.
	Create(ctx context.Context, order *model.Order) error

	// GetByID retrieves an order by its ID. It returns nil, nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetByIdempotencyKey retrieves the order created with key, or nil.
	GetByIdempotencyKey(ctx context.Context, key string) (*model.Order, error)

	// GetByProviderSession retrieves the order recorded for a provider session, or nil.
	GetByProviderSession(ctx context.Context, sessionID string) (*model.Order, error)

	// List retrieves orders newest first.
	List(ctx context.Context, limit int) ([]model.Order, error)

	// UpdateStatus moves an order from one status to another. It reports
	// false when the order is missing or no longer in status from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.Status) (bool, error)
}

// ChangeFeed delivers order store change notifications.
type ChangeFeed interface {
	// Listen calls fn for every change until ctx is done or the feed fails.
	Listen(ctx context.Context, fn func(model.OrderChange)) error
}
