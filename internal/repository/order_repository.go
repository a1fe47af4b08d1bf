package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pizzaria/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

const orderColumns = `
	id, customer_name, customer_email, customer_phone, fulfillment_type,
	address, items, total::text, status, provider, provider_session_id,
	redirect_url, idempotency_key, created_at, updated_at`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// Create inserts a new order.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}

	var address []byte
	if order.Address != nil {
		if address, err = json.Marshal(order.Address); err != nil {
			return fmt.Errorf("failed to encode order address: %w", err)
		}
	}

	query := `
		INSERT INTO orders (
			id, customer_name, customer_email, customer_phone, fulfillment_type,
			address, items, total, status, provider, provider_session_id,
			redirect_url, idempotency_key, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = r.pool.Exec(ctx, query,
		order.ID,
		order.CustomerName,
		order.CustomerEmail,
		order.CustomerPhone,
		string(order.FulfillmentType),
		address,
		items,
		order.Total.StringFixed(2),
		string(order.Status),
		order.Provider,
		order.ProviderSessionID,
		order.RedirectURL,
		order.IdempotencyKey,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "orders_idempotency_key_key" {
			return ErrDuplicateIdempotencyKey
		}
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("session_id", order.ProviderSessionID).
		Msg("order created successfully")

	return nil
}

// GetByID retrieves an order by its ID.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByIdempotencyKey retrieves the order created with key.
func (r *orderRepository) GetByIdempotencyKey(ctx context.Context, key string) (*model.Order, error) {
	return r.getOne(ctx, "idempotency_key = $1", key)
}

// GetByProviderSession retrieves the order recorded for a provider session.
func (r *orderRepository) GetByProviderSession(ctx context.Context, sessionID string) (*model.Order, error) {
	return r.getOne(ctx, "provider_session_id = $1", sessionID)
}

func (r *orderRepository) getOne(ctx context.Context, where string, arg any) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + where + ` LIMIT 1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("where", where).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	return order, nil
}

// List retrieves orders newest first. A non-positive limit returns all orders.
func (r *orderRepository) List(ctx context.Context, limit int) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]model.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// UpdateStatus is a compare-and-set on the status column.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.Status) (bool, error) {
	query := `
		UPDATE orders
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	tag, err := r.pool.Exec(ctx, query, id, string(from), string(to))
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Str("status", string(to)).
			Msg("failed to update order status")
		return false, fmt.Errorf("failed to update order status: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		order       model.Order
		fulfillment string
		status      string
		address     []byte
		items       []byte
		total       string
	)

	err := row.Scan(
		&order.ID,
		&order.CustomerName,
		&order.CustomerEmail,
		&order.CustomerPhone,
		&fulfillment,
		&address,
		&items,
		&total,
		&status,
		&order.Provider,
		&order.ProviderSessionID,
		&order.RedirectURL,
		&order.IdempotencyKey,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.FulfillmentType = model.FulfillmentType(fulfillment)
	order.Status = model.Status(status)

	if order.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("invalid total %q: %w", total, err)
	}
	if err := json.Unmarshal(items, &order.Items); err != nil {
		return nil, fmt.Errorf("invalid items: %w", err)
	}
	if len(address) > 0 {
		order.Address = &model.Address{}
		if err := json.Unmarshal(address, order.Address); err != nil {
			return nil, fmt.Errorf("invalid address: %w", err)
		}
	}

	return &order, nil
}
