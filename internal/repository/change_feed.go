package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pizzaria/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// OrdersChannel is the notification channel the orders trigger publishes on.
const OrdersChannel = "orders_changes"

// pgChangeFeed implements ChangeFeed with PostgreSQL LISTEN/NOTIFY.
type pgChangeFeed struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewChangeFeed creates a change feed over the orders notification channel.
func NewChangeFeed(pool *pgxpool.Pool, logger zerolog.Logger) ChangeFeed {
	return &pgChangeFeed{
		pool:   pool,
		logger: logger.With().Str("repository", "change-feed").Logger(),
	}
}

// Listen holds one pooled connection for the lifetime of the subscription.
// It returns nil when ctx is cancelled.
func (f *pgChangeFeed) Listen(ctx context.Context, fn func(model.OrderChange)) error {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+OrdersChannel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", OrdersChannel, err)
	}
	defer func() {
		// A cancelled wait closes the connection; a live one goes back to the pool.
		if conn.Conn().IsClosed() {
			return
		}
		if _, err := conn.Exec(context.Background(), "UNLISTEN "+OrdersChannel); err != nil {
			f.logger.Warn().Err(err).Msg("failed to unlisten")
		}
	}()

	f.logger.Info().Str("channel", OrdersChannel).Msg("listening for order changes")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("failed waiting for notification: %w", err)
		}

		var change model.OrderChange
		if err := json.Unmarshal([]byte(n.Payload), &change); err != nil {
			f.logger.Warn().Err(err).Str("payload", n.Payload).Msg("ignoring malformed change notification")
			continue
		}
		fn(change)
	}
}
