package service

import (
	"context"
	"time"

	"pizzaria/internal/events"
	"pizzaria/internal/metrics"
	"pizzaria/internal/model"
	"pizzaria/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// fulfillmentService implements FulfillmentService.
type fulfillmentService struct {
	orderRepo repository.OrderRepository
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewFulfillmentService creates a new fulfillment service. m may be nil.
func NewFulfillmentService(
	orderRepo repository.OrderRepository,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger zerolog.Logger,
) FulfillmentService {
	return &fulfillmentService{
		orderRepo: orderRepo,
		publisher: publisher,
		metrics:   m,
		logger:    logger.With().Str("service", "fulfillment").Logger(),
	}
}

// List returns orders newest first.
func (s *fulfillmentService) List(ctx context.Context, limit int) ([]model.Order, error) {
	if limit < 0 {
		limit = 0
	}

	orders, err := s.orderRepo.List(ctx, limit)
	if err != nil {
		s.logger.Error().Err(err).Int("limit", limit).Msg("failed to list orders")
		return nil, model.PersistenceError(err)
	}

	return orders, nil
}

// Advance moves an order one step along pendente, em_preparo, enviado,
// entregue. The update only applies if the status is still the one read, so
// two concurrent advances of the same order cannot skip a step.
func (s *fulfillmentService) Advance(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, model.PersistenceError(err)
	}
	if order == nil {
		s.logger.Debug().Str("order_id", id.String()).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	from := order.Status
	next, ok := from.Next()
	if !ok {
		s.logger.Warn().
			Str("order_id", id.String()).
			Str("status", from.String()).
			Msg("order already in terminal status")
		return nil, model.InvalidTransitionError(from, "order is already in a terminal status")
	}

	changed, err := s.orderRepo.UpdateStatus(ctx, id, from, next)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to update order status")
		return nil, model.PersistenceError(err)
	}
	if !changed {
		s.logger.Warn().
			Str("order_id", id.String()).
			Str("status", from.String()).
			Msg("order status changed concurrently")
		return nil, model.InvalidTransitionError(from, "order status changed concurrently")
	}

	order.Status = next
	order.UpdatedAt = time.Now().UTC()

	if err := s.publisher.Publish(ctx, events.StatusChanged(id, from, next)); err != nil {
		s.logger.Warn().Err(err).Str("order_id", id.String()).Msg("failed to publish status change event")
	}
	s.metrics.ObserveAdvance(next.String())

	s.logger.Info().
		Str("order_id", id.String()).
		Str("from", from.String()).
		Str("to", next.String()).
		Msg("order advanced")

	return order, nil
}

// GetByProviderSession returns the order recorded for a provider session.
func (s *fulfillmentService) GetByProviderSession(ctx context.Context, sessionID string) (*model.Order, error) {
	if sessionID == "" {
		return nil, model.ErrOrderNotFound
	}

	order, err := s.orderRepo.GetByProviderSession(ctx, sessionID)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to get order by session")
		return nil, model.PersistenceError(err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	return order, nil
}
