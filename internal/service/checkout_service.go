package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pizzaria/internal/events"
	"pizzaria/internal/metrics"
	"pizzaria/internal/model"
	"pizzaria/internal/payment"
	"pizzaria/internal/pricing"
	"pizzaria/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Providers resolves a payment provider by name.
type Providers interface {
	Get(name string) (payment.Provider, error)
}

// checkoutService implements CheckoutService.
type checkoutService struct {
	orderRepo repository.OrderRepository
	providers Providers
	publisher events.Publisher
	metrics   *metrics.Metrics
	timeout   time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

// NewCheckoutService creates a new checkout service. timeout bounds every
// provider call; m may be nil.
func NewCheckoutService(
	orderRepo repository.OrderRepository,
	providers Providers,
	publisher events.Publisher,
	m *metrics.Metrics,
	timeout time.Duration,
	logger zerolog.Logger,
) CheckoutService {
	return &checkoutService{
		orderRepo: orderRepo,
		providers: providers,
		publisher: publisher,
		metrics:   m,
		timeout:   timeout,
		now:       time.Now,
		logger:    logger.With().Str("service", "checkout").Logger(),
	}
}

// CreateCheckoutSession creates the provider session and records the order.
func (s *checkoutService) CreateCheckoutSession(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutResult, error) {
	// Validate request before any network or storage call
	if err := s.validateCheckoutRequest(req); err != nil {
		s.metrics.ObserveCheckout(req.Provider, metrics.OutcomeInvalid)
		return nil, err
	}

	provider, err := s.providers.Get(req.Provider)
	if err != nil {
		s.logger.Warn().Str("provider", req.Provider).Err(err).Msg("payment provider not available")
		s.metrics.ObserveCheckout(req.Provider, metrics.OutcomeProviderError)
		return nil, err
	}
	name := provider.Name()

	if req.IdempotencyKey != "" {
		existing, err := s.orderRepo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to look up idempotency key")
			return nil, model.PersistenceError(err)
		}
		if existing != nil {
			if err := checkReplay(existing, name, req); err != nil {
				s.logger.Warn().Err(err).Str("order_id", existing.ID.String()).Msg("idempotency key reused with a different checkout")
				s.metrics.ObserveCheckout(name, metrics.OutcomeInvalid)
				return nil, err
			}
			s.logger.Info().
				Str("order_id", existing.ID.String()).
				Str("session_id", existing.ProviderSessionID).
				Msg("replaying checkout for repeated idempotency key")
			s.metrics.ObserveCheckout(existing.Provider, metrics.OutcomeReplayed)
			return replayResult(existing), nil
		}
	}

	orderID := uuid.New()
	session, err := s.createSession(ctx, provider, payment.SessionRequest{
		OrderID:        orderID,
		Items:          req.Items,
		Customer:       req.Customer,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("order_id", orderID.String()).
			Str("provider", name).
			Msg("failed to create checkout session")
		s.metrics.ObserveCheckout(name, metrics.OutcomeProviderError)
		return nil, err
	}

	total := pricing.ItemsTotal(req.Items)
	result := &model.CheckoutResult{
		OrderID:     orderID,
		Provider:    name,
		SessionID:   session.SessionID,
		RedirectURL: session.RedirectURL,
		Total:       total,
	}

	order := s.buildOrder(orderID, name, req, session, total)
	if err := s.orderRepo.Create(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicateIdempotencyKey) {
			return s.replayAfterRace(ctx, name, req, session)
		}

		// The session exists at the provider, so the customer still gets the redirect.
		s.logger.Error().Err(err).
			Str("order_id", orderID.String()).
			Str("session_id", session.SessionID).
			Msg("failed to record order after provider accepted session")
		s.metrics.ObserveCheckout(name, metrics.OutcomePersistenceError)
		return result, model.PersistenceError(err)
	}

	if err := s.publisher.Publish(ctx, events.OrderCreated(order)); err != nil {
		s.logger.Warn().Err(err).Str("order_id", orderID.String()).Msg("failed to publish order created event")
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("provider", name).
		Str("session_id", session.SessionID).
		Str("total", total.StringFixed(2)).
		Msg("checkout session created")
	s.metrics.ObserveCheckout(name, metrics.OutcomeCreated)

	return result, nil
}

// CreatePreference creates a Mercado Pago preference for the given items.
func (s *checkoutService) CreatePreference(ctx context.Context, req model.PreferenceRequest) (*model.PreferenceResult, error) {
	if len(req.Items) == 0 {
		s.metrics.ObserveCheckout(payment.ProviderMercadoPago, metrics.OutcomeInvalid)
		return nil, model.ValidationError("at least one item is required")
	}
	for i, item := range req.Items {
		if item.Quantity < 0 {
			return nil, model.ValidationError("item %d: quantity must not be negative", i)
		}
		if item.UnitPrice.IsNegative() {
			return nil, model.ValidationError("item %d: unit price must not be negative", i)
		}
	}

	provider, err := s.providers.Get(payment.ProviderMercadoPago)
	if err != nil {
		s.metrics.ObserveCheckout(payment.ProviderMercadoPago, metrics.OutcomeProviderError)
		return nil, err
	}

	session, err := s.createSession(ctx, provider, payment.SessionRequest{
		OrderID:   uuid.New(),
		Items:     req.Items,
		Customer:  model.DeliveryInfo{Email: req.UserEmail},
		Reference: req.Reference,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("reference", req.Reference).Msg("failed to create preference")
		s.metrics.ObserveCheckout(payment.ProviderMercadoPago, metrics.OutcomeProviderError)
		return nil, err
	}

	s.metrics.ObserveCheckout(payment.ProviderMercadoPago, metrics.OutcomeCreated)
	return &model.PreferenceResult{
		PreferenceID: session.SessionID,
		InitPoint:    session.RedirectURL,
	}, nil
}

// createSession performs the bounded provider call. Errors that are not
// already classified, including timeouts, become provider errors.
func (s *checkoutService) createSession(ctx context.Context, provider payment.Provider, req payment.SessionRequest) (*payment.SessionResult, error) {
	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	session, err := provider.CreateSession(callCtx, req)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, model.ProviderError(provider.Name(), fmt.Errorf("timed out after %s: %w", s.timeout, err))
		}
		var domainErr *model.DomainError
		if !errors.As(err, &domainErr) {
			err = model.ProviderError(provider.Name(), err)
		}
		return nil, err
	}
	return session, nil
}

// replayAfterRace handles a concurrent request that recorded the same
// idempotency key first. The session just created is abandoned.
func (s *checkoutService) replayAfterRace(ctx context.Context, provider string, req model.CheckoutRequest, abandoned *payment.SessionResult) (*model.CheckoutResult, error) {
	existing, err := s.orderRepo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil || existing == nil {
		if err == nil {
			err = errors.New("order for idempotency key vanished")
		}
		s.logger.Error().Err(err).Msg("failed to load order for repeated idempotency key")
		return nil, model.PersistenceError(err)
	}

	s.logger.Warn().
		Str("order_id", existing.ID.String()).
		Str("abandoned_session_id", abandoned.SessionID).
		Msg("concurrent checkout with same idempotency key")
	if err := checkReplay(existing, provider, req); err != nil {
		s.metrics.ObserveCheckout(provider, metrics.OutcomeInvalid)
		return nil, err
	}
	s.metrics.ObserveCheckout(existing.Provider, metrics.OutcomeReplayed)

	return replayResult(existing), nil
}

func (s *checkoutService) buildOrder(id uuid.UUID, provider string, req model.CheckoutRequest, session *payment.SessionResult, total decimal.Decimal) *model.Order {
	now := s.now().UTC()
	items := make([]model.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = model.OrderItem{
			ProductID:    item.ID,
			Name:         item.Title,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			Image:        item.Image,
			Size:         item.Size,
			Border:       item.Border,
			Observations: item.Observations,
		}
	}

	order := &model.Order{
		ID:                id,
		CustomerName:      req.Customer.Name,
		CustomerEmail:     req.Customer.Email,
		CustomerPhone:     req.Customer.Phone,
		FulfillmentType:   req.Customer.Type,
		Items:             items,
		Total:             total,
		Status:            model.StatusPendente,
		Provider:          provider,
		ProviderSessionID: session.SessionID,
		RedirectURL:       session.RedirectURL,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if req.Customer.Type == model.FulfillmentEntrega {
		order.Address = req.Customer.Address
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		order.IdempotencyKey = &key
	}
	return order
}

// validateCheckoutRequest validates the checkout request.
func (s *checkoutService) validateCheckoutRequest(req model.CheckoutRequest) error {
	if len(req.Items) == 0 {
		s.logger.Warn().Msg("checkout requested without items")
		return model.ValidationError("at least one item is required")
	}

	for i, item := range req.Items {
		if err := item.Validate(); err != nil {
			s.logger.Warn().
				Int("item_index", i).
				Str("item_id", item.ID).
				Err(err).
				Msg("invalid checkout item")
			return err
		}
	}

	if err := req.Customer.Validate(); err != nil {
		s.logger.Warn().Err(err).Msg("invalid customer information")
		return err
	}

	return nil
}

// checkReplay rejects a repeated idempotency key whose request differs from
// the one that created order.
func checkReplay(order *model.Order, provider string, req model.CheckoutRequest) error {
	switch {
	case order.Provider != provider,
		len(order.Items) != len(req.Items),
		!order.Total.Equal(pricing.ItemsTotal(req.Items)),
		!strings.EqualFold(strings.TrimSpace(order.CustomerEmail), strings.TrimSpace(req.Customer.Email)):
		return model.ValidationError("idempotency key was already used for a different checkout")
	}
	return nil
}

func replayResult(order *model.Order) *model.CheckoutResult {
	return &model.CheckoutResult{
		OrderID:     order.ID,
		Provider:    order.Provider,
		SessionID:   order.ProviderSessionID,
		RedirectURL: order.RedirectURL,
		Total:       order.Total,
		Replayed:    true,
	}
}
