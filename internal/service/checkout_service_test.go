package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pizzaria/internal/events"
	"pizzaria/internal/metrics"
	"pizzaria/internal/model"
	"pizzaria/internal/payment"
	"pizzaria/internal/repository"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func validCheckoutRequest() model.CheckoutRequest {
	return model.CheckoutRequest{
		Items: []model.LineItem{
			{
				ID:        "1",
				Title:     "Margherita (M)",
				Quantity:  2,
				UnitPrice: decimal.RequireFromString("42.90"),
				Currency:  "BRL",
				Size:      model.SizeM,
				Border:    model.BorderTradicional,
			},
		},
		Customer: model.DeliveryInfo{
			Type:  model.FulfillmentRetirada,
			Name:  "Ana",
			Phone: "11999990000",
			Email: "ana@example.com",
		},
	}
}

// recordedOrder is the order a first checkout of req would have stored.
func recordedOrder(req model.CheckoutRequest, sessionID string) *model.Order {
	items := make([]model.OrderItem, len(req.Items))
	total := decimal.Zero
	for i, item := range req.Items {
		items[i] = model.OrderItem{ProductID: item.ID, Name: item.Title, Quantity: item.Quantity, UnitPrice: item.UnitPrice}
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return &model.Order{
		ID:                uuid.New(),
		CustomerName:      req.Customer.Name,
		CustomerEmail:     req.Customer.Email,
		Items:             items,
		Total:             total,
		Status:            model.StatusPendente,
		Provider:          payment.ProviderStripe,
		ProviderSessionID: sessionID,
		RedirectURL:       "https://pay/" + sessionID,
	}
}

type checkoutFixture struct {
	repo      *MockOrderRepository
	provider  *MockProvider
	publisher *MockPublisher
	metrics   *metrics.Metrics
	service   CheckoutService
}

func newCheckoutFixture(timeout time.Duration) *checkoutFixture {
	f := &checkoutFixture{
		repo:      new(MockOrderRepository),
		provider:  newMockProvider(payment.ProviderStripe),
		publisher: new(MockPublisher),
		metrics:   metrics.New(prometheus.NewRegistry()),
	}
	registry := payment.NewRegistry(payment.ProviderStripe, f.provider)
	f.service = NewCheckoutService(f.repo, registry, f.publisher, f.metrics, timeout, zerolog.Nop())
	return f
}

func TestCheckoutService_CreateCheckoutSession_Success(t *testing.T) {
	f := newCheckoutFixture(time.Second)
	ctx := context.Background()
	req := validCheckoutRequest()

	f.provider.On("CreateSession", mock.Anything, mock.MatchedBy(func(r payment.SessionRequest) bool {
		return r.OrderID != uuid.Nil && len(r.Items) == 1 && r.Customer.Email == "ana@example.com"
	})).Return(&payment.SessionResult{SessionID: "cs_123", RedirectURL: "https://checkout.stripe.com/cs_123"}, nil)

	var created *model.Order
	f.repo.On("Create", ctx, mock.AnythingOfType("*model.Order")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*model.Order) }).
		Return(nil)
	f.publisher.On("Publish", ctx, mock.MatchedBy(func(e events.OrderEvent) bool {
		return e.Type == events.TypeOrderCreated
	})).Return(nil)

	result, err := f.service.CreateCheckoutSession(ctx, req)

	require.NoError(t, err)
	assert.Equal(t, "cs_123", result.SessionID)
	assert.Equal(t, "https://checkout.stripe.com/cs_123", result.RedirectURL)
	assert.Equal(t, payment.ProviderStripe, result.Provider)
	assert.Equal(t, "85.80", result.Total.StringFixed(2))
	assert.False(t, result.Replayed)

	require.NotNil(t, created)
	assert.Equal(t, result.OrderID, created.ID)
	assert.Equal(t, model.StatusPendente, created.Status)
	assert.Equal(t, "cs_123", created.ProviderSessionID)
	assert.Equal(t, "Ana", created.CustomerName)
	assert.Nil(t, created.Address)
	assert.Nil(t, created.IdempotencyKey)
	require.Len(t, created.Items, 1)
	assert.Equal(t, "42.90", created.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, model.SizeM, created.Items[0].Size)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Checkouts.WithLabelValues(payment.ProviderStripe, metrics.OutcomeCreated)))
	f.provider.AssertExpectations(t)
	f.repo.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestCheckoutService_CreateCheckoutSession_ValidationFailsBeforeNetwork(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *model.CheckoutRequest)
	}{
		{
			name:   "Empty items",
			mutate: func(r *model.CheckoutRequest) { r.Items = nil },
		},
		{
			name:   "Zero quantity",
			mutate: func(r *model.CheckoutRequest) { r.Items[0].Quantity = 0 },
		},
		{
			name:   "Negative price",
			mutate: func(r *model.CheckoutRequest) { r.Items[0].UnitPrice = decimal.NewFromInt(-1) },
		},
		{
			name:   "Missing customer name",
			mutate: func(r *model.CheckoutRequest) { r.Customer.Name = "" },
		},
		{
			name:   "Invalid email",
			mutate: func(r *model.CheckoutRequest) { r.Customer.Email = "ana" },
		},
		{
			name: "Delivery without address",
			mutate: func(r *model.CheckoutRequest) {
				r.Customer.Type = model.FulfillmentEntrega
				r.Customer.Address = nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture(time.Second)
			req := validCheckoutRequest()
			tt.mutate(&req)

			result, err := f.service.CreateCheckoutSession(context.Background(), req)

			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrValidation))
			assert.Nil(t, result)
			f.provider.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
			f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestCheckoutService_CreateCheckoutSession_UnknownProvider(t *testing.T) {
	f := newCheckoutFixture(time.Second)
	req := validCheckoutRequest()
	req.Provider = "paypal"

	result, err := f.service.CreateCheckoutSession(context.Background(), req)

	assert.Nil(t, result)
	assert.True(t, errors.Is(err, model.ErrProviderNotConfigured))
}

func TestCheckoutService_CreateCheckoutSession_ProviderFailure(t *testing.T) {
	f := newCheckoutFixture(time.Second)
	req := validCheckoutRequest()

	f.provider.On("CreateSession", mock.Anything, mock.Anything).
		Return(nil, errors.New("card declined"))

	result, err := f.service.CreateCheckoutSession(context.Background(), req)

	assert.Nil(t, result)
	assert.True(t, errors.Is(err, model.ErrProvider))
	assert.Contains(t, err.Error(), "card declined")
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Checkouts.WithLabelValues(payment.ProviderStripe, metrics.OutcomeProviderError)))
}

func TestCheckoutService_CreateCheckoutSession_Timeout(t *testing.T) {
	f := newCheckoutFixture(20 * time.Millisecond)
	req := validCheckoutRequest()

	f.provider.On("CreateSession", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	result, err := f.service.CreateCheckoutSession(context.Background(), req)

	assert.Nil(t, result)
	assert.True(t, errors.Is(err, model.ErrProvider))
	assert.Contains(t, err.Error(), "timed out")
}

func TestCheckoutService_CreateCheckoutSession_PersistenceFailureKeepsRedirect(t *testing.T) {
	f := newCheckoutFixture(time.Second)
	ctx := context.Background()
	req := validCheckoutRequest()

	f.provider.On("CreateSession", mock.Anything, mock.Anything).
		Return(&payment.SessionResult{SessionID: "cs_1", RedirectURL: "https://pay/cs_1"}, nil)
	f.repo.On("Create", ctx, mock.Anything).Return(errors.New("connection refused"))

	result, err := f.service.CreateCheckoutSession(ctx, req)

	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrPersistence))
	require.NotNil(t, result)
	assert.Equal(t, "https://pay/cs_1", result.RedirectURL)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestCheckoutService_CreateCheckoutSession_IdempotentReplay(t *testing.T) {
	f := newCheckoutFixture(time.Second)
	ctx := context.Background()
	req := validCheckoutRequest()
	req.IdempotencyKey = "key-1"

	existing := recordedOrder(req, "cs_old")
	f.repo.On("GetByIdempotencyKey", ctx, "key-1").Return(existing, nil)

	result, err := f.service.CreateCheckoutSession(ctx, req)

	require.NoError(t, err)
	assert.True(t, result.Replayed)
	assert.Equal(t, existing.ID, result.OrderID)
	assert.Equal(t, "cs_old", result.SessionID)
	f.provider.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
}

func TestCheckoutService_CreateCheckoutSession_IdempotencyKeyReusedForDifferentCheckout(t *testing.T) {
	original := validCheckoutRequest()
	original.IdempotencyKey = "key-5"
	existing := recordedOrder(original, "cs_5")

	tests := []struct {
		name   string
		modify func(*model.CheckoutRequest)
	}{
		{
			name:   "different quantity",
			modify: func(r *model.CheckoutRequest) { r.Items[0].Quantity = 3 },
		},
		{
			name: "extra item",
			modify: func(r *model.CheckoutRequest) {
				r.Items = append(r.Items, model.LineItem{ID: "2", Title: "Calabresa (M)", Quantity: 1, UnitPrice: decimal.Zero, Currency: "BRL"})
			},
		},
		{
			name:   "different customer",
			modify: func(r *model.CheckoutRequest) { r.Customer.Email = "bruno@example.com" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture(time.Second)
			ctx := context.Background()
			req := validCheckoutRequest()
			req.IdempotencyKey = "key-5"
			tt.modify(&req)
			f.repo.On("GetByIdempotencyKey", ctx, "key-5").Return(existing, nil)

			result, err := f.service.CreateCheckoutSession(ctx, req)

			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, errors.Is(err, model.ErrValidation))
			f.provider.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
		})
	}
}

func TestCheckoutService_CreateCheckoutSession_IdempotencyReplayIgnoresEmailCase(t *testing.T) {
	f := newCheckoutFixture(time.Second)
	ctx := context.Background()
	req := validCheckoutRequest()
	req.IdempotencyKey = "key-6"
	existing := recordedOrder(req, "cs_6")
	req.Customer.Email = "ANA@example.com"
	f.repo.On("GetByIdempotencyKey", ctx, "key-6").Return(existing, nil)

	result, err := f.service.CreateCheckoutSession(ctx, req)

	require.NoError(t, err)
	assert.True(t, result.Replayed)
}

func TestCheckoutService_CreateCheckoutSession_IdempotencyKeyStored(t *testing.T) {
	f := newCheckoutFixture(time.Second)
	ctx := context.Background()
	req := validCheckoutRequest()
	req.IdempotencyKey = "key-2"
	req.Customer.Type = model.FulfillmentEntrega
	req.Customer.Address = &model.Address{Street: "Rua A", Number: "1", Neighborhood: "Centro", City: "São Paulo", PostalCode: "01234567"}

	f.repo.On("GetByIdempotencyKey", ctx, "key-2").Return(nil, nil).Once()
	f.provider.On("CreateSession", mock.Anything, mock.MatchedBy(func(r payment.SessionRequest) bool {
		return r.IdempotencyKey == "key-2"
	})).Return(&payment.SessionResult{SessionID: "cs_2", RedirectURL: "https://pay/cs_2"}, nil)
	f.repo.On("Create", ctx, mock.MatchedBy(func(o *model.Order) bool {
		return o.IdempotencyKey != nil && *o.IdempotencyKey == "key-2" && o.Address != nil
	})).Return(nil)
	f.publisher.On("Publish", ctx, mock.Anything).Return(nil)

	_, err := f.service.CreateCheckoutSession(ctx, req)

	require.NoError(t, err)
	f.repo.AssertExpectations(t)
}

func TestCheckoutService_CreateCheckoutSession_ConcurrentDuplicateKey(t *testing.T) {
	f := newCheckoutFixture(time.Second)
	ctx := context.Background()
	req := validCheckoutRequest()
	req.IdempotencyKey = "key-3"

	winner := recordedOrder(req, "cs_win")
	f.repo.On("GetByIdempotencyKey", ctx, "key-3").Return(nil, nil).Once()
	f.provider.On("CreateSession", mock.Anything, mock.Anything).
		Return(&payment.SessionResult{SessionID: "cs_lose", RedirectURL: "https://pay/cs_lose"}, nil)
	f.repo.On("Create", ctx, mock.Anything).Return(repository.ErrDuplicateIdempotencyKey)
	f.repo.On("GetByIdempotencyKey", ctx, "key-3").Return(winner, nil).Once()

	result, err := f.service.CreateCheckoutSession(ctx, req)

	require.NoError(t, err)
	assert.True(t, result.Replayed)
	assert.Equal(t, "cs_win", result.SessionID)
}

func TestCheckoutService_CreateCheckoutSession_PublishFailureIsNotFatal(t *testing.T) {
	f := newCheckoutFixture(time.Second)
	ctx := context.Background()

	f.provider.On("CreateSession", mock.Anything, mock.Anything).
		Return(&payment.SessionResult{SessionID: "cs_4", RedirectURL: "https://pay/cs_4"}, nil)
	f.repo.On("Create", ctx, mock.Anything).Return(nil)
	f.publisher.On("Publish", ctx, mock.Anything).Return(errors.New("broker down"))

	result, err := f.service.CreateCheckoutSession(ctx, validCheckoutRequest())

	require.NoError(t, err)
	assert.Equal(t, "cs_4", result.SessionID)
}

func TestCheckoutService_CreatePreference(t *testing.T) {
	repo := new(MockOrderRepository)
	mp := newMockProvider(payment.ProviderMercadoPago)
	registry := payment.NewRegistry(payment.ProviderStripe, mp)
	service := NewCheckoutService(repo, registry, events.NewNopPublisher(), nil, time.Second, zerolog.Nop())
	ctx := context.Background()

	mp.On("CreateSession", mock.Anything, mock.MatchedBy(func(r payment.SessionRequest) bool {
		return r.Reference == "teste-1" && r.Customer.Email == "ana@example.com"
	})).Return(&payment.SessionResult{SessionID: "pref-1", RedirectURL: "https://mp/init"}, nil)

	result, err := service.CreatePreference(ctx, model.PreferenceRequest{
		Items:     []model.LineItem{{Title: "Margherita", Quantity: 1, UnitPrice: decimal.RequireFromString("42.90")}},
		UserEmail: "ana@example.com",
		Reference: "teste-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "pref-1", result.PreferenceID)
	assert.Equal(t, "https://mp/init", result.InitPoint)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCheckoutService_CreatePreference_Invalid(t *testing.T) {
	mp := newMockProvider(payment.ProviderMercadoPago)
	registry := payment.NewRegistry(payment.ProviderMercadoPago, mp)
	service := NewCheckoutService(new(MockOrderRepository), registry, events.NewNopPublisher(), nil, time.Second, zerolog.Nop())

	_, err := service.CreatePreference(context.Background(), model.PreferenceRequest{})
	assert.True(t, errors.Is(err, model.ErrValidation))

	_, err = service.CreatePreference(context.Background(), model.PreferenceRequest{
		Items: []model.LineItem{{Quantity: 1, UnitPrice: decimal.NewFromInt(-5)}},
	})
	assert.True(t, errors.Is(err, model.ErrValidation))

	mp.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
}

func TestCheckoutService_CreatePreference_NotRegistered(t *testing.T) {
	registry := payment.NewRegistry(payment.ProviderStripe, newMockProvider(payment.ProviderStripe))
	service := NewCheckoutService(new(MockOrderRepository), registry, events.NewNopPublisher(), nil, time.Second, zerolog.Nop())

	_, err := service.CreatePreference(context.Background(), model.PreferenceRequest{
		Items: []model.LineItem{{Quantity: 1, UnitPrice: decimal.NewFromInt(5)}},
	})

	assert.True(t, errors.Is(err, model.ErrProviderNotConfigured))
}
