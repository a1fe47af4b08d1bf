package handler

import (
	"context"
	"net/http"

	"pizzaria/internal/model"
	"pizzaria/internal/payment"
	"pizzaria/internal/tracker"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockProductService is a mock implementation of ProductService.
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) List(ctx context.Context, category string) ([]model.Product, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductService) GetByID(ctx context.Context, id string) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

// MockCheckoutService is a mock implementation of CheckoutService.
type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) CreateCheckoutSession(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CheckoutResult), args.Error(1)
}

func (m *MockCheckoutService) CreatePreference(ctx context.Context, req model.PreferenceRequest) (*model.PreferenceResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PreferenceResult), args.Error(1)
}

// MockFulfillmentService is a mock implementation of FulfillmentService.
type MockFulfillmentService struct {
	mock.Mock
}

func (m *MockFulfillmentService) List(ctx context.Context, limit int) ([]model.Order, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockFulfillmentService) Advance(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockFulfillmentService) GetByProviderSession(ctx context.Context, sessionID string) (*model.Order, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

// MockNotificationService is a mock implementation of NotificationService.
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) HandlePayment(ctx context.Context, paymentID int) (*payment.PaymentStatus, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PaymentStatus), args.Error(1)
}

// MockResolver is a mock implementation of address.Resolver.
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Lookup(ctx context.Context, cep string) (*model.LookupResult, error) {
	args := m.Called(ctx, cep)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LookupResult), args.Error(1)
}

// fakeBoard serves snapshots from a channel.
type fakeBoard struct {
	ch chan tracker.Snapshot
}

func (b *fakeBoard) Subscribe() (<-chan tracker.Snapshot, func()) {
	return b.ch, func() {}
}

// withURLParams attaches chi route parameters to r.
func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func margherita() model.Product {
	return model.Product{
		ID:       "1",
		Name:     "Margherita",
		Category: model.CategoryTradicional,
		Prices: model.Prices{
			P: decimal.RequireFromString("34.32"),
			M: decimal.RequireFromString("42.90"),
			G: decimal.RequireFromString("55.77"),
		},
		Image: "/images/margherita-pizza.jpg",
	}
}
