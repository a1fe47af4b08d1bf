package payment

import (
	"context"
	"errors"
	"testing"

	"pizzaria/internal/model"

	"github.com/google/uuid"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

type fakeSessions struct {
	params *stripe.CheckoutSessionParams
	err    error
}

func (f *fakeSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
}

type fakePreferences struct {
	request preference.Request
	resp    *preference.Response
	err     error
}

func (f *fakePreferences) Create(_ context.Context, request preference.Request) (*preference.Response, error) {
	f.request = request
	return f.resp, f.err
}

type fakePayments struct {
	resp *payment.Response
	err  error
}

func (f *fakePayments) Get(_ context.Context, _ int) (*payment.Response, error) {
	return f.resp, f.err
}

func sampleRequest() SessionRequest {
	return SessionRequest{
		OrderID: uuid.MustParse("7b0f8c52-3f7e-4c8e-9a57-2b1b0e5d3c11"),
		Items: []model.LineItem{
			{ID: "1", Title: "Margherita (M)", Description: "Borda catupiry", Quantity: 2, UnitPrice: decimal.RequireFromString("47.90"), Currency: "BRL", CategoryID: "tradicional"},
			{ID: "taxa-entrega", Title: "Taxa de entrega", Quantity: 1, UnitPrice: decimal.RequireFromString("8.50"), Currency: "BRL"},
		},
		Customer: model.DeliveryInfo{Type: model.FulfillmentEntrega, Name: "Ana", Phone: "11999990000", Email: "ana@example.com"},
	}
}

func TestRegistry_Get(t *testing.T) {
	stripeP := NewStripe("sk_test", "https://pizza.example", zerolog.Nop())
	r := NewRegistry(ProviderStripe, stripeP)

	p, err := r.Get("")
	require.NoError(t, err)
	assert.Equal(t, ProviderStripe, p.Name())

	_, err = r.Get(ProviderMercadoPago)
	assert.ErrorIs(t, err, model.ErrProviderNotConfigured)
	assert.ErrorIs(t, err, model.ErrProvider)

	assert.Equal(t, []string{ProviderStripe}, r.Names())
}

func TestStripe_CreateSession(t *testing.T) {
	sessions := &fakeSessions{}
	p := NewStripe("sk_test", "https://pizza.example/", zerolog.Nop()).(*stripeProvider)
	p.sessions = sessions
	req := sampleRequest()
	req.IdempotencyKey = "idem-1"

	res, err := p.CreateSession(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", res.SessionID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", res.RedirectURL)

	params := sessions.params
	require.NotNil(t, params)
	assert.Equal(t, "payment", *params.Mode)
	assert.Equal(t, "https://pizza.example/payment-success?session_id={CHECKOUT_SESSION_ID}", *params.SuccessURL)
	assert.Equal(t, "https://pizza.example/", *params.CancelURL)
	assert.Equal(t, "ana@example.com", *params.CustomerEmail)
	assert.Equal(t, "Ana", params.Metadata["customer_name"])
	assert.Equal(t, "11999990000", params.Metadata["customer_phone"])
	assert.Equal(t, "idem-1", *params.IdempotencyKey)
	require.Len(t, params.LineItems, 2)
	assert.Equal(t, int64(4790), *params.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, int64(2), *params.LineItems[0].Quantity)
	assert.Equal(t, "brl", *params.LineItems[0].PriceData.Currency)
	assert.Equal(t, int64(850), *params.LineItems[1].PriceData.UnitAmount)
	assert.Nil(t, params.LineItems[1].PriceData.ProductData.Description)
}

func TestStripe_CreateSession_Errors(t *testing.T) {
	_, err := NewStripe("", "https://pizza.example", zerolog.Nop()).CreateSession(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, model.ErrProviderNotConfigured)

	p := NewStripe("sk_test", "https://pizza.example", zerolog.Nop()).(*stripeProvider)
	p.sessions = &fakeSessions{err: errors.New("invalid currency")}
	_, err = p.CreateSession(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, model.ErrProvider)
	assert.Contains(t, err.Error(), "invalid currency")
}

func TestMercadoPago_CreateSession(t *testing.T) {
	prefs := &fakePreferences{resp: &preference.Response{ID: "pref-1", InitPoint: "https://mp.example/init/pref-1"}}
	mp := &MercadoPago{configured: true, baseURL: "https://pizza.example", preferences: prefs, logger: zerolog.Nop()}
	req := sampleRequest()
	req.Reference = "teste-42"

	res, err := mp.CreateSession(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "pref-1", res.SessionID)
	assert.Equal(t, "https://mp.example/init/pref-1", res.RedirectURL)

	body := prefs.request
	assert.Equal(t, "teste-42", body.ExternalReference)
	assert.Equal(t, "teste-42", body.Metadata["testeId"])
	assert.Equal(t, "ana@example.com", body.Metadata["userEmail"])
	require.NotNil(t, body.Payer)
	assert.Equal(t, "ana@example.com", body.Payer.Email)
	assert.Equal(t, "https://pizza.example/success", body.BackURLs.Success)
	assert.Equal(t, "https://pizza.example/failure", body.BackURLs.Failure)
	assert.Equal(t, "https://pizza.example/pending", body.BackURLs.Pending)
	require.Len(t, body.Items, 2)
	assert.Equal(t, 47.90, body.Items[0].UnitPrice)
	assert.Equal(t, "tradicional", body.Items[0].CategoryID)
	assert.Equal(t, "category", body.Items[1].CategoryID)
}

func TestMercadoPago_CreateSession_DefaultsReferenceToOrderID(t *testing.T) {
	prefs := &fakePreferences{resp: &preference.Response{ID: "pref-2"}}
	mp := &MercadoPago{configured: true, preferences: prefs, logger: zerolog.Nop()}
	req := sampleRequest()
	req.Customer.Email = ""

	_, err := mp.CreateSession(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, req.OrderID.String(), prefs.request.ExternalReference)
	assert.Nil(t, prefs.request.Payer)
}

func TestMercadoPago_CreateSession_Errors(t *testing.T) {
	unconfigured, err := NewMercadoPago("", "https://pizza.example", zerolog.Nop())
	require.NoError(t, err)
	_, err = unconfigured.CreateSession(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, model.ErrProviderNotConfigured)

	mp := &MercadoPago{configured: true, preferences: &fakePreferences{err: errors.New("invalid token")}, logger: zerolog.Nop()}
	_, err = mp.CreateSession(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, model.ErrProvider)

	mp.preferences = &fakePreferences{resp: &preference.Response{}}
	_, err = mp.CreateSession(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, model.ErrProvider)
	assert.Contains(t, err.Error(), "no preference id")
}

func TestPreferenceItem_Defaults(t *testing.T) {
	item := preferenceItem(model.LineItem{UnitPrice: decimal.RequireFromString("10")})

	assert.Equal(t, "produto", item.ID)
	assert.Equal(t, "Produto", item.Title)
	assert.Equal(t, 1, item.Quantity)
	assert.Equal(t, "BRL", item.CurrencyID)
	assert.Equal(t, "category", item.CategoryID)
}

func TestMercadoPago_Payment(t *testing.T) {
	mp := &MercadoPago{
		configured: true,
		payments: &fakePayments{resp: &payment.Response{
			ID:                123,
			Status:            "approved",
			ExternalReference: "teste-42",
			Metadata:          map[string]any{"user_email": "ana@example.com"},
		}},
		logger: zerolog.Nop(),
	}

	status, err := mp.Payment(context.Background(), 123)

	require.NoError(t, err)
	assert.Equal(t, "approved", status.Status)
	assert.Equal(t, "teste-42", status.ExternalReference)
	assert.Equal(t, "ana@example.com", status.Metadata["user_email"])
}
