package payment

import (
	"context"
	"strings"

	"pizzaria/internal/model"
	"pizzaria/internal/pricing"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

// sessionCreator is the subset of the Stripe checkout session client in use.
type sessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripeProvider struct {
	secretKey string
	baseURL   string
	sessions  sessionCreator
	logger    zerolog.Logger
}

// NewStripe creates a Stripe Checkout provider. baseURL is the public
// storefront address used for the success and cancel redirects.
func NewStripe(secretKey, baseURL string, logger zerolog.Logger) Provider {
	return &stripeProvider{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		sessions:  &session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
		logger:    logger.With().Str("provider", ProviderStripe).Logger(),
	}
}

func (p *stripeProvider) Name() string {
	return ProviderStripe
}

// CreateSession creates a Stripe Checkout session in payment mode.
func (p *stripeProvider) CreateSession(ctx context.Context, req SessionRequest) (*SessionResult, error) {
	if p.secretKey == "" {
		return nil, model.ProviderNotConfiguredError(ProviderStripe)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail:     stripe.String(req.Customer.Email),
		SuccessURL:        stripe.String(p.baseURL + "/payment-success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(p.baseURL + "/"),
		ClientReferenceID: stripe.String(req.OrderID.String()),
	}
	for _, item := range req.Items {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Title),
		}
		if item.Description != "" {
			product.Description = stripe.String(item.Description)
		}
		if strings.HasPrefix(item.Image, "https://") {
			product.Images = []*string{stripe.String(item.Image)}
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String("brl"),
				ProductData: product,
				UnitAmount:  stripe.Int64(pricing.ToMinorUnits(item.UnitPrice)),
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}
	params.AddMetadata("order_id", req.OrderID.String())
	params.AddMetadata("customer_name", req.Customer.Name)
	params.AddMetadata("customer_phone", req.Customer.Phone)
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	s, err := p.sessions.New(params)
	if err != nil {
		p.logger.Error().Err(err).Str("order_id", req.OrderID.String()).Msg("failed to create checkout session")
		return nil, model.ProviderError(ProviderStripe, err)
	}

	p.logger.Info().
		Str("order_id", req.OrderID.String()).
		Str("session_id", s.ID).
		Msg("checkout session created")

	return &SessionResult{SessionID: s.ID, RedirectURL: s.URL}, nil
}
