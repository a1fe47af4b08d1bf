package payment

import (
	"context"
	"errors"
	"strings"

	"pizzaria/internal/model"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
	"github.com/rs/zerolog"
)

// Defaults applied to items that omit the field.
const (
	mpDefaultItemID     = "produto"
	mpDefaultItemTitle  = "Produto"
	mpDefaultCurrency   = "BRL"
	mpDefaultCategoryID = "category"
)

type preferenceCreator interface {
	Create(ctx context.Context, request preference.Request) (*preference.Response, error)
}

type paymentGetter interface {
	Get(ctx context.Context, id int) (*payment.Response, error)
}

// PaymentStatus is the part of a Mercado Pago payment the webhook reports on.
type PaymentStatus struct {
	ID                int
	Status            string
	ExternalReference string
	Metadata          map[string]any
}

// MercadoPago is the preference-based provider. It also looks up payments
// for notifications.
type MercadoPago struct {
	configured  bool
	baseURL     string
	preferences preferenceCreator
	payments    paymentGetter
	logger      zerolog.Logger
}

// NewMercadoPago creates a Mercado Pago provider. An empty access token
// yields a provider that fails every call with a not-configured error.
func NewMercadoPago(accessToken, baseURL string, logger zerolog.Logger) (*MercadoPago, error) {
	mp := &MercadoPago{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With().Str("provider", ProviderMercadoPago).Logger(),
	}
	if accessToken == "" {
		return mp, nil
	}

	cfg, err := config.New(accessToken)
	if err != nil {
		return nil, err
	}
	mp.configured = true
	mp.preferences = preference.NewClient(cfg)
	mp.payments = payment.NewClient(cfg)
	return mp, nil
}

func (p *MercadoPago) Name() string {
	return ProviderMercadoPago
}

// CreateSession creates a checkout preference. The reference becomes the
// preference external_reference used to correlate later payments; it
// defaults to the order id.
func (p *MercadoPago) CreateSession(ctx context.Context, req SessionRequest) (*SessionResult, error) {
	if !p.configured {
		return nil, model.ProviderNotConfiguredError(ProviderMercadoPago)
	}

	reference := req.Reference
	if reference == "" {
		reference = req.OrderID.String()
	}

	body := preference.Request{
		ExternalReference: reference,
		Metadata: map[string]any{
			"testeId":   reference,
			"userEmail": req.Customer.Email,
		},
		BackURLs: &preference.BackURLsRequest{
			Success: p.baseURL + "/success",
			Failure: p.baseURL + "/failure",
			Pending: p.baseURL + "/pending",
		},
	}
	if req.Customer.Email != "" {
		body.Payer = &preference.PayerRequest{Email: req.Customer.Email}
	}
	for _, item := range req.Items {
		body.Items = append(body.Items, preferenceItem(item))
	}

	created, err := p.preferences.Create(ctx, body)
	if err != nil {
		p.logger.Error().Err(err).Str("reference", reference).Msg("failed to create preference")
		return nil, model.ProviderError(ProviderMercadoPago, err)
	}
	if created.ID == "" {
		return nil, model.ProviderError(ProviderMercadoPago, errors.New("no preference id returned"))
	}

	p.logger.Info().
		Str("reference", reference).
		Str("session_id", created.ID).
		Msg("preference created")

	return &SessionResult{SessionID: created.ID, RedirectURL: created.InitPoint}, nil
}

// Payment fetches a payment by id.
func (p *MercadoPago) Payment(ctx context.Context, id int) (*PaymentStatus, error) {
	if !p.configured {
		return nil, model.ProviderNotConfiguredError(ProviderMercadoPago)
	}
	res, err := p.payments.Get(ctx, id)
	if err != nil {
		return nil, model.ProviderError(ProviderMercadoPago, err)
	}
	return &PaymentStatus{
		ID:                res.ID,
		Status:            res.Status,
		ExternalReference: res.ExternalReference,
		Metadata:          res.Metadata,
	}, nil
}

func preferenceItem(item model.LineItem) preference.ItemRequest {
	out := preference.ItemRequest{
		ID:          item.ID,
		Title:       item.Title,
		Description: item.Description,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice.Round(2).InexactFloat64(),
		CurrencyID:  item.Currency,
		CategoryID:  item.CategoryID,
	}
	if out.ID == "" {
		out.ID = mpDefaultItemID
	}
	if out.Title == "" {
		out.Title = mpDefaultItemTitle
	}
	if out.Quantity == 0 {
		out.Quantity = 1
	}
	if out.CurrencyID == "" {
		out.CurrencyID = mpDefaultCurrency
	}
	if out.CategoryID == "" {
		out.CategoryID = mpDefaultCategoryID
	}
	if strings.HasPrefix(item.Image, "https://") {
		out.PictureURL = item.Image
	}
	return out
}
