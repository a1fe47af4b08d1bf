package service

import (
	"context"
	"fmt"

	"pizzaria/internal/payment"

	"github.com/rs/zerolog"
)

// PaymentLookup fetches a Mercado Pago payment.
type PaymentLookup interface {
	Payment(ctx context.Context, id int) (*payment.PaymentStatus, error)
}

// Mercado Pago payment statuses reported by notifications.
const (
	PaymentApproved = "approved"
	PaymentPending  = "pending"
	PaymentRejected = "rejected"
)

// notificationService implements NotificationService.
type notificationService struct {
	payments PaymentLookup
	logger   zerolog.Logger
}

// NewNotificationService creates a new payment notification service.
func NewNotificationService(payments PaymentLookup, logger zerolog.Logger) NotificationService {
	return &notificationService{
		payments: payments,
		logger:   logger.With().Str("service", "notification").Logger(),
	}
}

// HandlePayment fetches the payment and logs its status with the customer
// metadata attached at preference creation. No order state changes.
func (s *notificationService) HandlePayment(ctx context.Context, paymentID int) (*payment.PaymentStatus, error) {
	status, err := s.payments.Payment(ctx, paymentID)
	if err != nil {
		s.logger.Error().Err(err).Int("payment_id", paymentID).Msg("failed to fetch payment")
		return nil, err
	}

	event := s.logger.Info()
	switch status.Status {
	case PaymentApproved:
	case PaymentPending:
	case PaymentRejected:
		event = s.logger.Warn()
	default:
		event = s.logger.Warn().Bool("unhandled", true)
	}
	event.
		Int("payment_id", status.ID).
		Str("status", status.Status).
		Str("reference", status.ExternalReference).
		Str("user_email", metadataString(status.Metadata, "user_email")).
		Str("teste_id", metadataString(status.Metadata, "teste_id")).
		Msg("payment notification")

	return status, nil
}

// metadataString reads a metadata value. Mercado Pago returns keys in
// snake_case regardless of how they were sent.
func metadataString(metadata map[string]any, key string) string {
	v, ok := metadata[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
