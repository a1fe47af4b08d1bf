// Package events publishes order domain events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pizzaria/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// Event types.
const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
)

// OrderEvent is the message published for an order lifecycle change.
type OrderEvent struct {
	Type       string           `json:"type"`
	OrderID    uuid.UUID        `json:"orderId"`
	Status     model.Status     `json:"status"`
	Previous   model.Status     `json:"previousStatus,omitempty"`
	Provider   string           `json:"provider,omitempty"`
	SessionID  string           `json:"providerSessionId,omitempty"`
	Total      *decimal.Decimal `json:"total,omitempty"`
	OccurredAt time.Time        `json:"occurredAt"`
}

// OrderCreated builds the event for a newly recorded order.
func OrderCreated(order *model.Order) OrderEvent {
	total := order.Total
	return OrderEvent{
		Type:       TypeOrderCreated,
		OrderID:    order.ID,
		Status:     order.Status,
		Provider:   order.Provider,
		SessionID:  order.ProviderSessionID,
		Total:      &total,
		OccurredAt: time.Now().UTC(),
	}
}

// StatusChanged builds the event for a fulfilment advance.
func StatusChanged(id uuid.UUID, from, to model.Status) OrderEvent {
	return OrderEvent{
		Type:       TypeOrderStatusChanged,
		OrderID:    id,
		Status:     to,
		Previous:   from,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers order events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// kafkaPublisher implements Publisher on a Kafka topic keyed by order id.
type kafkaPublisher struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewKafkaPublisher creates a publisher writing to topic on brokers. timeout
// bounds each Publish call, retries included.
func NewKafkaPublisher(brokers []string, topic string, timeout time.Duration, logger zerolog.Logger) Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: timeout,
		MaxAttempts:  3,
	}
	return newKafkaPublisher(writer, topic, timeout, logger)
}

func newKafkaPublisher(writer messageWriter, topic string, timeout time.Duration, logger zerolog.Logger) *kafkaPublisher {
	return &kafkaPublisher{
		writer:  writer,
		topic:   topic,
		timeout: timeout,
		logger:  logger.With().Str("component", "events").Str("topic", topic).Logger(),
	}
}

// Publish writes event as JSON. Messages with the same order id land on the
// same partition so consumers see one order's events in order.
func (p *kafkaPublisher) Publish(ctx context.Context, event OrderEvent) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID.String()),
		Value: data,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error().Err(err).Str("order_id", event.OrderID.String()).Str("type", event.Type).Msg("failed to publish event")
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	p.logger.Debug().Str("order_id", event.OrderID.String()).Str("type", event.Type).Msg("event published")
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

// nopPublisher drops every event. Used when no brokers are configured.
type nopPublisher struct{}

// NewNopPublisher returns a Publisher that does nothing.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(context.Context, OrderEvent) error { return nil }

func (nopPublisher) Close() error { return nil }
