package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	pkgkafka "github.com/utafrali/storefront/pkg/kafka"

	"github.com/utafrali/storefront/internal/domain"
)

// Storefront event types. Each is published to pkgkafka.TopicFor(type).
const (
	TypeCartUpdated = "cart.updated"
	TypeCartCleared = "cart.cleared"
	TypeOrderPlaced = "order.placed"
)

const (
	AggregateTypeCart  = "cart"
	AggregateTypeOrder = "order"
	Source             = "storefront"
)

// CartUpdatedData is the payload of a cart.updated event.
type CartUpdatedData struct {
	SessionID   string            `json:"session_id"`
	Items       []domain.LineItem `json:"items"`
	ItemCount   int               `json:"item_count"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	Currency    string            `json:"currency"`
}

// CartClearedData is the payload of a cart.cleared event.
type CartClearedData struct {
	SessionID string `json:"session_id"`
}

// OrderPlacedData is the payload of an order.placed event.
type OrderPlacedData struct {
	OrderID       string             `json:"order_id"`
	UserID        string             `json:"user_id"`
	PaymentMethod string             `json:"payment_method"`
	Items         []domain.OrderItem `json:"items"`
	TotalAmount   decimal.Decimal    `json:"total_amount"`
	Currency      string             `json:"currency"`
}

// Publisher is the part of the Kafka producer used here.
type Publisher interface {
	Publish(ctx context.Context, event *pkgkafka.Event) error
}

// Producer publishes storefront domain events.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishCartUpdated publishes the full cart contents of a session.
func (p *Producer) PublishCartUpdated(ctx context.Context, sessionID string, items []domain.LineItem) error {
	data := CartUpdatedData{
		SessionID:   sessionID,
		Items:       items,
		ItemCount:   domain.ItemCount(items),
		TotalAmount: domain.TotalAmount(items),
		Currency:    domain.DefaultCurrency,
	}
	return p.publish(ctx, TypeCartUpdated, pkgkafka.Aggregate{Type: AggregateTypeCart, ID: sessionID}, data)
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, sessionID string) error {
	return p.publish(ctx, TypeCartCleared, pkgkafka.Aggregate{Type: AggregateTypeCart, ID: sessionID}, CartClearedData{SessionID: sessionID})
}

// PublishOrderPlaced publishes an order.placed event.
func (p *Producer) PublishOrderPlaced(ctx context.Context, o *domain.Order) error {
	data := OrderPlacedData{
		OrderID:       o.ID,
		UserID:        o.UserID,
		PaymentMethod: o.PaymentMethod,
		Items:         o.Items,
		TotalAmount:   o.TotalAmount,
		Currency:      o.Currency,
	}
	return p.publish(ctx, TypeOrderPlaced, pkgkafka.Aggregate{Type: AggregateTypeOrder, ID: o.ID}, data)
}

func (p *Producer) publish(ctx context.Context, eventType string, agg pkgkafka.Aggregate, data any) error {
	evt, err := pkgkafka.NewEvent(ctx, eventType, agg, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	if err := p.kafka.Publish(ctx, evt); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("event_type", eventType),
		slog.String("event_id", evt.EventID),
		slog.String("aggregate_id", agg.ID),
	)
	return nil
}
