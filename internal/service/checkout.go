package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/tracing"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
)

// AddressInput is the shipping address submitted at checkout.
type AddressInput struct {
	FullName    string `json:"full_name" validate:"required,max=200"`
	AddressLine string `json:"address_line" validate:"required,max=500"`
	City        string `json:"city" validate:"required,max=100"`
	PostalCode  string `json:"postal_code" validate:"required,max=20"`
	Country     string `json:"country" validate:"required,iso_country2"`
}

// PlaceOrderInput holds the parameters for a cash-on-delivery checkout.
type PlaceOrderInput struct {
	ShippingAddress AddressInput `json:"shipping_address" validate:"required"`
	Phone           string       `json:"phone" validate:"required,min=5,max=32"`
	Notes           string       `json:"notes" validate:"max=1000"`
}

// OrderEvents publishes order lifecycle events.
type OrderEvents interface {
	PublishOrderPlaced(ctx context.Context, order *domain.Order) error
}

// CheckoutService turns a session's cart into a cash-on-delivery order.
type CheckoutService struct {
	carts  *CartService
	orders repository.OrderRepository
	events OrderEvents
	logger *slog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(carts *CartService, orders repository.OrderRepository, events OrderEvents, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{carts: carts, orders: orders, events: events, logger: logger}
}

// PlaceOrder records the session's cart as a pending order for userID and
// empties the cart. The cart is left as it was when the order cannot be stored.
func (s *CheckoutService) PlaceOrder(ctx context.Context, sessionID, userID string, input PlaceOrderInput) (order *domain.Order, err error) {
	ctx, span := tracing.Start(ctx, "checkout.place_order")
	defer func() { tracing.End(span, err) }()

	if userID == "" {
		return nil, apperrors.Unauthorized("user id is required to place an order")
	}

	_, err = s.carts.Consume(ctx, sessionID, func(items []domain.LineItem, total decimal.Decimal) error {
		if len(items) == 0 {
			return apperrors.InvalidInput("cart is empty")
		}
		order = domain.NewOrder(userID, items, total, domain.Address{
			FullName:    input.ShippingAddress.FullName,
			AddressLine: input.ShippingAddress.AddressLine,
			City:        input.ShippingAddress.City,
			PostalCode:  input.ShippingAddress.PostalCode,
			Country:     input.ShippingAddress.Country,
		}, input.Phone, input.Notes)

		if err := s.orders.Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("order.id", order.ID))
	ordersPlacedTotal.Inc()
	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("user_id", userID),
		slog.Int("item_count", order.ItemCount()),
		slog.String("total", order.TotalAmount.StringFixed(2)),
	)

	if s.events != nil {
		if err := s.events.PublishOrderPlaced(ctx, order); err != nil {
			s.logger.WarnContext(ctx, "failed to publish order.placed event",
				slog.String("order_id", order.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return order, nil
}
