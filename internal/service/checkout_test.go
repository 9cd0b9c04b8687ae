package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"

	"github.com/utafrali/storefront/internal/domain"
)

func validOrderInput() PlaceOrderInput {
	return PlaceOrderInput{
		ShippingAddress: AddressInput{
			FullName:    "Ada Lovelace",
			AddressLine: "12 Analytical Way",
			City:        "London",
			PostalCode:  "N1 9GU",
			Country:     "GB",
		},
		Phone: "+441234567",
		Notes: "leave with neighbour",
	}
}

func newCheckoutFixture(t *testing.T) (*CheckoutService, *cartFixture, *mockOrders) {
	t.Helper()
	f := newCartFixture(t)
	orders := new(mockOrders)
	f.events.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(nil).Maybe()
	return NewCheckoutService(f.svc, orders, f.events, newTestLogger()), f, orders
}

func TestPlaceOrder_Success(t *testing.T) {
	svc, f, orders := newCheckoutFixture(t)
	ctx := context.Background()
	f.products.On("GetByID", ctx, "p2").Return(testProduct("p2", 20, 3), nil)
	f.products.On("GetByID", ctx, "p3").Return(testProduct("p3", 5, 10), nil)
	_, _ = f.svc.AddItem(ctx, "s", "p2", 1)
	_, _ = f.svc.AddItem(ctx, "s", "p3", 2)

	orders.On("Create", ctx, mock.MatchedBy(func(o *domain.Order) bool {
		return o.UserID == "user-1" && len(o.Items) == 2 && o.TotalAmount.Equal(decimal.NewFromInt(30))
	})).Return(nil)

	order, err := svc.PlaceOrder(ctx, "s", "user-1", validOrderInput())
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCashOnDelivery, order.PaymentMethod)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, "London", order.ShippingAddress.City)
	assert.Equal(t, "+441234567", order.Phone)

	res, err := f.svc.GetCart(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, res.Cart.Items, "cart is cleared after the order is placed")

	orders.AssertExpectations(t)
	f.events.AssertCalled(t, "PublishOrderPlaced", mock.Anything, order)
	f.events.AssertCalled(t, "PublishCartCleared", mock.Anything, "s")
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	svc, _, orders := newCheckoutFixture(t)

	_, err := svc.PlaceOrder(context.Background(), "s", "user-1", validOrderInput())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPlaceOrder_RequiresUser(t *testing.T) {
	svc, _, _ := newCheckoutFixture(t)

	_, err := svc.PlaceOrder(context.Background(), "s", "", validOrderInput())
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestPlaceOrder_InsufficientStockKeepsCart(t *testing.T) {
	svc, f, orders := newCheckoutFixture(t)
	ctx := context.Background()
	f.products.On("GetByID", ctx, "p1").Return(testProduct("p1", 10, 5), nil)
	_, _ = f.svc.AddItem(ctx, "s", "p1", 4)

	orders.On("Create", ctx, mock.Anything).Return(apperrors.InsufficientStock("p1"))

	_, err := svc.PlaceOrder(ctx, "s", "user-1", validOrderInput())
	require.Error(t, err)
	assert.Equal(t, 409, apperrors.HTTPStatus(err))

	res, _ := f.svc.GetCart(ctx, "s")
	assert.Equal(t, 4, res.Cart.ItemCount)
	f.events.AssertNotCalled(t, "PublishOrderPlaced", mock.Anything, mock.Anything)
}

func TestPlaceOrder_PublishFailureStillSucceeds(t *testing.T) {
	f := newCartFixture(t)
	orders := new(mockOrders)
	events := new(mockEvents)
	events.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	svc := NewCheckoutService(f.svc, orders, events, newTestLogger())

	ctx := context.Background()
	f.products.On("GetByID", ctx, "p1").Return(testProduct("p1", 10, 5), nil)
	_, _ = f.svc.AddItem(ctx, "s", "p1", 1)
	orders.On("Create", ctx, mock.Anything).Return(nil)

	order, err := svc.PlaceOrder(ctx, "s", "user-1", validOrderInput())
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
}
