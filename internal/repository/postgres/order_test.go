package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"

	"github.com/utafrali/storefront/internal/domain"
)

var orderCols = []string{
	"id", "user_id", "status", "payment_method", "total_amount", "currency",
	"shipping_address", "phone", "notes", "created_at", "updated_at",
}

func sampleOrder() *domain.Order {
	items := []domain.LineItem{
		{ProductID: "p2", Name: "Lamp", UnitPrice: decimal.NewFromInt(20), Quantity: 1, AvailableStock: 3},
		{ProductID: "p3", Name: "Bulb", UnitPrice: decimal.NewFromInt(5), Quantity: 2, AvailableStock: 10},
	}
	addr := domain.Address{FullName: "Ada", AddressLine: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"}
	return domain.NewOrder("user-1", items, domain.TotalAmount(items), addr, "+1555", "")
}

func expectInsertOrder(mock pgxmock.PgxPoolIface, o *domain.Order) {
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(
			o.ID, o.UserID, o.Status, o.PaymentMethod,
			pgxmock.AnyArg(), // total
			o.Currency,
			pgxmock.AnyArg(), // shipping JSON
			o.Phone, o.Notes, o.CreatedAt, o.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func TestOrderRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	o := sampleOrder()

	mock.ExpectBegin()
	expectInsertOrder(mock, o)
	for _, item := range o.Items {
		mock.ExpectExec("UPDATE products").
			WithArgs(item.ProductID, item.Quantity).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec("INSERT INTO order_items").
			WithArgs(item.ID, item.OrderID, item.ProductID, item.Name, pgxmock.AnyArg(), item.Quantity, item.ImageRef).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), o))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Create_InsufficientStock(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	o := sampleOrder()

	mock.ExpectBegin()
	expectInsertOrder(mock, o)
	mock.ExpectExec("UPDATE products").
		WithArgs("p2", 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), o)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "INSUFFICIENT_STOCK", appErr.Code)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Contains(t, appErr.Message, "p2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Create_InsertFails(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	o := sampleOrder()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert order")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	now := time.Now().UTC()

	items := `[{"id":"i1","order_id":"o1","product_id":"p2","name":"Lamp","unit_price":"20.00","quantity":1,"image_ref":""}]`
	mock.ExpectQuery("SELECT .+ FROM orders o").
		WithArgs("o1").
		WillReturnRows(pgxmock.NewRows(append(append([]string{}, orderCols...), "items")).
			AddRow("o1", "user-1", "pending", "cash_on_delivery", "20.00", "USD",
				[]byte(`{"full_name":"Ada","city":"Springfield"}`), "+1555", "", now, now, []byte(items)))

	o, err := repo.GetByID(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", o.UserID)
	assert.Equal(t, domain.PaymentCashOnDelivery, o.PaymentMethod)
	assert.True(t, o.TotalAmount.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, "Springfield", o.ShippingAddress.City)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "p2", o.Items[0].ProductID)
	assert.True(t, o.Items[0].UnitPrice.Equal(decimal.NewFromInt(20)))
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM orders o").
		WithArgs("o404").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "o404")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestOrderRepository_ListByUser(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .+ FROM orders o").
		WithArgs("user-1", 5, 5).
		WillReturnRows(pgxmock.NewRows(append(append([]string{}, orderCols...), "total_count")).
			AddRow("o2", "user-1", "pending", "cash_on_delivery", "10", "USD", []byte(`{}`), "", "", now, now, 7).
			AddRow("o1", "user-1", "delivered", "cash_on_delivery", "5.5", "USD", []byte(`null`), "", "", now, now, 7))

	orders, total, err := repo.ListByUser(context.Background(), "user-1", 2, 5)
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, orders, 2)
	assert.Equal(t, "o2", orders[0].ID)
	assert.True(t, orders[1].TotalAmount.Equal(decimal.RequireFromString("5.5")))
	assert.NoError(t, mock.ExpectationsWereMet())
}
