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

	"github.com/utafrali/storefront/internal/repository"
)

var productCols = []string{"id", "name", "description", "price", "images", "stock", "created_at", "updated_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestProductRepository_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .+ FROM products").
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows(productCols).
			AddRow("p1", "Mug", "Stoneware", "12.50", []string{"mug.jpg", "mug-2.jpg"}, 7, now, now))

	p, err := repo.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Mug", p.Name)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, "mug.jpg", p.PrimaryImage())
	assert.Equal(t, 7, p.Stock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM products").
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Equal(t, 404, apperrors.HTTPStatus(err))
}

func TestProductRepository_GetByID_DBError(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM products").
		WithArgs("p1").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.GetByID(context.Background(), "p1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestProductRepository_List(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)
	now := time.Now().UTC()

	cols := append(append([]string{}, productCols...), "total_count")
	mock.ExpectQuery("SELECT .+ FROM products").
		WithArgs("mug", 10, 10).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("p1", "Mug", "", "3", []string{}, 1, now, now, 12).
			AddRow("p2", "Big mug", "", "4.25", []string{"big.jpg"}, 0, now, now, 12))

	products, total, err := repo.List(context.Background(), repository.ProductFilter{Search: "mug", Page: 2, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, products, 2)
	assert.Equal(t, "p2", products[1].ID)
	assert.True(t, products[1].Price.Equal(decimal.RequireFromString("4.25")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_List_DefaultsAndEmpty(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	cols := append(append([]string{}, productCols...), "total_count")
	mock.ExpectQuery("SELECT .+ FROM products").
		WithArgs("", 20, 0).
		WillReturnRows(pgxmock.NewRows(cols))

	products, total, err := repo.List(context.Background(), repository.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestProductRepository_List_QueryError(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM products").
		WillReturnError(errors.New("boom"))

	_, _, err := repo.List(context.Background(), repository.ProductFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list products")
}
