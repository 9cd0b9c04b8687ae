package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"

	"github.com/utafrali/storefront/internal/domain"
)

const insertOrderSQL = `
	INSERT INTO orders (id, user_id, status, payment_method, total_amount, currency, shipping_address, phone, notes, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

const insertOrderItemSQL = `
	INSERT INTO order_items (id, order_id, product_id, name, unit_price, quantity, image_ref)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

// reserveStockSQL only matches while enough stock is left, so a zero row
// count means the order would oversell the product.
const reserveStockSQL = `
	UPDATE products
	SET stock = stock - $2, updated_at = NOW()
	WHERE id = $1 AND stock >= $2`

const orderColumns = `o.id, o.user_id, o.status, o.payment_method, o.total_amount::text, o.currency, o.shipping_address, o.phone, o.notes, o.created_at, o.updated_at`

const getOrderSQL = `
	SELECT ` + orderColumns + `,
		COALESCE(
			JSONB_AGG(
				JSONB_BUILD_OBJECT(
					'id', oi.id,
					'order_id', oi.order_id,
					'product_id', oi.product_id,
					'name', oi.name,
					'unit_price', oi.unit_price::text,
					'quantity', oi.quantity,
					'image_ref', oi.image_ref
				) ORDER BY oi.position
			) FILTER (WHERE oi.id IS NOT NULL),
			'[]'::jsonb
		) AS items
	FROM orders o
	LEFT JOIN order_items oi ON o.id = oi.order_id
	WHERE o.id = $1
	GROUP BY o.id`

const listOrdersSQL = `
	SELECT ` + orderColumns + `, count(*) OVER() AS total_count
	FROM orders o
	WHERE o.user_id = $1
	ORDER BY o.created_at DESC
	LIMIT $2 OFFSET $3`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts the order, its items and the matching stock decrements in
// one transaction. If any product lacks stock nothing is written and an
// INSUFFICIENT_STOCK conflict is returned.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateOrder", insertOrderSQL)
	defer func() { end(err) }()

	shippingJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}

	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertOrderSQL,
			o.ID,
			o.UserID,
			o.Status,
			o.PaymentMethod,
			o.TotalAmount,
			o.Currency,
			shippingJSON,
			o.Phone,
			o.Notes,
			o.CreatedAt,
			o.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, item := range o.Items {
			tag, err := tx.Exec(ctx, reserveStockSQL, item.ProductID, item.Quantity)
			if err != nil {
				return fmt.Errorf("reserve stock for %s: %w", item.ProductID, err)
			}
			if tag.RowsAffected() == 0 {
				return apperrors.InsufficientStock(item.ProductID)
			}

			if _, err := tx.Exec(ctx, insertOrderItemSQL,
				item.ID,
				item.OrderID,
				item.ProductID,
				item.Name,
				item.UnitPrice,
				item.Quantity,
				item.ImageRef,
			); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
}

// GetByID retrieves an order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (o *domain.Order, err error) {
	ctx, end := database.TraceQuery(ctx, "GetOrder", getOrderSQL)
	defer func() { end(err) }()

	var itemsJSON []byte
	o, err = scanOrder(r.pool.QueryRow(ctx, getOrderSQL, id), &itemsJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}

	o.Items = []domain.OrderItem{}
	if len(itemsJSON) > 0 && string(itemsJSON) != "null" {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	}
	return o, nil
}

// ListByUser returns a page of the user's orders, newest first, without items.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, page, perPage int) (orders []domain.Order, total int, err error) {
	ctx, end := database.TraceQuery(ctx, "ListOrders", listOrdersSQL)
	defer func() { end(err) }()

	p := pagination.Params{Page: page, PerPage: perPage}
	if p.PerPage <= 0 {
		p.PerPage = pagination.DefaultPerPage
	}

	rows, err := r.pool.Query(ctx, listOrdersSQL, userID, p.Limit(), p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders = make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, total, nil
}

// scanOrder reads the order columns followed by one trailing column into extra.
func scanOrder(row pgx.Row, extra any) (*domain.Order, error) {
	var (
		o            domain.Order
		total        string
		shippingJSON []byte
	)
	if err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.Status,
		&o.PaymentMethod,
		&total,
		&o.Currency,
		&shippingJSON,
		&o.Phone,
		&o.Notes,
		&o.CreatedAt,
		&o.UpdatedAt,
		extra,
	); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("parse total of %s: %w", o.ID, err)
	}
	o.TotalAmount = amount

	if len(shippingJSON) > 0 && string(shippingJSON) != "null" {
		if err := json.Unmarshal(shippingJSON, &o.ShippingAddress); err != nil {
			return nil, fmt.Errorf("unmarshal shipping address: %w", err)
		}
	}
	return &o, nil
}
