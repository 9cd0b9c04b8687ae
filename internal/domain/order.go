package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order status constants.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCanceled  = "canceled"
)

// PaymentCashOnDelivery is the only payment method the storefront offers.
const PaymentCashOnDelivery = "cash_on_delivery"

// Order is a placed cash-on-delivery order.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Status          string          `json:"status"`
	PaymentMethod   string          `json:"payment_method"`
	Items           []OrderItem     `json:"items"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Currency        string          `json:"currency"`
	ShippingAddress Address         `json:"shipping_address"`
	Phone           string          `json:"phone"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem is a line item frozen into an order.
type OrderItem struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	ImageRef  string          `json:"image_ref,omitempty"`
}

// Address is a shipping address.
type Address struct {
	FullName    string `json:"full_name"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	PostalCode  string `json:"postal_code"`
	Country     string `json:"country"`
}

// NewOrder builds a pending cash-on-delivery order from cart line items.
// total is taken as given so the order records exactly what the cart showed.
func NewOrder(userID string, items []LineItem, total decimal.Decimal, shipping Address, phone, notes string) *Order {
	now := time.Now().UTC()
	o := &Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Status:          OrderStatusPending,
		PaymentMethod:   PaymentCashOnDelivery,
		Items:           make([]OrderItem, 0, len(items)),
		TotalAmount:     total,
		Currency:        DefaultCurrency,
		ShippingAddress: shipping,
		Phone:           phone,
		Notes:           notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, li := range items {
		o.Items = append(o.Items, OrderItem{
			ID:        uuid.NewString(),
			OrderID:   o.ID,
			ProductID: li.ProductID,
			Name:      li.Name,
			UnitPrice: li.UnitPrice,
			Quantity:  li.Quantity,
			ImageRef:  li.ImageRef,
		})
	}
	return o
}

// ItemCount sums the quantities of the order's items.
func (o *Order) ItemCount() int {
	var count int
	for _, item := range o.Items {
		count += item.Quantity
	}
	return count
}
