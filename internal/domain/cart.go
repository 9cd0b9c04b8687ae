package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the currency every storefront amount is expressed in.
const DefaultCurrency = "USD"

var (
	ErrEmptyProductID   = errors.New("product id is required")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrQuantityOverflow = errors.New("quantity exceeds available stock")
	ErrNegativePrice    = errors.New("unit price must not be negative")
	ErrDuplicateItem    = errors.New("duplicate line item")
)

// LineItem is one product row in a cart. Name, price, image and stock are
// captured when the product is added and are not refreshed afterwards.
type LineItem struct {
	ProductID      string          `json:"product_id"`
	Name           string          `json:"name"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Quantity       int             `json:"quantity"`
	ImageRef       string          `json:"image_ref"`
	AvailableStock int             `json:"available_stock"`
}

// NewLineItem snapshots p into a line item holding quantity units. The caller
// is responsible for clamping quantity to the product's stock.
func NewLineItem(p Product, quantity int) (LineItem, error) {
	if p.ID == "" {
		return LineItem{}, ErrEmptyProductID
	}
	if quantity <= 0 {
		return LineItem{}, ErrInvalidQuantity
	}
	return LineItem{
		ProductID:      p.ID,
		Name:           p.Name,
		UnitPrice:      p.Price,
		Quantity:       quantity,
		ImageRef:       p.PrimaryImage(),
		AvailableStock: p.Stock,
	}, nil
}

// Subtotal is UnitPrice × Quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Validate checks the invariants a retained line item must satisfy.
func (li LineItem) Validate() error {
	switch {
	case li.ProductID == "":
		return ErrEmptyProductID
	case li.Quantity < 1:
		return fmt.Errorf("%s: %w", li.ProductID, ErrInvalidQuantity)
	case li.Quantity > li.AvailableStock:
		return fmt.Errorf("%s: %w", li.ProductID, ErrQuantityOverflow)
	case li.UnitPrice.IsNegative():
		return fmt.Errorf("%s: %w", li.ProductID, ErrNegativePrice)
	}
	return nil
}

// ValidateLineItems validates every item and rejects repeated product ids.
func ValidateLineItems(items []LineItem) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
		if _, ok := seen[item.ProductID]; ok {
			return fmt.Errorf("%s: %w", item.ProductID, ErrDuplicateItem)
		}
		seen[item.ProductID] = struct{}{}
	}
	return nil
}

// TotalAmount sums the subtotals of items.
func TotalAmount(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ItemCount sums the quantities of items.
func ItemCount(items []LineItem) int {
	var count int
	for _, item := range items {
		count += item.Quantity
	}
	return count
}
