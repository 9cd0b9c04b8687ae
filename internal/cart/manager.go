// Package cart holds the per-session cart state machine. A Manager owns the
// line items of one browsing session, keeps them within stock, reports every
// change through a Notifier and mirrors itself to a Store after each
// mutation.
package cart

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
)

// Manager is not safe for concurrent use; callers serialise access.
type Manager struct {
	items    []domain.LineItem
	store    Store
	notifier Notifier
	logger   *slog.Logger
}

// NewManager creates an empty cart. Call Initialize to rehydrate it from store.
// A nil notifier discards notifications and a nil store disables persistence.
func NewManager(store Store, notifier Notifier, logger *slog.Logger) *Manager {
	if notifier == nil {
		notifier = discardNotifier{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{store: store, notifier: notifier, logger: logger}
}

// Initialize replaces the in-memory items with the persisted snapshot. A
// missing, unreadable or invalid snapshot leaves the cart empty.
func (m *Manager) Initialize(ctx context.Context) {
	m.items = nil
	if m.store == nil {
		return
	}

	items, err := m.store.Load(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "discarding cart snapshot", slog.String("error", err.Error()))
		return
	}
	if err := domain.ValidateLineItems(items); err != nil {
		m.logger.WarnContext(ctx, "discarding invalid cart snapshot", slog.String("error", err.Error()))
		return
	}
	m.items = slices.Clone(items)
}

// AddItem adds quantity units of p, or tops up the existing line. The result
// is clamped to the product's stock and the line's snapshot is refreshed
// from p. A quantity below one adds a single unit.
func (m *Manager) AddItem(ctx context.Context, p domain.Product, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	if p.ID == "" {
		m.logger.WarnContext(ctx, "ignoring add of product without id")
		return
	}
	if !p.InStock() {
		m.warn(fmt.Sprintf("%s is out of stock", p.Name))
		return
	}

	idx := m.indexOf(p.ID)
	existing := 0
	if idx >= 0 {
		existing = m.items[idx].Quantity
	}
	// Compare against the remaining headroom so existing+quantity cannot overflow.
	want := p.Stock
	if quantity > p.Stock-existing {
		m.warn(stockLimitMessage(p.Name, p.Stock))
	} else {
		want = existing + quantity
	}

	item, err := domain.NewLineItem(p, want)
	if err != nil {
		m.logger.ErrorContext(ctx, "build line item", slog.String("product_id", p.ID), slog.String("error", err.Error()))
		return
	}
	if idx >= 0 {
		m.items[idx] = item
	} else {
		m.items = append(m.items, item)
	}

	m.info(fmt.Sprintf("%s added to cart", p.Name))
	m.persist(ctx)
}

// RemoveItem deletes the line for productID. Unknown ids are ignored.
func (m *Manager) RemoveItem(ctx context.Context, productID string) {
	idx := m.indexOf(productID)
	if idx < 0 {
		return
	}
	name := m.items[idx].Name
	m.items = slices.Delete(m.items, idx, idx+1)

	m.info(fmt.Sprintf("%s removed from cart", name))
	m.persist(ctx)
}

// UpdateQuantity sets the quantity of an existing line. Zero or less removes
// it; values above the line's stock snapshot are clamped. Unknown ids are
// ignored.
func (m *Manager) UpdateQuantity(ctx context.Context, productID string, quantity int) {
	idx := m.indexOf(productID)
	if idx < 0 {
		return
	}

	item := &m.items[idx]
	switch {
	case quantity <= 0:
		name := item.Name
		m.items = slices.Delete(m.items, idx, idx+1)
		m.warn(fmt.Sprintf("%s removed: quantity reached zero", name))
	case quantity > item.AvailableStock:
		item.Quantity = item.AvailableStock
		m.warn(stockLimitMessage(item.Name, item.AvailableStock))
	default:
		item.Quantity = quantity
	}

	m.persist(ctx)
}

// ClearCart empties the cart.
func (m *Manager) ClearCart(ctx context.Context) {
	m.items = nil
	m.info("Cart cleared")
	m.persist(ctx)
}

// Total is the sum of unit price × quantity over all lines.
func (m *Manager) Total() decimal.Decimal {
	return domain.TotalAmount(m.items)
}

// ItemCount is the number of units in the cart.
func (m *Manager) ItemCount() int {
	return domain.ItemCount(m.items)
}

// Items returns a copy of the lines in insertion order.
func (m *Manager) Items() []domain.LineItem {
	out := make([]domain.LineItem, len(m.items))
	copy(out, m.items)
	return out
}

func (m *Manager) indexOf(productID string) int {
	return slices.IndexFunc(m.items, func(li domain.LineItem) bool {
		return li.ProductID == productID
	})
}

func (m *Manager) persist(ctx context.Context) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(ctx, m.Items()); err != nil {
		m.logger.ErrorContext(ctx, "failed to persist cart",
			slog.Int("items", len(m.items)),
			slog.String("error", err.Error()),
		)
	}
}

func (m *Manager) info(msg string) {
	m.notifier.Notify(Notification{Message: msg, Severity: SeverityInfo})
}

func (m *Manager) warn(msg string) {
	m.notifier.Notify(Notification{Message: msg, Severity: SeverityWarning})
}

func stockLimitMessage(name string, stock int) string {
	return fmt.Sprintf("Only %d of %s available, quantity adjusted", stock, name)
}
