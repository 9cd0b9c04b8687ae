package repository

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
)

// SnapshotKeyPrefix namespaces cart snapshots in shared key-value stores.
const SnapshotKeyPrefix = "cart:"

// SnapshotKey returns the storage key for a session's cart snapshot.
func SnapshotKey(sessionID string) string {
	return SnapshotKeyPrefix + sessionID
}

// SnapshotRepository stores opaque cart snapshots by key.
type SnapshotRepository interface {
	// Get returns apperrors.ErrNotFound when no snapshot exists for key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set replaces the snapshot stored under key.
	Set(ctx context.Context, key string, data []byte) error

	// Delete removes the snapshot stored under key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}

// ProductFilter narrows a product listing.
type ProductFilter struct {
	Search  string
	Page    int
	PerPage int
}

// ProductRepository reads the product catalog.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)
}

// OrderRepository persists placed orders.
type OrderRepository interface {
	// Create stores the order with its items and reserves stock for every
	// item in the same transaction.
	Create(ctx context.Context, order *domain.Order) error

	GetByID(ctx context.Context, id string) (*domain.Order, error)

	ListByUser(ctx context.Context, userID string, page, perPage int) ([]domain.Order, int, error)
}
