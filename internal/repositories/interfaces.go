package repositories

import (
	"context"

	domain "github.com/hanko-field/bookstore/internal/domain"
)

// CatalogRepository is a read-only source of product records, active or not.
type CatalogRepository interface {
	// ListProducts returns every stored product in source order.
	ListProducts(ctx context.Context) ([]domain.Product, error)
	// GetProduct returns a single product. Absent products yield a RepositoryError with IsNotFound.
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
}

// CartRepository persists the singleton cart.
type CartRepository interface {
	// LoadCart returns the stored cart. A cart that was never saved yields a RepositoryError with IsNotFound.
	LoadCart(ctx context.Context) (domain.Cart, error)
	// SaveCart replaces the stored cart.
	SaveCart(ctx context.Context, cart domain.Cart) error
}

// HealthRepository aggregates dependency probes for readiness checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}
