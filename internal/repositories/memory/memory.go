// Package memory holds process-local repositories used in tests and the "memory" cart store.
package memory

import (
	"context"
	"strings"
	"sync"

	domain "github.com/hanko-field/bookstore/internal/domain"
	"github.com/hanko-field/bookstore/internal/repositories"
)

// CatalogRepository serves a fixed product list.
type CatalogRepository struct {
	mu       sync.RWMutex
	products []domain.Product
	err      error
}

var _ repositories.CatalogRepository = (*CatalogRepository)(nil)

func NewCatalogRepository(products ...domain.Product) *CatalogRepository {
	return &CatalogRepository{products: append([]domain.Product(nil), products...)}
}

// Replace swaps the product list.
func (r *CatalogRepository) Replace(products []domain.Product) {
	r.mu.Lock()
	r.products = append([]domain.Product(nil), products...)
	r.mu.Unlock()
}

// FailWith makes every subsequent read return err. Passing nil restores normal reads.
func (r *CatalogRepository) FailWith(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *CatalogRepository) ListProducts(context.Context) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.err != nil {
		return nil, repositories.NewStoreError("memory.catalog.list", repositories.KindUnavailable, r.err)
	}
	return append([]domain.Product(nil), r.products...), nil
}

func (r *CatalogRepository) GetProduct(_ context.Context, productID string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.err != nil {
		return domain.Product{}, repositories.NewStoreError("memory.catalog.get", repositories.KindUnavailable, r.err)
	}
	productID = strings.TrimSpace(productID)
	for _, product := range r.products {
		if product.ID == productID {
			return product, nil
		}
	}
	return domain.Product{}, repositories.NotFound("memory.catalog.get", "product %s not found", productID)
}

// CartRepository keeps the cart in memory. Stored carts are deep-copied on the way in and out.
type CartRepository struct {
	mu    sync.Mutex
	cart  *domain.Cart
	saves int
	err   error
}

var _ repositories.CartRepository = (*CartRepository)(nil)

func NewCartRepository() *CartRepository {
	return &CartRepository{}
}

// FailWith makes every subsequent call return err. Passing nil restores normal behaviour.
func (r *CartRepository) FailWith(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// Saves reports how many times SaveCart succeeded.
func (r *CartRepository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func (r *CartRepository) LoadCart(context.Context) (domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return domain.Cart{}, repositories.NewStoreError("memory.cart.load", repositories.KindUnavailable, r.err)
	}
	if r.cart == nil {
		return domain.Cart{}, repositories.NotFound("memory.cart.load", "cart has not been saved")
	}
	return r.cart.Clone(), nil
}

func (r *CartRepository) SaveCart(_ context.Context, cart domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return repositories.NewStoreError("memory.cart.save", repositories.KindUnavailable, r.err)
	}
	stored := cart.Clone()
	r.cart = &stored
	r.saves++
	return nil
}
