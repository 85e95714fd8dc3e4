// Package cached decorates a catalog repository with a short-lived in-process snapshot.
package cached

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	domain "github.com/hanko-field/bookstore/internal/domain"
	"github.com/hanko-field/bookstore/internal/repositories"
)

const snapshotKey = "catalog"

// CatalogRepository serves ListProducts and GetProduct from a snapshot refreshed every ttl.
// Concurrent misses share one upstream read. Failed reads are not cached.
type CatalogRepository struct {
	next repositories.CatalogRepository
	ttl  time.Duration
	now  func() time.Time

	group singleflight.Group

	mu       sync.RWMutex
	products []domain.Product
	index    map[string]int
	loadedAt time.Time
}

var _ repositories.CatalogRepository = (*CatalogRepository)(nil)

// Option customises the cache.
type Option func(*CatalogRepository)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *CatalogRepository) {
		if now != nil {
			r.now = now
		}
	}
}

// NewCatalogRepository wraps next. A non-positive ttl disables caching and returns next unchanged.
func NewCatalogRepository(next repositories.CatalogRepository, ttl time.Duration, opts ...Option) repositories.CatalogRepository {
	if ttl <= 0 {
		return next
	}
	repo := &CatalogRepository{next: next, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo
}

func (r *CatalogRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products, _, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return append([]domain.Product(nil), products...), nil
}

func (r *CatalogRepository) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	products, index, err := r.snapshot(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	productID = strings.TrimSpace(productID)
	if i, ok := index[productID]; ok {
		return products[i], nil
	}
	return domain.Product{}, repositories.NotFound("cached.catalog.get", "product %s not found", productID)
}

// Invalidate drops the snapshot so the next read goes upstream.
func (r *CatalogRepository) Invalidate() {
	r.mu.Lock()
	r.products, r.index, r.loadedAt = nil, nil, time.Time{}
	r.mu.Unlock()
}

func (r *CatalogRepository) snapshot(ctx context.Context) ([]domain.Product, map[string]int, error) {
	r.mu.RLock()
	if r.index != nil && r.now().Sub(r.loadedAt) < r.ttl {
		products, index := r.products, r.index
		r.mu.RUnlock()
		return products, index, nil
	}
	r.mu.RUnlock()

	loaded, err, _ := r.group.Do(snapshotKey, func() (any, error) {
		products, err := r.next.ListProducts(ctx)
		if err != nil {
			return nil, err
		}
		snap := catalogSnapshot{products: products, index: make(map[string]int, len(products))}
		for i, product := range products {
			snap.index[product.ID] = i
		}
		r.mu.Lock()
		r.products, r.index, r.loadedAt = snap.products, snap.index, r.now()
		r.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		return nil, nil, err
	}
	snap := loaded.(catalogSnapshot)
	return snap.products, snap.index, nil
}

type catalogSnapshot struct {
	products []domain.Product
	index    map[string]int
}
