package cached

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	domain "github.com/hanko-field/bookstore/internal/domain"
	"github.com/hanko-field/bookstore/internal/repositories"
)

type countingCatalog struct {
	calls    atomic.Int32
	err      error
	products []domain.Product
	gate     chan struct{}
}

func (c *countingCatalog) ListProducts(context.Context) ([]domain.Product, error) {
	c.calls.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.products, nil
}

func (c *countingCatalog) GetProduct(context.Context, string) (domain.Product, error) {
	return domain.Product{}, errors.New("not used")
}

func TestCatalogRepositoryCachesUntilTTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	upstream := &countingCatalog{products: []domain.Product{{ID: "1", Title: "Ion"}, {ID: "2", Title: "Baltagul"}}}
	repo := NewCatalogRepository(upstream, time.Minute, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	if _, err := repo.ListProducts(ctx); err != nil {
		t.Fatal(err)
	}
	product, err := repo.GetProduct(ctx, "2")
	if err != nil || product.Title != "Baltagul" {
		t.Fatalf("unexpected product %+v err %v", product, err)
	}
	if _, err := repo.GetProduct(ctx, "3"); !repositories.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if got := upstream.calls.Load(); got != 1 {
		t.Fatalf("expected one upstream read, got %d", got)
	}

	now = now.Add(2 * time.Minute)
	if _, err := repo.ListProducts(ctx); err != nil {
		t.Fatal(err)
	}
	if got := upstream.calls.Load(); got != 2 {
		t.Fatalf("expected refresh after ttl, got %d reads", got)
	}

	repo.(*CatalogRepository).Invalidate()
	if _, err := repo.ListProducts(ctx); err != nil {
		t.Fatal(err)
	}
	if got := upstream.calls.Load(); got != 3 {
		t.Fatalf("expected refresh after invalidate, got %d reads", got)
	}
}

func TestCatalogRepositoryDoesNotCacheErrors(t *testing.T) {
	upstream := &countingCatalog{err: errors.New("boom")}
	repo := NewCatalogRepository(upstream, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := repo.ListProducts(context.Background()); err == nil {
			t.Fatal("expected error")
		}
	}
	if got := upstream.calls.Load(); got != 2 {
		t.Fatalf("expected every failed read to go upstream, got %d", got)
	}
}

func TestCatalogRepositoryCoalescesConcurrentMisses(t *testing.T) {
	upstream := &countingCatalog{products: []domain.Product{{ID: "1"}}, gate: make(chan struct{})}
	repo := NewCatalogRepository(upstream, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.ListProducts(context.Background()); err != nil {
				t.Error(err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(upstream.gate)
	wg.Wait()

	if got := upstream.calls.Load(); got != 1 {
		t.Fatalf("expected a single upstream read, got %d", got)
	}
}

func TestNewCatalogRepositoryZeroTTLPassesThrough(t *testing.T) {
	upstream := &countingCatalog{}
	if repo := NewCatalogRepository(upstream, 0); repo != repositories.CatalogRepository(upstream) {
		t.Fatal("expected upstream to be returned unchanged")
	}
}

func TestCatalogRepositoryGetProductSurvivesConcurrentInvalidate(t *testing.T) {
	upstream := &countingCatalog{products: []domain.Product{{ID: "1", Title: "Ion"}}}
	repo := NewCatalogRepository(upstream, time.Minute).(*CatalogRepository)
	ctx := context.Background()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				repo.Invalidate()
			}
		}
	}()

	for i := 0; i < 500; i++ {
		product, err := repo.GetProduct(ctx, "1")
		if err != nil || product.Title != "Ion" {
			close(stop)
			wg.Wait()
			t.Fatalf("iteration %d: unexpected product %+v err %v", i, product, err)
		}
	}
	close(stop)
	wg.Wait()
}
