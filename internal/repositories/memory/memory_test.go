package memory

import (
	"context"
	"errors"
	"testing"

	domain "github.com/hanko-field/bookstore/internal/domain"
	"github.com/hanko-field/bookstore/internal/repositories"
)

func TestCartRepositoryIsolatesStoredCopy(t *testing.T) {
	repo := NewCartRepository()
	ctx := context.Background()

	if _, err := repo.LoadCart(ctx); !repositories.IsNotFound(err) {
		t.Fatalf("expected not found before first save, got %v", err)
	}

	cart := domain.Cart{Items: []domain.CartItem{{ProductID: "1", Price: 4000, Quantity: 1}}}
	cart.Recalculate()
	if err := repo.SaveCart(ctx, cart); err != nil {
		t.Fatalf("SaveCart: %v", err)
	}
	cart.Items[0].Quantity = 99

	loaded, err := repo.LoadCart(ctx)
	if err != nil {
		t.Fatalf("LoadCart: %v", err)
	}
	if loaded.Items[0].Quantity != 1 {
		t.Fatalf("stored cart was mutated through caller slice")
	}
	if repo.Saves() != 1 {
		t.Fatalf("expected 1 save, got %d", repo.Saves())
	}
}

func TestRepositoriesFailWith(t *testing.T) {
	catalog := NewCatalogRepository(domain.Product{ID: "1"})
	catalog.FailWith(errors.New("disk gone"))

	_, err := catalog.ListProducts(context.Background())
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.IsUnavailable() {
		t.Fatalf("expected unavailable error, got %v", err)
	}

	catalog.FailWith(nil)
	if _, err := catalog.GetProduct(context.Background(), "1"); err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if _, err := catalog.GetProduct(context.Background(), "2"); !repositories.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
