package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	domain "github.com/hanko-field/bookstore/internal/domain"
	"github.com/hanko-field/bookstore/internal/repositories"
	"github.com/hanko-field/bookstore/internal/repositories/filestore"
	"github.com/hanko-field/bookstore/internal/repositories/memory"
)

func TestCartService_ScenarioAccumulatesAndChecksIncrement(t *testing.T) {
	fx := newCartFixture(t, scenarioProduct())
	ctx := context.Background()

	cart, err := fx.service.AddItem(ctx, "1", 1)
	if err != nil {
		t.Fatalf("first AddItem: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Price != 4000 || cart.Total != 4000 || cart.TotalItems != 1 {
		t.Fatalf("unexpected cart after first add: %+v", cart)
	}

	cart, err = fx.service.AddItem(ctx, "1", 1)
	if err != nil {
		t.Fatalf("second AddItem: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 2 || cart.Total != 8000 {
		t.Fatalf("expected accumulated line, got %+v", cart)
	}

	_, err = fx.service.AddItem(ctx, "1", 5)
	var stockErr *StockError
	if !errors.Is(err, ErrInsufficientStock) || !errors.As(err, &stockErr) || stockErr.Available != 2 {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if view := fx.service.ViewCart(ctx); view.Total != 8000 || view.TotalItems != 2 {
		t.Fatalf("failed add must leave cart unchanged, got %+v", view)
	}

	// Only the increment is checked: a third unit is accepted although stock is two.
	cart, err = fx.service.AddItem(ctx, "1", 1)
	if err != nil || cart.Items[0].Quantity != 3 {
		t.Fatalf("expected increment-only stock check, got %+v %v", cart, err)
	}
}

func TestCartService_AddItemValidation(t *testing.T) {
	inactive := scenarioProduct()
	inactive.ID = "2"
	inactive.IsActive = false
	fx := newCartFixture(t, scenarioProduct(), inactive)
	ctx := context.Background()

	if _, err := fx.service.AddItem(ctx, "  ", 1); !errors.Is(err, ErrInvalidProductID) {
		t.Fatalf("expected ErrInvalidProductID, got %v", err)
	}
	if _, err := fx.service.AddItem(ctx, "1", -1); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := fx.service.AddItem(ctx, "404", 1); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound for missing product, got %v", err)
	}
	if _, err := fx.service.AddItem(ctx, "2", 1); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound for inactive product, got %v", err)
	}

	cart, err := fx.service.AddItem(ctx, "1", 0)
	if err != nil || cart.TotalItems != 1 {
		t.Fatalf("expected zero quantity to default to one, got %+v %v", cart, err)
	}
	if fx.metrics.mutations["add:not_found"] != 2 || fx.metrics.mutations["add:ok"] != 1 {
		t.Fatalf("unexpected metrics %v", fx.metrics.mutations)
	}
}

func TestCartService_SnapshotPriceUsesListPriceWithoutDiscount(t *testing.T) {
	product := scenarioProduct()
	product.DiscountPrice = nil
	fx := newCartFixture(t, product)

	cart, err := fx.service.AddItem(context.Background(), "1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if cart.Items[0].Price != 5000 {
		t.Fatalf("expected list price, got %d", cart.Items[0].Price)
	}

	// A later catalog change does not reprice the line.
	product.Price = 9900
	fx.catalog.Replace([]domain.Product{product})
	cart, err = fx.service.AddItem(context.Background(), "1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if cart.Items[0].Price != 5000 || cart.Total != 10000 {
		t.Fatalf("expected captured price, got %+v", cart)
	}
}

func TestCartService_RemoveAndClear(t *testing.T) {
	fx := newCartFixture(t, scenarioProduct())
	ctx := context.Background()

	cart, err := fx.service.RemoveItem(ctx, "1")
	if err != nil || !cart.IsEmpty() {
		t.Fatalf("removing absent item should succeed on empty cart, got %+v %v", cart, err)
	}

	if _, err := fx.service.AddItem(ctx, "1", 2); err != nil {
		t.Fatal(err)
	}
	cart, err = fx.service.RemoveItem(ctx, "999")
	if err != nil || cart.TotalItems != 2 {
		t.Fatalf("absent remove must be a no-op, got %+v %v", cart, err)
	}
	cart, err = fx.service.RemoveItem(ctx, "1")
	if err != nil || !cart.IsEmpty() || cart.Total != 0 {
		t.Fatalf("expected empty cart after remove, got %+v %v", cart, err)
	}

	if _, err := fx.service.AddItem(ctx, "1", 1); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := fx.service.ClearCart(ctx); err != nil {
			t.Fatalf("ClearCart #%d: %v", i, err)
		}
	}
	if view := fx.service.ViewCart(ctx); !view.IsEmpty() || view.Total != 0 || view.TotalItems != 0 {
		t.Fatalf("expected cleared cart, got %+v", view)
	}

	var types []string
	for _, e := range fx.publisher.events {
		types = append(types, e.Type)
	}
	want := []string{CartEventItemAdded, CartEventItemRemoved, CartEventItemAdded, CartEventCleared, CartEventCleared}
	if len(types) != len(want) {
		t.Fatalf("unexpected events %v", types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("unexpected events %v", types)
		}
	}
}

func TestCartService_ViewCartCreatesAndDegrades(t *testing.T) {
	fx := newCartFixture(t, scenarioProduct())
	ctx := context.Background()

	view := fx.service.ViewCart(ctx)
	if view.ID == "" || !view.IsEmpty() || view.Items == nil {
		t.Fatalf("expected materialised empty cart, got %+v", view)
	}
	if fx.carts.Saves() != 1 {
		t.Fatalf("expected lazily created cart to be stored")
	}
	if again := fx.service.ViewCart(ctx); again.ID != view.ID {
		t.Fatalf("expected stable cart id, got %s then %s", view.ID, again.ID)
	}

	fx.carts.FailWith(errors.New("disk full"))
	degraded := fx.service.ViewCart(ctx)
	if !degraded.IsEmpty() {
		t.Fatalf("expected empty cart on read fault, got %+v", degraded)
	}
	if !fx.logs.has("cart.read_failed") {
		t.Fatal("expected cart.read_failed to be logged")
	}
}

func TestCartService_PersistFailureSurfacesStorageError(t *testing.T) {
	fx := newCartFixture(t, scenarioProduct())
	ctx := context.Background()
	if _, err := fx.service.AddItem(ctx, "1", 1); err != nil {
		t.Fatal(err)
	}

	fx.carts.FailWith(errors.New("read-only filesystem"))
	if _, err := fx.service.AddItem(ctx, "1", 1); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if err := fx.service.ClearCart(ctx); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}

	fx.carts.FailWith(nil)
	if view := fx.service.ViewCart(ctx); view.TotalItems != 1 {
		t.Fatalf("failed mutation must not advance state, got %+v", view)
	}
}

func TestCartService_CatalogOutageFailsAdd(t *testing.T) {
	fx := newCartFixture(t, scenarioProduct())
	fx.catalog.FailWith(errors.New("catalog offline"))

	if _, err := fx.service.AddItem(context.Background(), "1", 1); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestCartService_PublishFailureDoesNotFailMutation(t *testing.T) {
	fx := newCartFixture(t, scenarioProduct())
	fx.publisher.err = errors.New("broker down")

	if _, err := fx.service.AddItem(context.Background(), "1", 1); err != nil {
		t.Fatalf("publish failure must not fail AddItem: %v", err)
	}
	if !fx.logs.has("cart.event_publish_failed") {
		t.Fatal("expected publish failure to be logged")
	}
}

func TestCartService_ConcurrentAddsLoseNoUpdates(t *testing.T) {
	product := scenarioProduct()
	product.Stock = 5
	fx := newCartFixture(t, product)

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := fx.service.AddItem(context.Background(), "1", 1); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	cart := fx.service.ViewCart(context.Background())
	if cart.TotalItems != workers || cart.Total != workers*4000 {
		t.Fatalf("lost updates: %+v", cart)
	}
}

func TestCartService_SnapshotIsACopy(t *testing.T) {
	fx := newCartFixture(t, scenarioProduct())
	ctx := context.Background()
	if _, err := fx.service.AddItem(ctx, "1", 1); err != nil {
		t.Fatal(err)
	}

	snap := fx.service.Snapshot(ctx)
	snap.Items[0].Quantity = 42
	if view := fx.service.ViewCart(ctx); view.Items[0].Quantity != 1 {
		t.Fatalf("snapshot aliases the stored cart")
	}
}

func TestNewCartServiceValidatesDeps(t *testing.T) {
	if _, err := NewCartService(CartServiceDeps{}); err == nil {
		t.Fatal("expected error without repository")
	}
}

func newCartServiceWithRepo(t *testing.T, repo repositories.CartRepository, logs *eventRecorder) CartService {
	t.Helper()
	catalog, err := NewCatalogService(CatalogServiceDeps{Catalog: memory.NewCatalogRepository(scenarioProduct())})
	if err != nil {
		t.Fatalf("NewCatalogService: %v", err)
	}
	svc, err := NewCartService(CartServiceDeps{
		Repository: repo,
		Catalog:    catalog,
		Clock:      func() time.Time { return testNow },
		Logger:     logs.log,
	})
	if err != nil {
		t.Fatalf("NewCartService: %v", err)
	}
	return svc
}

func TestCartService_CorruptCartFileIsReplaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	repo, err := filestore.NewCartRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	logs := &eventRecorder{}
	svc := newCartServiceWithRepo(t, repo, logs)
	ctx := context.Background()

	if view := svc.ViewCart(ctx); !view.IsEmpty() {
		t.Fatalf("expected empty view of corrupt cart, got %+v", view)
	}
	if err := svc.ClearCart(ctx); err != nil {
		t.Fatalf("ClearCart on corrupt cart: %v", err)
	}
	if !logs.has("cart.read_failed") {
		t.Fatal("expected cart.read_failed to be logged")
	}
	if err := svc.ClearCart(ctx); err != nil {
		t.Fatalf("second ClearCart: %v", err)
	}
	if _, err := repo.LoadCart(ctx); err != nil {
		t.Fatalf("expected readable cart after clear, got %v", err)
	}

	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	cart, err := svc.AddItem(ctx, "1", 1)
	if err != nil {
		t.Fatalf("AddItem on corrupt cart: %v", err)
	}
	if cart.TotalItems != 1 || cart.Total != 4000 {
		t.Fatalf("expected fresh cart with one line, got %+v", cart)
	}
}

// readFailingCarts fails loads while saves succeed.
type readFailingCarts struct {
	*memory.CartRepository
	loadErr error
}

func (r *readFailingCarts) LoadCart(ctx context.Context) (domain.Cart, error) {
	if r.loadErr != nil {
		return domain.Cart{}, repositories.NewStoreError("stub.cart.load", repositories.KindUnavailable, r.loadErr)
	}
	return r.CartRepository.LoadCart(ctx)
}

func TestCartService_UnreadableCartBlocksAddButNotClear(t *testing.T) {
	repo := &readFailingCarts{CartRepository: memory.NewCartRepository(), loadErr: errors.New("timeout")}
	svc := newCartServiceWithRepo(t, repo, &eventRecorder{})
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "1", 1); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if repo.Saves() != 0 {
		t.Fatalf("AddItem must not overwrite an unreadable cart, saves=%d", repo.Saves())
	}
	if err := svc.ClearCart(ctx); err != nil {
		t.Fatalf("ClearCart: %v", err)
	}

	repo.loadErr = nil
	stored, err := repo.LoadCart(ctx)
	if err != nil || len(stored.Items) != 0 {
		t.Fatalf("expected stored empty cart, got %+v %v", stored, err)
	}
}
