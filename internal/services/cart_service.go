package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hanko-field/bookstore/internal/repositories"
)

var (
	errCartRepositoryRequired = errors.New("cart service: repository is required")
	errCartCatalogRequired    = errors.New("cart service: catalog is required")
)

// CartServiceDeps wires the repository, catalog and optional side channels for cart operations.
type CartServiceDeps struct {
	Repository  repositories.CartRepository
	Catalog     CatalogService
	Clock       func() time.Time
	Logger      Logger
	Publisher   CartEventPublisher
	Metrics     MetricsRecorder
	IDGenerator func() string
}

// cartService serialises read-modify-persist cycles with mu. Catalog lookups and event
// publishing happen outside the lock.
type cartService struct {
	mu        sync.Mutex
	repo      repositories.CartRepository
	catalog   CatalogService
	now       func() time.Time
	newID     func() string
	logger    Logger
	publisher CartEventPublisher
	metrics   MetricsRecorder
}

var _ CartService = (*cartService)(nil)

func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Catalog == nil {
		return nil, errCartCatalogRequired
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &cartService{
		repo:      deps.Repository,
		catalog:   deps.Catalog,
		now:       func() time.Time { return clock().UTC() },
		newID:     idGen,
		logger:    logger,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
	}, nil
}

// AddItem adds quantity units of the product. Zero means one. Stock is checked against the
// requested increment only, not the resulting line quantity.
func (s *cartService) AddItem(ctx context.Context, productID string, quantity int) (Cart, error) {
	productID = strings.TrimSpace(productID)
	switch {
	case productID == "":
		return Cart{}, ErrInvalidProductID
	case quantity < 0:
		return Cart{}, ErrInvalidQuantity
	case quantity == 0:
		quantity = 1
	}

	product, err := s.catalog.FindActive(ctx, productID)
	if err != nil {
		s.record("add", outcomeOf(err))
		return Cart{}, err
	}
	if product.Stock < quantity {
		s.record("add", "insufficient_stock")
		return Cart{}, &StockError{ProductID: productID, Requested: quantity, Available: product.Stock}
	}

	cart, err := s.mutate(ctx, false, func(cart *Cart, now time.Time) {
		if i := cart.IndexOf(productID); i >= 0 {
			cart.Items[i].Quantity += quantity
			return
		}
		cart.Items = append(cart.Items, CartItem{
			ProductID: product.ID,
			Title:     product.Title,
			Author:    product.Author,
			ImageURL:  product.ImageURL,
			Price:     product.EffectivePrice(),
			Quantity:  quantity,
			AddedAt:   now,
		})
	})
	if err != nil {
		s.record("add", "error")
		return Cart{}, err
	}

	s.record("add", "ok")
	s.publish(ctx, CartEventItemAdded, cart, productID, quantity)
	return cart, nil
}

// RemoveItem drops the line for productID. A missing line is not an error.
func (s *cartService) RemoveItem(ctx context.Context, productID string) (Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Cart{}, ErrInvalidProductID
	}

	removed := 0
	cart, err := s.mutate(ctx, false, func(cart *Cart, _ time.Time) {
		if i := cart.IndexOf(productID); i >= 0 {
			removed = cart.Items[i].Quantity
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
		}
	})
	if err != nil {
		s.record("remove", "error")
		return Cart{}, err
	}

	s.record("remove", "ok")
	if removed > 0 {
		s.publish(ctx, CartEventItemRemoved, cart, productID, removed)
	}
	return cart, nil
}

// ClearCart empties the cart. Clearing an empty cart succeeds, and so does clearing
// a cart that can no longer be read.
func (s *cartService) ClearCart(ctx context.Context) error {
	cart, err := s.mutate(ctx, true, func(cart *Cart, _ time.Time) {
		cart.Items = []CartItem{}
	})
	if err != nil {
		s.record("clear", "error")
		return err
	}
	s.record("clear", "ok")
	s.publish(ctx, CartEventCleared, cart, "", 0)
	return nil
}

// ViewCart returns the stored cart, creating an empty one on first use. It never fails.
func (s *cartService) ViewCart(ctx context.Context) Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.load(ctx)
	if err == nil {
		return cart
	}
	if !errors.Is(err, errCartMissing) {
		s.logger(ctx, "cart.read_failed", map[string]any{"error": err.Error()})
		return s.emptyCart()
	}

	cart = s.emptyCart()
	if err := s.repo.SaveCart(ctx, cart); err != nil {
		s.logger(ctx, "cart.persist_failed", map[string]any{"error": err.Error(), "cartId": cart.ID})
	}
	return cart
}

// Snapshot copies the cart under the lock for checkout.
func (s *cartService) Snapshot(ctx context.Context) Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.load(ctx)
	if err != nil {
		if !errors.Is(err, errCartMissing) {
			s.logger(ctx, "cart.read_failed", map[string]any{"error": err.Error()})
		}
		return s.emptyCart()
	}
	return cart.Clone()
}

var errCartMissing = errors.New("cart service: cart not stored yet")

// mutate runs fn against a fresh copy of the stored cart and persists the result.
// The stored cart is left untouched when persisting fails. A corrupt cart, or any
// unreadable cart when discardUnreadable is set, is replaced by an empty one.
func (s *cartService) mutate(ctx context.Context, discardUnreadable bool, fn func(cart *Cart, now time.Time)) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.load(ctx)
	switch {
	case errors.Is(err, errCartMissing):
		cart = s.emptyCart()
	case err != nil:
		s.logger(ctx, "cart.read_failed", map[string]any{"error": err.Error()})
		if !discardUnreadable && !repositories.IsCorrupt(err) {
			return Cart{}, storageError(err, nil)
		}
		cart = s.emptyCart()
	}

	now := s.now()
	fn(&cart, now)
	cart.Recalculate()
	cart.LastUpdated = now

	if err := s.repo.SaveCart(ctx, cart); err != nil {
		s.logger(ctx, "cart.persist_failed", map[string]any{"error": err.Error(), "cartId": cart.ID})
		return Cart{}, storageError(err, nil)
	}
	return cart.Clone(), nil
}

func (s *cartService) load(ctx context.Context) (Cart, error) {
	cart, err := s.repo.LoadCart(ctx)
	if err != nil {
		if repositories.IsNotFound(err) {
			return Cart{}, errCartMissing
		}
		return Cart{}, err
	}
	if cart.ID == "" {
		cart.ID = s.newID()
	}
	if cart.Items == nil {
		cart.Items = []CartItem{}
	}
	cart.Recalculate()
	return cart, nil
}

func (s *cartService) emptyCart() Cart {
	return Cart{ID: s.newID(), Items: []CartItem{}, LastUpdated: s.now()}
}

func (s *cartService) publish(ctx context.Context, eventType string, cart Cart, productID string, quantity int) {
	if s.publisher == nil {
		return
	}
	event := CartEvent{
		ID:         ulid.Make().String(),
		Type:       eventType,
		CartID:     cart.ID,
		ProductID:  productID,
		Quantity:   quantity,
		Total:      cart.Total,
		TotalItems: cart.TotalItems,
		OccurredAt: cart.LastUpdated,
	}
	if err := s.publisher.PublishCartEvent(ctx, event); err != nil {
		s.logger(ctx, "cart.event_publish_failed", map[string]any{"type": eventType, "error": err.Error()})
	}
}

func (s *cartService) record(operation, outcome string) {
	if s.metrics != nil {
		s.metrics.CartMutation(operation, outcome)
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrProductNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	default:
		return "error"
	}
}
