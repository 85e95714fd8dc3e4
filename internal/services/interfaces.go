package services

import (
	"context"
	"time"

	domain "github.com/hanko-field/bookstore/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Product               = domain.Product
	ProductQuery          = domain.ProductQuery
	Cart                  = domain.Cart
	CartItem              = domain.CartItem
	CheckoutSession       = domain.CheckoutSession
	CheckoutSessionStatus = domain.CheckoutSessionStatus
	SystemHealthReport    = domain.SystemHealthReport
)

// CatalogService exposes the active subset of the catalog.
type CatalogService interface {
	ListActive(ctx context.Context) []Product
	FindActive(ctx context.Context, productID string) (Product, error)
	Query(ctx context.Context, query ProductQuery) []Product
}

// CartService owns the singleton cart and serialises every mutation.
type CartService interface {
	AddItem(ctx context.Context, productID string, quantity int) (Cart, error)
	RemoveItem(ctx context.Context, productID string) (Cart, error)
	ViewCart(ctx context.Context) Cart
	ClearCart(ctx context.Context) error
	Snapshot(ctx context.Context) Cart
}

// CheckoutService opens hosted payment sessions and reports their status.
type CheckoutService interface {
	CreateSession(ctx context.Context, cmd CreateSessionCommand) (CheckoutSession, error)
	SessionStatus(ctx context.Context, sessionID string) (CheckoutSessionStatus, error)
}

// SystemService reports dependency health and build metadata.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// CreateSessionCommand carries the client-declared amount and the lines to charge.
// When Items is empty the current cart is charged instead.
type CreateSessionCommand struct {
	Amount int64
	Items  []CartItem
	Origin string
}

// CartEvent is published after a cart mutation has been persisted.
type CartEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	CartID     string    `json:"cartId"`
	ProductID  string    `json:"productId,omitempty"`
	Quantity   int       `json:"quantity,omitempty"`
	Total      int64     `json:"totalMinor"`
	TotalItems int       `json:"totalItems"`
	OccurredAt time.Time `json:"occurredAt"`
}

const (
	CartEventItemAdded   = "cart.item_added"
	CartEventItemRemoved = "cart.item_removed"
	CartEventCleared     = "cart.cleared"
)

// CartEventPublisher delivers cart events to a message bus.
type CartEventPublisher interface {
	PublishCartEvent(ctx context.Context, event CartEvent) error
}

// MetricsRecorder receives business counters. A nil recorder disables them.
type MetricsRecorder interface {
	CartMutation(operation, outcome string)
	CheckoutSession(outcome string)
	GatewayCall(call string, d time.Duration)
	CatalogRead(outcome string)
}

// Logger is the structured event sink shared by services.
type Logger func(ctx context.Context, event string, fields map[string]any)

func noopLogger(context.Context, string, map[string]any) {}
