package domain

import (
	"strings"
	"time"
)

// Product is a catalog record as served to shoppers. Monetary fields are minor units.
type Product struct {
	ID            string
	Title         string
	Author        string
	Description   string
	Category      string
	ImageURL      string
	Price         int64
	DiscountPrice *int64
	Stock         int
	IsActive      bool
	Featured      bool
	Rating        float64
	ReviewCount   int
	CreatedAt     time.Time
}

// EffectivePrice returns the discount price when one is set, otherwise the list price.
func (p Product) EffectivePrice() int64 {
	if p.DiscountPrice != nil {
		return *p.DiscountPrice
	}
	return p.Price
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// Cart is the singleton shopping cart. Totals are derived from Items and must be refreshed with Recalculate.
type Cart struct {
	ID          string
	Items       []CartItem
	Total       int64
	TotalItems  int
	LastUpdated time.Time
}

// CartItem is a single cart line. Price is captured when the line is created and never re-derived.
type CartItem struct {
	ProductID string
	Title     string
	Author    string
	ImageURL  string
	Price     int64
	Quantity  int
	AddedAt   time.Time
}

// Subtotal returns price times quantity for the line.
func (i CartItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// Recalculate recomputes Total and TotalItems from the current lines.
func (c *Cart) Recalculate() {
	var total int64
	var count int
	for _, item := range c.Items {
		total += item.Subtotal()
		count += item.Quantity
	}
	c.Total = total
	c.TotalItems = count
}

// IndexOf returns the position of the line for productID or -1.
func (c Cart) IndexOf(productID string) int {
	productID = strings.TrimSpace(productID)
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy safe to hand outside the cart lock.
func (c Cart) Clone() Cart {
	out := c
	if c.Items != nil {
		out.Items = make([]CartItem, len(c.Items))
		copy(out.Items, c.Items)
	}
	return out
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// PaymentStatus is the normalised state of a checkout session.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// CheckoutLineItem is one priced line sent to the payment provider.
type CheckoutLineItem struct {
	Name        string
	Description string
	ImageURL    string
	UnitAmount  int64
	Quantity    int64
}

// CheckoutSessionRequest collects everything the gateway needs to open a hosted checkout page.
type CheckoutSessionRequest struct {
	Currency       string
	LineItems      []CheckoutLineItem
	SuccessURL     string
	CancelURL      string
	Metadata       map[string]string
	IdempotencyKey string
}

// CheckoutSession identifies a session created at the gateway.
type CheckoutSession struct {
	ID  string
	URL string
}

// CheckoutSessionStatus is the gateway view of a session.
type CheckoutSessionStatus struct {
	SessionID     string
	PaymentStatus string
	Status        PaymentStatus
	AmountTotal   int64
	Currency      string
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}
