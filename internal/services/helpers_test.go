package services

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	domain "github.com/hanko-field/bookstore/internal/domain"
	"github.com/hanko-field/bookstore/internal/repositories/memory"
)

var testNow = time.Date(2024, time.June, 1, 9, 30, 0, 0, time.UTC)

func int64Ptr(v int64) *int64 { return &v }

// scenarioProduct is the reference book: 50.00 list, 40.00 discounted, two in stock.
func scenarioProduct() domain.Product {
	return domain.Product{
		ID:            "1",
		Title:         "Ion",
		Author:        "Liviu Rebreanu",
		Category:      "Clasici",
		Price:         5000,
		DiscountPrice: int64Ptr(4000),
		Stock:         2,
		IsActive:      true,
	}
}

type loggedEvent struct {
	event  string
	fields map[string]any
}

type eventRecorder struct {
	mu     sync.Mutex
	events []loggedEvent
}

func (r *eventRecorder) log(_ context.Context, event string, fields map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, loggedEvent{event: event, fields: fields})
}

func (r *eventRecorder) has(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.event == event {
			return true
		}
	}
	return false
}

type publisherStub struct {
	mu     sync.Mutex
	events []CartEvent
	err    error
}

func (p *publisherStub) PublishCartEvent(_ context.Context, event CartEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type metricsStub struct {
	mu        sync.Mutex
	mutations map[string]int
	sessions  map[string]int
	calls     int
	reads     map[string]int
}

func newMetricsStub() *metricsStub {
	return &metricsStub{mutations: map[string]int{}, sessions: map[string]int{}, reads: map[string]int{}}
}

func (m *metricsStub) CartMutation(op, outcome string) {
	m.mu.Lock()
	m.mutations[op+":"+outcome]++
	m.mu.Unlock()
}

func (m *metricsStub) CheckoutSession(outcome string) {
	m.mu.Lock()
	m.sessions[outcome]++
	m.mu.Unlock()
}

func (m *metricsStub) GatewayCall(string, time.Duration) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

func (m *metricsStub) CatalogRead(outcome string) {
	m.mu.Lock()
	m.reads[outcome]++
	m.mu.Unlock()
}

type cartFixture struct {
	service   CartService
	catalog   *memory.CatalogRepository
	carts     *memory.CartRepository
	logs      *eventRecorder
	publisher *publisherStub
	metrics   *metricsStub
}

func newCartFixture(t *testing.T, products ...domain.Product) cartFixture {
	t.Helper()
	fx := cartFixture{
		catalog:   memory.NewCatalogRepository(products...),
		carts:     memory.NewCartRepository(),
		logs:      &eventRecorder{},
		publisher: &publisherStub{},
		metrics:   newMetricsStub(),
	}
	catalog, err := NewCatalogService(CatalogServiceDeps{Catalog: fx.catalog, Locale: "ro", Logger: fx.logs.log, Metrics: fx.metrics})
	if err != nil {
		t.Fatalf("NewCatalogService: %v", err)
	}
	ids := 0
	service, err := NewCartService(CartServiceDeps{
		Repository: fx.carts,
		Catalog:    catalog,
		Clock:      func() time.Time { return testNow },
		Logger:     fx.logs.log,
		Publisher:  fx.publisher,
		Metrics:    fx.metrics,
		IDGenerator: func() string {
			ids++
			return "cart-" + strconv.Itoa(ids)
		},
	})
	if err != nil {
		t.Fatalf("NewCartService: %v", err)
	}
	fx.service = service
	return fx
}
