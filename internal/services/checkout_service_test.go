package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domain "github.com/hanko-field/bookstore/internal/domain"
	"github.com/hanko-field/bookstore/internal/payments/paymentstest"
	"github.com/hanko-field/bookstore/internal/platform/requestctx"
)

func testCheckoutSettings() CheckoutSettings {
	return CheckoutSettings{
		Currency:            "RON",
		ShippingName:        "Transport",
		ShippingDescription: "Cost livrare",
		ShippingAmount:      1999,
		DefaultOrigin:       "http://localhost:3000/",
	}
}

func newCheckoutFixture(t *testing.T, gateway *paymentstest.FakeGateway, cart CartService) (CheckoutService, *metricsStub) {
	t.Helper()
	metrics := newMetricsStub()
	svc, err := NewCheckoutService(CheckoutServiceDeps{
		Gateway:  gateway,
		Cart:     cart,
		Settings: testCheckoutSettings(),
		Metrics:  metrics,
	})
	if err != nil {
		t.Fatalf("NewCheckoutService: %v", err)
	}
	return svc, metrics
}

func TestCheckoutService_CreateSessionBuildsLineItems(t *testing.T) {
	gateway := &paymentstest.FakeGateway{}
	svc, metrics := newCheckoutFixture(t, gateway, nil)

	ctx := requestctx.WithIdempotencyKey(context.Background(), "idem-1")
	session, err := svc.CreateSession(ctx, CreateSessionCommand{
		Amount: 9999,
		Items: []CartItem{
			{ProductID: "1", Title: "Ion", Author: "Liviu Rebreanu", Price: 4000, Quantity: 2},
			{ProductID: "9", Title: "Anonim", Price: 1250, Quantity: 1},
		},
		Origin: "https://shop.example.ro",
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if session.ID != "cs_test_1" || session.URL == "" {
		t.Fatalf("unexpected session %+v", session)
	}

	req := gateway.LastRequest()
	if req.Currency != "ron" {
		t.Fatalf("expected lower-cased currency, got %q", req.Currency)
	}
	if len(req.LineItems) != 3 {
		t.Fatalf("expected two items plus shipping, got %+v", req.LineItems)
	}
	first := req.LineItems[0]
	if first.Name != "Ion" || first.Description != "by Liviu Rebreanu" || first.UnitAmount != 4000 || first.Quantity != 2 {
		t.Fatalf("unexpected first line %+v", first)
	}
	if req.LineItems[1].Description != "" {
		t.Fatalf("expected no description without author, got %q", req.LineItems[1].Description)
	}
	shipping := req.LineItems[2]
	if shipping.Name != "Transport" || shipping.Description != "Cost livrare" || shipping.UnitAmount != 1999 || shipping.Quantity != 1 {
		t.Fatalf("unexpected shipping line %+v", shipping)
	}
	if req.SuccessURL != "https://shop.example.ro/payment-success?session_id={CHECKOUT_SESSION_ID}&clear_cart=true" {
		t.Fatalf("unexpected success url %s", req.SuccessURL)
	}
	if req.CancelURL != "https://shop.example.ro/" {
		t.Fatalf("unexpected cancel url %s", req.CancelURL)
	}
	if req.Metadata["order_type"] != "book_store" || req.IdempotencyKey != "idem-1" {
		t.Fatalf("unexpected metadata %+v key %q", req.Metadata, req.IdempotencyKey)
	}
	if metrics.sessions["ok"] != 1 || metrics.calls != 1 {
		t.Fatalf("unexpected metrics %+v", metrics)
	}
}

func TestCheckoutService_InvalidAmountSkipsGateway(t *testing.T) {
	gateway := &paymentstest.FakeGateway{}
	svc, _ := newCheckoutFixture(t, gateway, nil)

	for _, amount := range []int64{0, -5, 99} {
		_, err := svc.CreateSession(context.Background(), CreateSessionCommand{
			Amount: amount,
			Items:  []CartItem{{Title: "Ion", Price: 4000, Quantity: 1}},
		})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
	if gateway.Calls() != 0 {
		t.Fatalf("gateway must not be called, got %d calls", gateway.Calls())
	}
}

func TestCheckoutService_FallsBackToCartSnapshotAndDefaultOrigin(t *testing.T) {
	fx := newCartFixture(t, scenarioProduct())
	if _, err := fx.service.AddItem(context.Background(), "1", 2); err != nil {
		t.Fatal(err)
	}
	gateway := &paymentstest.FakeGateway{}
	svc, _ := newCheckoutFixture(t, gateway, fx.service)

	if _, err := svc.CreateSession(context.Background(), CreateSessionCommand{Amount: 8000}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	req := gateway.LastRequest()
	if len(req.LineItems) != 2 || req.LineItems[0].UnitAmount != 4000 || req.LineItems[0].Quantity != 2 {
		t.Fatalf("expected cart line plus shipping, got %+v", req.LineItems)
	}
	if !strings.HasPrefix(req.SuccessURL, "http://localhost:3000/payment-success") {
		t.Fatalf("expected default origin, got %s", req.SuccessURL)
	}
	if !strings.HasPrefix(req.IdempotencyKey, "checkout-") {
		t.Fatalf("expected generated idempotency key, got %q", req.IdempotencyKey)
	}
}

func TestCheckoutService_GatewayFailure(t *testing.T) {
	gateway := &paymentstest.FakeGateway{CreateErr: errors.New("card_declined")}
	svc, metrics := newCheckoutFixture(t, gateway, nil)

	_, err := svc.CreateSession(context.Background(), CreateSessionCommand{
		Amount: 5000,
		Items:  []CartItem{{Title: "Ion", Price: 4000, Quantity: 1}},
	})
	if !errors.Is(err, ErrPaymentGateway) {
		t.Fatalf("expected ErrPaymentGateway, got %v", err)
	}
	if gateway.Calls() != 1 {
		t.Fatalf("expected exactly one attempt, got %d", gateway.Calls())
	}
	if metrics.sessions["gateway_error"] != 1 {
		t.Fatalf("unexpected metrics %v", metrics.sessions)
	}
}

func TestCheckoutService_GatewayTimeout(t *testing.T) {
	gateway := &paymentstest.FakeGateway{Block: make(chan struct{})}
	defer close(gateway.Block)

	svc, err := NewCheckoutService(CheckoutServiceDeps{
		Gateway: gateway,
		Settings: CheckoutSettings{
			Currency:       "ron",
			GatewayTimeout: 20 * time.Millisecond,
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	started := time.Now()
	_, err = svc.CreateSession(context.Background(), CreateSessionCommand{
		Amount: 5000,
		Items:  []CartItem{{Title: "Ion", Price: 4000, Quantity: 1}},
	})
	if !errors.Is(err, ErrPaymentGateway) {
		t.Fatalf("expected ErrPaymentGateway, got %v", err)
	}
	if elapsed := time.Since(started); elapsed > 2*time.Second {
		t.Fatalf("gateway call not bounded, took %s", elapsed)
	}
}

func TestCheckoutService_SessionStatus(t *testing.T) {
	gateway := &paymentstest.FakeGateway{Statuses: map[string]domain.CheckoutSessionStatus{
		"cs_paid": {PaymentStatus: "paid", Status: domain.PaymentStatusPaid, AmountTotal: 9999, Currency: "ron"},
	}}
	svc, _ := newCheckoutFixture(t, gateway, nil)
	ctx := context.Background()

	status, err := svc.SessionStatus(ctx, "cs_paid")
	if err != nil {
		t.Fatalf("SessionStatus: %v", err)
	}
	if status.SessionID != "cs_paid" || status.PaymentStatus != "paid" || status.Status != domain.PaymentStatusPaid {
		t.Fatalf("unexpected status %+v", status)
	}

	if _, err := svc.SessionStatus(ctx, " "); !errors.Is(err, ErrInvalidSessionID) {
		t.Fatalf("expected ErrInvalidSessionID, got %v", err)
	}
	if _, err := svc.SessionStatus(ctx, "cs_unknown"); !errors.Is(err, ErrPaymentGateway) {
		t.Fatalf("expected ErrPaymentGateway, got %v", err)
	}
}

func TestNewCheckoutServiceValidation(t *testing.T) {
	if _, err := NewCheckoutService(CheckoutServiceDeps{Settings: CheckoutSettings{Currency: "ron"}}); err == nil {
		t.Fatal("expected error without gateway")
	}
	if _, err := NewCheckoutService(CheckoutServiceDeps{Gateway: &paymentstest.FakeGateway{}}); err == nil {
		t.Fatal("expected error without currency")
	}
}
