package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	domain "github.com/hanko-field/bookstore/internal/domain"
	"github.com/hanko-field/bookstore/internal/payments"
	"github.com/hanko-field/bookstore/internal/platform/requestctx"
)

const (
	defaultGatewayTimeout = 10 * time.Second
	checkoutSessionToken  = "{CHECKOUT_SESSION_ID}"
)

// CheckoutSettings are the merchant constants applied to every session.
type CheckoutSettings struct {
	Currency            string
	ShippingName        string
	ShippingDescription string
	ShippingAmount      int64
	MinimumAmount       int64
	DefaultOrigin       string
	GatewayTimeout      time.Duration
}

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Gateway  payments.Gateway
	Cart     CartService
	Settings CheckoutSettings
	Logger   Logger
	Metrics  MetricsRecorder
	Clock    func() time.Time
}

type checkoutService struct {
	gateway  payments.Gateway
	cart     CartService
	settings CheckoutSettings
	logger   Logger
	metrics  MetricsRecorder
	now      func() time.Time
}

var _ CheckoutService = (*checkoutService)(nil)

func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Gateway == nil {
		return nil, errors.New("checkout service: payment gateway is required")
	}
	settings := deps.Settings
	settings.Currency = strings.ToLower(strings.TrimSpace(settings.Currency))
	if settings.Currency == "" {
		return nil, errors.New("checkout service: currency is required")
	}
	if settings.MinimumAmount <= 0 {
		settings.MinimumAmount = 100
	}
	if settings.GatewayTimeout <= 0 {
		settings.GatewayTimeout = defaultGatewayTimeout
	}
	settings.DefaultOrigin = strings.TrimRight(strings.TrimSpace(settings.DefaultOrigin), "/")

	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &checkoutService{
		gateway:  deps.Gateway,
		cart:     deps.Cart,
		settings: settings,
		logger:   logger,
		metrics:  deps.Metrics,
		now:      clock,
	}, nil
}

// CreateSession opens a hosted checkout page. The gateway is called once with a bounded
// timeout; the cart lock is never held during the call.
func (s *checkoutService) CreateSession(ctx context.Context, cmd CreateSessionCommand) (CheckoutSession, error) {
	if cmd.Amount < s.settings.MinimumAmount {
		s.recordSession("invalid_amount")
		return CheckoutSession{}, ErrInvalidAmount
	}

	items := cmd.Items
	if len(items) == 0 && s.cart != nil {
		items = s.cart.Snapshot(ctx).Items
	}

	origin := strings.TrimRight(strings.TrimSpace(cmd.Origin), "/")
	if origin == "" {
		origin = s.settings.DefaultOrigin
	}

	// Each attempt without a client key still gets its own provider key.
	idempotencyKey := requestctx.IdempotencyKey(ctx)
	if idempotencyKey == "" {
		idempotencyKey = "checkout-" + uuid.NewString()
	}

	req := domain.CheckoutSessionRequest{
		Currency:       s.settings.Currency,
		LineItems:      s.lineItems(items),
		SuccessURL:     origin + "/payment-success?session_id=" + checkoutSessionToken + "&clear_cart=true",
		CancelURL:      origin + "/",
		Metadata:       map[string]string{"order_type": "book_store"},
		IdempotencyKey: idempotencyKey,
	}

	callCtx, cancel := context.WithTimeout(ctx, s.settings.GatewayTimeout)
	defer cancel()

	started := s.now()
	session, err := s.gateway.CreateSession(callCtx, req)
	s.recordCall("create_session", started)
	if err != nil {
		s.logger(ctx, "checkout.session_failed", map[string]any{
			"error":     err.Error(),
			"lineItems": len(req.LineItems),
			"amount":    cmd.Amount,
		})
		s.recordSession("gateway_error")
		return CheckoutSession{}, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}

	s.logger(ctx, "checkout.session_created", map[string]any{"sessionId": session.ID, "lineItems": len(req.LineItems)})
	s.recordSession("ok")
	return session, nil
}

func (s *checkoutService) SessionStatus(ctx context.Context, sessionID string) (CheckoutSessionStatus, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return CheckoutSessionStatus{}, ErrInvalidSessionID
	}

	callCtx, cancel := context.WithTimeout(ctx, s.settings.GatewayTimeout)
	defer cancel()

	started := s.now()
	status, err := s.gateway.GetStatus(callCtx, sessionID)
	s.recordCall("get_status", started)
	if err != nil {
		s.logger(ctx, "checkout.status_failed", map[string]any{"sessionId": sessionID, "error": err.Error()})
		return CheckoutSessionStatus{}, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}
	if status.SessionID == "" {
		status.SessionID = sessionID
	}
	return status, nil
}

// lineItems maps cart lines one to one and appends the shipping line.
func (s *checkoutService) lineItems(items []CartItem) []domain.CheckoutLineItem {
	lines := make([]domain.CheckoutLineItem, 0, len(items)+1)
	for _, item := range items {
		if item.Quantity <= 0 || item.Price < 0 {
			continue
		}
		line := domain.CheckoutLineItem{
			Name:       item.Title,
			UnitAmount: item.Price,
			Quantity:   int64(item.Quantity),
			ImageURL:   strings.TrimSpace(item.ImageURL),
		}
		if author := strings.TrimSpace(item.Author); author != "" {
			line.Description = "by " + author
		}
		lines = append(lines, line)
	}
	if s.settings.ShippingAmount > 0 {
		lines = append(lines, domain.CheckoutLineItem{
			Name:        s.settings.ShippingName,
			Description: s.settings.ShippingDescription,
			UnitAmount:  s.settings.ShippingAmount,
			Quantity:    1,
		})
	}
	return lines
}

func (s *checkoutService) recordSession(outcome string) {
	if s.metrics != nil {
		s.metrics.CheckoutSession(outcome)
	}
}

func (s *checkoutService) recordCall(call string, started time.Time) {
	if s.metrics != nil {
		s.metrics.GatewayCall(call, s.now().Sub(started))
	}
}
