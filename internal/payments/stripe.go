package payments

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	domain "github.com/hanko-field/bookstore/internal/domain"
)

const defaultStripeTimeout = 10 * time.Second

// StripeLogger defines the logging contract for Stripe gateway operations.
type StripeLogger func(ctx context.Context, event string, fields map[string]any)

type stripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeGatewayConfig configures the StripeGateway.
type StripeGatewayConfig struct {
	APIKey string
	// APIURL overrides the Stripe endpoint, e.g. for stripe-mock.
	APIURL  string
	Timeout time.Duration
	Logger  StripeLogger

	sessions stripeSessionAPI
}

// StripeGateway creates Stripe Checkout sessions in payment mode with card as the only method.
type StripeGateway struct {
	sessions stripeSessionAPI
	logger   StripeLogger
}

var _ Gateway = (*StripeGateway)(nil)

func NewStripeGateway(cfg StripeGatewayConfig) (*StripeGateway, error) {
	sessions := cfg.sessions
	if sessions == nil {
		apiKey := strings.TrimSpace(cfg.APIKey)
		if apiKey == "" {
			return nil, errors.New("stripe: api key is required")
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultStripeTimeout
		}
		backendCfg := &stripe.BackendConfig{
			HTTPClient: &http.Client{
				Timeout:   timeout,
				Transport: otelhttp.NewTransport(http.DefaultTransport),
			},
			// Retries stay off: a failed session is reported to the caller, never replayed.
			MaxNetworkRetries: stripe.Int64(0),
		}
		if url := strings.TrimSpace(cfg.APIURL); url != "" {
			backendCfg.URL = stripe.String(strings.TrimRight(url, "/"))
		}
		sc := client.New(apiKey, stripe.NewBackendsWithConfig(backendCfg))
		sessions = sc.CheckoutSessions
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &StripeGateway{sessions: sessions, logger: logger}, nil
}

func (g *StripeGateway) CreateSession(ctx context.Context, req domain.CheckoutSessionRequest) (domain.CheckoutSession, error) {
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
	}
	params.Context = ctx
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	if len(req.Metadata) > 0 {
		params.Metadata = maps.Clone(req.Metadata)
	}

	params.LineItems = make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Description != "" {
			product.Description = stripe.String(item.Description)
		}
		if item.ImageURL != "" {
			product.Images = stripe.StringSlice([]string{item.ImageURL})
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(item.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				UnitAmount:  stripe.Int64(item.UnitAmount),
				ProductData: product,
			},
		})
	}

	session, err := g.sessions.New(params)
	if err != nil {
		return domain.CheckoutSession{}, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	g.logger(ctx, "payments.stripe.session.created", map[string]any{
		"sessionId": session.ID,
		"currency":  string(session.Currency),
		"lineItems": len(params.LineItems),
	})
	return domain.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

func (g *StripeGateway) GetStatus(ctx context.Context, sessionID string) (domain.CheckoutSessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	session, err := g.sessions.Get(sessionID, params)
	if err != nil {
		return domain.CheckoutSessionStatus{}, fmt.Errorf("stripe: get checkout session: %w", err)
	}
	paymentStatus := string(session.PaymentStatus)
	return domain.CheckoutSessionStatus{
		SessionID:     session.ID,
		PaymentStatus: paymentStatus,
		Status:        NormaliseStatus(paymentStatus, string(session.Status)),
		AmountTotal:   session.AmountTotal,
		Currency:      string(session.Currency),
	}, nil
}
