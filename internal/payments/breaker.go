package payments

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v78"

	domain "github.com/hanko-field/bookstore/internal/domain"
)

// BreakerSettings tunes the circuit breaker around a gateway.
type BreakerSettings struct {
	Name        string
	MaxFailures uint32
	OpenTimeout time.Duration
	// OnStateChange observes transitions, e.g. for logging.
	OnStateChange func(name string, from, to string)
}

// BreakerGateway fails fast with ErrGatewayUnavailable after consecutive provider failures.
// It never retries. Caller cancellations and requests the provider rejects as invalid
// (unknown session, bad parameters) do not count as provider failures.
type BreakerGateway struct {
	next    Gateway
	session *gobreaker.CircuitBreaker[domain.CheckoutSession]
	status  *gobreaker.CircuitBreaker[domain.CheckoutSessionStatus]
}

var _ Gateway = (*BreakerGateway)(nil)

func NewBreakerGateway(next Gateway, cfg BreakerSettings) *BreakerGateway {
	if cfg.Name == "" {
		cfg.Name = "payments"
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	return &BreakerGateway{
		next:    next,
		session: gobreaker.NewCircuitBreaker[domain.CheckoutSession](breakerSettings(cfg, "create_session")),
		status:  gobreaker.NewCircuitBreaker[domain.CheckoutSessionStatus](breakerSettings(cfg, "get_status")),
	}
}

func breakerSettings(cfg BreakerSettings, call string) gobreaker.Settings {
	settings := gobreaker.Settings{
		Name:        cfg.Name + "." + call,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || isRejectedRequest(err)
		},
	}
	if cfg.OnStateChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			cfg.OnStateChange(name, from.String(), to.String())
		}
	}
	return settings
}

func (g *BreakerGateway) CreateSession(ctx context.Context, req domain.CheckoutSessionRequest) (domain.CheckoutSession, error) {
	session, err := g.session.Execute(func() (domain.CheckoutSession, error) {
		return g.next.CreateSession(ctx, req)
	})
	return session, translateBreakerError(err)
}

func (g *BreakerGateway) GetStatus(ctx context.Context, sessionID string) (domain.CheckoutSessionStatus, error) {
	status, err := g.status.Execute(func() (domain.CheckoutSessionStatus, error) {
		return g.next.GetStatus(ctx, sessionID)
	})
	return status, translateBreakerError(err)
}

// State reports the session-creation breaker state for readiness checks.
func (g *BreakerGateway) State() string {
	return g.session.State().String()
}

// Ping fails while session creation is short-circuited.
func (g *BreakerGateway) Ping(context.Context) error {
	if g.session.State() == gobreaker.StateOpen {
		return ErrGatewayUnavailable
	}
	return nil
}

// isRejectedRequest reports a 4xx answer from the provider other than throttling.
func isRejectedRequest(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	code := stripeErr.HTTPStatusCode
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests
}

func translateBreakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrGatewayUnavailable
	}
	return err
}
