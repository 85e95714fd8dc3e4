// Package payments adapts hosted-checkout payment providers.
package payments

import (
	"context"
	"errors"

	domain "github.com/hanko-field/bookstore/internal/domain"
)

// Gateway opens checkout sessions and reports their payment state.
type Gateway interface {
	CreateSession(ctx context.Context, req domain.CheckoutSessionRequest) (domain.CheckoutSession, error)
	GetStatus(ctx context.Context, sessionID string) (domain.CheckoutSessionStatus, error)
}

// ErrGatewayUnavailable is returned without calling the provider while the circuit is open.
var ErrGatewayUnavailable = errors.New("payments: gateway unavailable")

// NormaliseStatus folds the provider payment status and session state into pending, paid or failed.
func NormaliseStatus(paymentStatus, sessionStatus string) domain.PaymentStatus {
	switch paymentStatus {
	case "paid", "no_payment_required":
		return domain.PaymentStatusPaid
	}
	if sessionStatus == "expired" {
		return domain.PaymentStatusFailed
	}
	return domain.PaymentStatusPending
}
