package payments

import (
	"context"

	domain "github.com/hanko-field/bookstore/internal/domain"
)

// DisabledGateway answers every call with ErrGatewayUnavailable. It is used when no provider key is configured.
type DisabledGateway struct{}

var _ Gateway = DisabledGateway{}

func (DisabledGateway) CreateSession(context.Context, domain.CheckoutSessionRequest) (domain.CheckoutSession, error) {
	return domain.CheckoutSession{}, ErrGatewayUnavailable
}

func (DisabledGateway) GetStatus(context.Context, string) (domain.CheckoutSessionStatus, error) {
	return domain.CheckoutSessionStatus{}, ErrGatewayUnavailable
}
