// Package paymentstest provides a scripted payments.Gateway for tests.
package paymentstest

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/stripe/stripe-go/v78"

	domain "github.com/hanko-field/bookstore/internal/domain"
	"github.com/hanko-field/bookstore/internal/payments"
)

// FakeGateway records every call and answers from its scripted fields.
// Zero-value sessions are filled with sequential ids. Unknown sessions answer with
// the provider's 404 resource_missing error.
type FakeGateway struct {
	mu sync.Mutex

	Session   domain.CheckoutSession
	CreateErr error
	Statuses  map[string]domain.CheckoutSessionStatus
	StatusErr error
	// Block, when set, makes CreateSession wait for the channel or the context.
	Block chan struct{}

	Requests      []domain.CheckoutSessionRequest
	StatusQueries []string
}

var _ payments.Gateway = (*FakeGateway)(nil)

func (g *FakeGateway) CreateSession(ctx context.Context, req domain.CheckoutSessionRequest) (domain.CheckoutSession, error) {
	g.mu.Lock()
	g.Requests = append(g.Requests, req)
	n := len(g.Requests)
	session, err, block := g.Session, g.CreateErr, g.Block
	g.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return domain.CheckoutSession{}, ctx.Err()
		}
	}
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	if session.ID == "" {
		session.ID = fmt.Sprintf("cs_test_%d", n)
	}
	if session.URL == "" {
		session.URL = "https://checkout.example.test/pay/" + session.ID
	}
	return session, nil
}

func (g *FakeGateway) GetStatus(_ context.Context, sessionID string) (domain.CheckoutSessionStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.StatusQueries = append(g.StatusQueries, sessionID)
	if g.StatusErr != nil {
		return domain.CheckoutSessionStatus{}, g.StatusErr
	}
	status, ok := g.Statuses[sessionID]
	if !ok {
		return domain.CheckoutSessionStatus{}, &stripe.Error{
			Type:           stripe.ErrorTypeInvalidRequest,
			Code:           stripe.ErrorCodeResourceMissing,
			HTTPStatusCode: http.StatusNotFound,
			Msg:            fmt.Sprintf("No such checkout.session: '%s'", sessionID),
		}
	}
	return status, nil
}

// Calls returns how many sessions were requested.
func (g *FakeGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Requests)
}

// LastRequest returns the most recent session request.
func (g *FakeGateway) LastRequest() domain.CheckoutSessionRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.Requests) == 0 {
		return domain.CheckoutSessionRequest{}
	}
	return g.Requests[len(g.Requests)-1]
}
