package handlers

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/hanko-field/bookstore/internal/domain"
	"github.com/hanko-field/bookstore/internal/platform/httpx"
	"github.com/hanko-field/bookstore/internal/repositories/records"
	"github.com/hanko-field/bookstore/internal/services"
)

const maxCheckoutRequestBody = 64 * 1024

// CheckoutHandlers exposes checkout session creation and status lookups.
type CheckoutHandlers struct {
	checkout    services.CheckoutService
	idempotency func(http.Handler) http.Handler
	rateLimit   func(http.Handler) http.Handler
}

// CheckoutOption customises CheckoutHandlers.
type CheckoutOption func(*CheckoutHandlers)

// WithCheckoutIdempotency guards session creation with the given middleware.
func WithCheckoutIdempotency(mw func(http.Handler) http.Handler) CheckoutOption {
	return func(h *CheckoutHandlers) { h.idempotency = mw }
}

// WithCheckoutRateLimit caps session creations per client IP. Zero disables limiting.
func WithCheckoutRateLimit(limit int, window time.Duration, clock func() time.Time) CheckoutOption {
	return func(h *CheckoutHandlers) { h.rateLimit = rateLimitMiddleware(limit, window, clock) }
}

func NewCheckoutHandlers(checkout services.CheckoutService, opts ...CheckoutOption) *CheckoutHandlers {
	h := &CheckoutHandlers{checkout: checkout}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers checkout endpoints and their legacy aliases.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	var guards []func(http.Handler) http.Handler
	if h.rateLimit != nil {
		guards = append(guards, h.rateLimit)
	}
	if h.idempotency != nil {
		guards = append(guards, h.idempotency)
	}
	create := r.With(guards...)
	create.Post("/checkout-session", h.createSession)
	create.Post("/create-checkout-session", h.createSession)

	r.Get("/checkout-session/{sessionId}/status", h.sessionStatus)
	r.Get("/check-payment-status/{sessionId}", h.sessionStatus)
}

type checkoutSessionRequest struct {
	Amount    *float64              `json:"amount"`
	CartItems []checkoutItemRequest `json:"cartItems"`
}

type checkoutItemRequest struct {
	ProductID records.ID `json:"productId"`
	ID        records.ID `json:"id"`
	Title     string     `json:"title"`
	Author    string     `json:"author"`
	Price     float64    `json:"price"`
	Quantity  int        `json:"quantity"`
	ImageURL  string     `json:"imageUrl"`
}

type checkoutSessionResponse struct {
	Success    bool   `json:"success"`
	SessionID  string `json:"sessionId"`
	SessionURL string `json:"sessionUrl"`
}

type checkoutStatusResponse struct {
	Success       bool     `json:"success"`
	SessionID     string   `json:"sessionId"`
	PaymentStatus string   `json:"paymentStatus"`
	Status        string   `json:"status"`
	AmountTotal   *float64 `json:"amountTotal,omitempty"`
	Currency      string   `json:"currency,omitempty"`
}

func (h *CheckoutHandlers) createSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxCheckoutRequestBody)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req checkoutSessionRequest
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	cmd := services.CreateSessionCommand{Origin: requestOrigin(r)}
	if req.Amount != nil && !math.IsNaN(*req.Amount) && !math.IsInf(*req.Amount, 0) {
		cmd.Amount = domain.MinorUnits(*req.Amount)
	}
	for _, item := range req.CartItems {
		id := strings.TrimSpace(string(item.ProductID))
		if id == "" {
			id = strings.TrimSpace(string(item.ID))
		}
		cmd.Items = append(cmd.Items, services.CartItem{
			ProductID: id,
			Title:     strings.TrimSpace(item.Title),
			Author:    strings.TrimSpace(item.Author),
			Price:     domain.MinorUnits(item.Price),
			Quantity:  item.Quantity,
			ImageURL:  strings.TrimSpace(item.ImageURL),
		})
	}

	session, err := h.checkout.CreateSession(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, checkoutSessionResponse{
		Success:    true,
		SessionID:  session.ID,
		SessionURL: session.URL,
	})
}

func (h *CheckoutHandlers) sessionStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}

	status, err := h.checkout.SessionStatus(ctx, chi.URLParam(r, "sessionId"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	resp := checkoutStatusResponse{
		Success:       true,
		SessionID:     status.SessionID,
		PaymentStatus: status.PaymentStatus,
		Status:        string(status.Status),
		Currency:      strings.ToUpper(status.Currency),
	}
	if status.AmountTotal > 0 {
		total := domain.MajorUnits(status.AmountTotal)
		resp.AmountTotal = &total
	}
	w.Header().Set("Cache-Control", "no-store")
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// requestOrigin prefers the Origin header and falls back to the Referer's scheme and host.
func requestOrigin(r *http.Request) string {
	if origin := strings.TrimSpace(r.Header.Get("Origin")); origin != "" && origin != "null" {
		return origin
	}
	referer := strings.TrimSpace(r.Header.Get("Referer"))
	if referer == "" {
		return ""
	}
	scheme, rest, ok := strings.Cut(referer, "://")
	if !ok {
		return ""
	}
	host, _, _ := strings.Cut(rest, "/")
	return scheme + "://" + host
}
