package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hanko-field/bookstore/internal/platform/httpx"
	"github.com/hanko-field/bookstore/internal/platform/requestctx"
	"github.com/hanko-field/bookstore/internal/services"
)

// writeServiceError maps service sentinels onto the error envelope. Server-side failures
// get a generic message; the cause is only logged.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	var stockErr *services.StockError
	switch {
	case errors.As(err, &stockErr):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", "insufficient stock", http.StatusBadRequest).WithDetails(map[string]any{
			"requested": stockErr.Requested,
			"available": stockErr.Available,
		}))
	case errors.Is(err, services.ErrInsufficientStock):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", "insufficient stock", http.StatusBadRequest))
	case errors.Is(err, services.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrInvalidProductID):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "productId is required", http.StatusBadRequest))
	case errors.Is(err, services.ErrInvalidQuantity):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quantity must be a positive integer", http.StatusBadRequest))
	case errors.Is(err, services.ErrInvalidAmount):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_amount", "invalid amount", http.StatusBadRequest))
	case errors.Is(err, services.ErrInvalidSessionID):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "sessionId is required", http.StatusBadRequest))
	case errors.Is(err, services.ErrPaymentGateway):
		logServerError(ctx, err)
		httpx.WriteError(ctx, w, httpx.NewError("payment_gateway_error", "payment provider request failed", http.StatusBadGateway))
	case errors.Is(err, services.ErrStorageUnavailable):
		logServerError(ctx, err)
		httpx.WriteError(ctx, w, httpx.NewError("storage_unavailable", "storage is temporarily unavailable", http.StatusServiceUnavailable))
	default:
		logServerError(ctx, err)
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal server error", http.StatusInternalServerError))
	}
}

func logServerError(ctx context.Context, err error) {
	requestctx.Logger(ctx).Error("request failed", zap.Error(err))
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}
