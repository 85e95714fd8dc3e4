package handlers

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hanko-field/bookstore/internal/platform/httpx"
	"github.com/hanko-field/bookstore/internal/repositories/records"
	"github.com/hanko-field/bookstore/internal/services"
)

const maxCartBodySize = 16 * 1024

// CartHandlers exposes the singleton cart.
type CartHandlers struct {
	carts services.CartService
}

func NewCartHandlers(carts services.CartService) *CartHandlers {
	return &CartHandlers{carts: carts}
}

// Routes wires the /cart endpoints and the legacy /clear-cart alias onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/cart", h.getCart)
	r.Post("/cart", h.addItem)
	r.Post("/cart/clear", h.clearCart)
	r.Delete("/cart/{productId}", h.removeItem)
	r.Post("/clear-cart", h.clearCart)
}

type cartResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Cart    cartPayload `json:"cart"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type addItemRequest struct {
	ProductID records.ID   `json:"productId"`
	Quantity  *json.Number `json:"quantity"`
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	cart := h.carts.ViewCart(r.Context())
	setCartResponseHeaders(w, cart)
	httpx.WriteJSON(w, http.StatusOK, cartResponse{Success: true, Cart: buildCartPayload(cart)})
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(w, r) {
		return
	}

	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	productID, quantity, err := parseAddItemRequest(body)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	cart, err := h.carts.AddItem(ctx, productID, quantity)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	setCartResponseHeaders(w, cart)
	httpx.WriteJSON(w, http.StatusOK, cartResponse{Success: true, Message: "product added to cart", Cart: buildCartPayload(cart)})
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(w, r) {
		return
	}
	cart, err := h.carts.RemoveItem(ctx, chi.URLParam(r, "productId"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	setCartResponseHeaders(w, cart)
	httpx.WriteJSON(w, http.StatusOK, cartResponse{Success: true, Message: "product removed from cart", Cart: buildCartPayload(cart)})
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(w, r) {
		return
	}
	if err := h.carts.ClearCart(ctx); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Success: true, Message: "cart cleared"})
}

func (h *CartHandlers) available(w http.ResponseWriter, r *http.Request) bool {
	if h.carts != nil {
		return true
	}
	httpx.WriteError(r.Context(), w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
	return false
}

// parseAddItemRequest accepts numeric or string product ids. An absent quantity means one.
func parseAddItemRequest(body []byte) (string, int, error) {
	var req addItemRequest
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return "", 0, errors.New("request body must be a JSON object with productId")
	}

	productID := strings.TrimSpace(string(req.ProductID))
	if productID == "" {
		return "", 0, errors.New("productId is required")
	}
	if req.Quantity == nil {
		return productID, 1, nil
	}
	quantity, err := req.Quantity.Int64()
	if err != nil || quantity < 0 || quantity > 1_000_000 {
		return "", 0, errors.New("quantity must be a positive integer")
	}
	return productID, int(quantity), nil
}

func setCartResponseHeaders(w http.ResponseWriter, cart services.Cart) {
	w.Header().Set("Cache-Control", "no-store, no-cache, max-age=0, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	if !cart.LastUpdated.IsZero() {
		w.Header().Set("Last-Modified", cart.LastUpdated.UTC().Format(http.TimeFormat))
	}
	if etag := buildCartETag(cart); etag != "" {
		w.Header().Set("ETag", etag)
	}
}

// buildCartETag hashes the lines and totals so identical carts share a tag.
func buildCartETag(cart services.Cart) string {
	if strings.TrimSpace(cart.ID) == "" {
		return ""
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d", cart.ID, cart.Total, cart.TotalItems)
	for _, item := range cart.Items {
		fmt.Fprintf(h, "|%s:%d:%d", item.ProductID, item.Quantity, item.Price)
	}
	return fmt.Sprintf(`W/"%s"`, hex.EncodeToString(h.Sum(nil)[:8]))
}
