package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/hanko-field/bookstore/internal/domain"
	"github.com/hanko-field/bookstore/internal/platform/httpx"
	"github.com/hanko-field/bookstore/internal/services"
)

// ProductHandlers exposes the public catalog.
type ProductHandlers struct {
	catalog services.CatalogService
}

func NewProductHandlers(catalog services.CatalogService) *ProductHandlers {
	return &ProductHandlers{catalog: catalog}
}

// Routes registers /products endpoints.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.listProducts)
	r.Get("/products/{productId}", h.getProduct)
}

type productListResponse struct {
	Success  bool             `json:"success"`
	Products []productPayload `json:"products"`
	Total    int              `json:"total"`
	Filters  map[string]any   `json:"filters"`
}

type productResponse struct {
	Success bool           `json:"success"`
	Product productPayload `json:"product"`
}

func (h *ProductHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	query, filters, err := parseProductQuery(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	products := h.catalog.Query(ctx, query)
	httpx.WriteJSON(w, http.StatusOK, productListResponse{
		Success:  true,
		Products: buildProductPayloads(products),
		Total:    len(products),
		Filters:  filters,
	})
}

func (h *ProductHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	product, err := h.catalog.FindActive(ctx, chi.URLParam(r, "productId"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, productResponse{Success: true, Product: buildProductPayload(product)})
}

type queryError string

func (e queryError) Error() string { return string(e) }

// parseProductQuery builds the facade query and the filters echo. category, search and sort
// are always echoed (null when absent); the remaining filters only when supplied.
func parseProductQuery(r *http.Request) (services.ProductQuery, map[string]any, error) {
	values := r.URL.Query()
	query := services.ProductQuery{
		Category:     strings.TrimSpace(values.Get("category")),
		Search:       strings.TrimSpace(values.Get("search")),
		Sort:         domain.ProductSort(strings.TrimSpace(values.Get("sort"))),
		InStockOnly:  parseBoolQuery(values.Get("inStock")),
		FeaturedOnly: parseBoolQuery(values.Get("featured")),
	}

	filters := map[string]any{
		"category": nullable(query.Category),
		"search":   nullable(query.Search),
		"sort":     nullable(string(query.Sort)),
	}

	for _, bound := range []struct {
		key    string
		target **int64
	}{
		{"minPrice", &query.MinPrice},
		{"maxPrice", &query.MaxPrice},
	} {
		raw := strings.TrimSpace(values.Get(bound.key))
		if raw == "" {
			continue
		}
		minor, err := domain.ParseMajorUnits(raw)
		if err != nil || minor < 0 {
			return services.ProductQuery{}, nil, queryError(bound.key + " must be a non-negative number")
		}
		*bound.target = &minor
		filters[bound.key] = domain.MajorUnits(minor)
	}
	if query.InStockOnly {
		filters["inStock"] = true
	}
	if query.FeaturedOnly {
		filters["featured"] = true
	}
	return query, filters, nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}
