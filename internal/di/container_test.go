package di

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanko-field/bookstore/internal/payments/paymentstest"
	"github.com/hanko-field/bookstore/internal/platform/config"
)

const catalogFixture = `{
  "products": [
    {"id": 1, "title": "Ion", "author": "Liviu Rebreanu", "category": "Roman", "price": 45.5, "discountPrice": 39.9, "stock": 3, "isActive": true, "createdAt": "2024-01-10"},
    {"id": 2, "title": "Enigma Otiliei", "author": "George Călinescu", "category": "Roman", "price": 52, "stock": 0, "isActive": true, "createdAt": "2024-02-01"},
    {"id": 3, "title": "Retras", "author": "Anonim", "category": "Poezie", "price": 10, "stock": 9, "isActive": false, "createdAt": "2023-12-01"}
  ]
}`

func loadTestConfig(t *testing.T, env map[string]string) config.Config {
	t.Helper()
	cfg, err := config.Load(context.Background(),
		config.WithEnvFile(""),
		config.WithoutSystemEnv(),
		config.WithEnvMap(env),
	)
	require.NoError(t, err)
	return cfg
}

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "books.json")
	require.NoError(t, os.WriteFile(path, []byte(catalogFixture), 0o600))
	return path
}

func serve(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestNewContainer_FileCatalogMemoryCart(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	cfg := loadTestConfig(t, map[string]string{
		"API_CATALOG_SOURCE": "file",
		"API_CATALOG_PATH":   writeCatalog(t),
		"API_CART_STORE":     "memory",
	})
	gateway := &paymentstest.FakeGateway{}

	c, err := NewContainer(context.Background(), cfg,
		WithGateway(gateway),
		WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	h := c.Handler()

	rr := serve(t, h, http.MethodGet, "/api/products?sort=price-high", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Success  bool `json:"success"`
		Total    int  `json:"total"`
		Products []struct {
			ID    json.Number `json:"id"`
			Title string      `json:"title"`
		} `json:"products"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.True(t, list.Success)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, "Enigma Otiliei", list.Products[0].Title)

	rr = serve(t, h, http.MethodPost, "/api/cart", `{"productId": 1, "quantity": 2}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = serve(t, h, http.MethodPost, "/api/cart", `{"productId": 2}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(t, h, http.MethodPost, "/api/checkout-session", `{"amount": 99.79}`, "Idempotency-Key", "order-1")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = serve(t, h, http.MethodPost, "/api/checkout-session", `{"amount": 99.79}`, "Idempotency-Key", "order-1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "true", rr.Header().Get("X-Idempotent-Replay"))
	require.Len(t, gateway.Requests, 1)
	assert.Equal(t, int64(3990), gateway.Requests[0].LineItems[0].UnitAmount)

	rr = serve(t, h, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = serve(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `bookstore_cart_mutations_total{operation="add",outcome="ok"} 1`)
}

func TestNewContainer_SQLCatalogRedisStores(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := loadTestConfig(t, map[string]string{
		"API_CATALOG_SOURCE":    "sql",
		"API_SQL_DRIVER":        "sqlite",
		"API_SQL_DSN":           "file:di_container_test?mode=memory&cache=shared",
		"API_CART_STORE":        "redis",
		"API_IDEMPOTENCY_STORE": "redis",
		"API_REDIS_ADDR":        mr.Addr(),
		"API_METRICS_ENABLED":   "false",
	})

	c, err := NewContainer(context.Background(), cfg, WithGateway(&paymentstest.FakeGateway{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	h := c.Handler()

	rr := serve(t, h, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"total":0`)

	rr = serve(t, h, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, mr.Exists(cfg.Cart.Key))

	rr = serve(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(t, h, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestNewContainer_MissingStripeKeyDisablesCheckout(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{
		"API_CATALOG_PATH": writeCatalog(t),
		"API_CART_STORE":   "memory",
	})

	c, err := NewContainer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	rr := serve(t, c.Handler(), http.MethodPost, "/api/checkout-session", `{"amount": 10, "cartItems": [{"productId": 1, "title": "Ion", "price": 10, "quantity": 1}]}`)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "payment provider request failed")
}

func TestNewContainer_UnsupportedBackend(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{
		"API_CATALOG_PATH": writeCatalog(t),
		"API_CART_STORE":   "memory",
	})
	cfg.Cart.Store = "etcd"

	_, err := NewContainer(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported cart store "etcd"`)
}
