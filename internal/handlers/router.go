package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hanko-field/bookstore/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

type routerConfig struct {
	basePath    string
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers
	info        APIInfo
	metricsPath string
	metrics     http.Handler
	api         []RouteRegistrar
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

// APIInfo is served from GET /.
type APIInfo struct {
	Name        string
	Description string
	Version     string
}

const (
	defaultAPIPrefix  = "/api"
	defaultTimeout    = 60 * time.Second
	errorNotFoundCode = "route_not_found"
)

// NewRouter constructs the chi router with shared middleware, the root info document,
// health and metrics endpoints, and every API registrar mounted under the base path.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		basePath: defaultAPIPrefix,
		middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Timeout(defaultTimeout),
		},
		info: APIInfo{
			Name:        "Bookstore API",
			Description: "Book catalog, cart and checkout",
			Version:     "dev",
		},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()

	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(errorNotFoundCode, fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/", rootHandler(cfg.info, cfg.basePath))
	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)
	if cfg.metrics != nil {
		r.Method(http.MethodGet, cfg.metricsPath, cfg.metrics)
	}

	r.Route(cfg.basePath, func(api chi.Router) {
		for _, registrar := range cfg.api {
			if registrar != nil {
				registrar(api)
			}
		}
	})

	return r
}

// WithMiddlewares appends additional global middleware to the router.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithHealthHandlers overrides the handlers used for /healthz and /readyz endpoints.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithBasePath mounts API routes below path instead of /api.
func WithBasePath(path string) Option {
	return func(cfg *routerConfig) {
		path = strings.TrimRight(strings.TrimSpace(path), "/")
		if path == "" {
			return
		}
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		cfg.basePath = path
	}
}

// WithAPIInfo sets the document returned from GET /.
func WithAPIInfo(info APIInfo) Option {
	return func(cfg *routerConfig) {
		cfg.info = info
	}
}

// WithMetricsHandler exposes h at path outside the base path.
func WithMetricsHandler(path string, h http.Handler) Option {
	return func(cfg *routerConfig) {
		if strings.TrimSpace(path) == "" {
			path = "/metrics"
		}
		cfg.metricsPath = path
		cfg.metrics = h
	}
}

// WithAPIRoutes adds registrars mounted under the base path.
func WithAPIRoutes(reg ...RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.api = append(cfg.api, reg...)
	}
}

type apiInfoPayload struct {
	Success     bool     `json:"success"`
	Name        string   `json:"name"`
	Message     string   `json:"message"`
	Description string   `json:"description"`
	Version     string   `json:"version"`
	Endpoints   []string `json:"endpoints"`
}

func rootHandler(info APIInfo, basePath string) http.HandlerFunc {
	endpoints := []string{
		"GET " + basePath + "/products",
		"GET " + basePath + "/products/{productId}",
		"GET " + basePath + "/cart",
		"POST " + basePath + "/cart",
		"DELETE " + basePath + "/cart/{productId}",
		"POST " + basePath + "/cart/clear",
		"POST " + basePath + "/checkout-session",
		"GET " + basePath + "/checkout-session/{sessionId}/status",
	}
	payload := apiInfoPayload{
		Success:     true,
		Name:        info.Name,
		Message:     strings.TrimSpace(info.Name + " " + info.Version),
		Description: info.Description,
		Version:     info.Version,
		Endpoints:   endpoints,
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, payload)
	}
}
