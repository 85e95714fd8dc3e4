package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hanko-field/bookstore/internal/platform/observability"
)

const namespace = "bookstore"

// Registry owns the Prometheus collectors exported by the API.
type Registry struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	latency          *prometheus.HistogramVec
	cartMutations    *prometheus.CounterVec
	checkoutSessions *prometheus.CounterVec
	gatewayLatency   *prometheus.HistogramVec
	catalogReads     *prometheus.CounterVec
}

// NewRegistry registers all collectors on a fresh registry together with the Go and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "mutations_total",
			Help:      "Cart mutations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		checkoutSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "sessions_total",
			Help:      "Checkout session attempts by outcome.",
		}, []string{"outcome"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "gateway_duration_ms",
			Help:      "Payment gateway call latency in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"call"}),
		catalogReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "reads_total",
			Help:      "Catalog reads by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.requests,
		r.latency,
		r.cartMutations,
		r.checkoutSessions,
		r.gatewayLatency,
		r.catalogReads,
	)
	return r
}

// Handler exposes the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Middleware records request counts and latency keyed by the matched route pattern.
func (r *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, req)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := observability.RoutePattern(req)
		r.requests.WithLabelValues(route, req.Method, strconv.Itoa(status)).Inc()
		r.latency.WithLabelValues(route).Observe(float64(time.Since(start).Microseconds()) / 1000)
	})
}

// CartMutation counts a cart mutation.
func (r *Registry) CartMutation(operation, outcome string) {
	r.cartMutations.WithLabelValues(operation, outcome).Inc()
}

// CheckoutSession counts a checkout session attempt.
func (r *Registry) CheckoutSession(outcome string) {
	r.checkoutSessions.WithLabelValues(outcome).Inc()
}

// GatewayCall records the latency of a payment gateway call.
func (r *Registry) GatewayCall(call string, d time.Duration) {
	r.gatewayLatency.WithLabelValues(call).Observe(float64(d.Microseconds()) / 1000)
}

// CatalogRead counts a catalog read.
func (r *Registry) CatalogRead(outcome string) {
	r.catalogReads.WithLabelValues(outcome).Inc()
}
