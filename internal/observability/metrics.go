package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the Prometheus metrics for the gateway.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	unresolvedTotal *prometheus.CounterVec
	upstreamFailed  *prometheus.CounterVec
	fallbackHits    *prometheus.CounterVec
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agrilink_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agrilink_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	unresolved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agrilink_payout_unresolved_total",
		Help: "Wage records skipped because their entity reference did not resolve.",
	}, []string{"type"})
	upstream := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agrilink_upstream_fetch_failures_total",
		Help: "Upstream source fetches that degraded to an empty collection.",
	}, []string{"source"})
	fallback := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agrilink_paidmark_fallback_hits_total",
		Help: "Rows reported Paid from the fallback mark store alone.",
	}, []string{"type"})
	registry.MustRegister(requests, duration, unresolved, upstream, fallback)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		unresolvedTotal: unresolved,
		upstreamFailed:  upstream,
		fallbackHits:    fallback,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveUnresolved counts wage records dropped by entity resolution.
func (m *Metrics) ObserveUnresolved(entityType string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.unresolvedTotal.WithLabelValues(entityType).Add(float64(n))
}

// ObserveUpstreamFailure counts one degraded source fetch.
func (m *Metrics) ObserveUpstreamFailure(source string) {
	if m == nil {
		return
	}
	m.upstreamFailed.WithLabelValues(source).Inc()
}

// ObserveFallbackHit counts rows marked Paid only by the fallback store.
func (m *Metrics) ObserveFallbackHit(entityType string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.fallbackHits.WithLabelValues(entityType).Add(float64(n))
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
