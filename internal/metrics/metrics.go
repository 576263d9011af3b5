// Package metrics defines the Prometheus collectors of the service and the
// HTTP handler that exposes them.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	OperationsTotal      *prometheus.CounterVec
	SearchLatency        prometheus.Histogram
	SearchResultsCount   prometheus.Histogram
	ReconcileTotal       *prometheus.CounterVec
	PromptsIndexed       prometheus.Gauge
}

// New creates the collectors on a dedicated registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptdeck_http_requests_total",
				Help: "HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "promptdeck_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"method", "route"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "promptdeck_http_requests_in_flight",
			Help: "HTTP requests currently being served.",
		}),
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptdeck_operations_total",
				Help: "Store operations by name and result (ok, error).",
			},
			[]string{"operation", "result"},
		),
		SearchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "promptdeck_search_latency_seconds",
			Help:    "Time spent ranking one search query.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		SearchResultsCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "promptdeck_search_results_count",
			Help:    "Results returned per search query.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		}),
		ReconcileTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptdeck_reconcile_entries_total",
				Help: "Index entries touched by reconciliation, by kind (added, removed, refreshed).",
			},
			[]string{"kind"},
		),
		PromptsIndexed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "promptdeck_prompts_indexed",
			Help: "Prompts in the index after the last load.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.OperationsTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.ReconcileTotal,
		m.PromptsIndexed,
	)
	return m
}

// Handler returns the Prometheus scrape handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveOperation counts one store operation and its outcome.
func (m *Metrics) ObserveOperation(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.OperationsTotal.WithLabelValues(op, result).Inc()
}

// ObserveSearch records one ranked query.
func (m *Metrics) ObserveSearch(d time.Duration, results int) {
	if m == nil {
		return
	}
	m.SearchLatency.Observe(d.Seconds())
	m.SearchResultsCount.Observe(float64(results))
}

// ObserveReconcile records what one reconciliation did and the resulting
// index size.
func (m *Metrics) ObserveReconcile(added, removed, refreshed, total int) {
	if m == nil {
		return
	}
	m.ReconcileTotal.WithLabelValues("added").Add(float64(added))
	m.ReconcileTotal.WithLabelValues("removed").Add(float64(removed))
	m.ReconcileTotal.WithLabelValues("refreshed").Add(float64(refreshed))
	m.PromptsIndexed.Set(float64(total))
}

// Middleware records request count, latency and the in-flight gauge. The
// route label is chi's route pattern so path parameters do not explode
// label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
