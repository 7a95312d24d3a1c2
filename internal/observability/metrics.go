package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fabricflow/fabricflow/internal/ledger"
)

// Metrics collects Prometheus metrics for the HTTP API, stock movements and
// background jobs.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	stockMoves      *prometheus.CounterVec
	stockUnits      *prometheus.CounterVec
	stockRejections *prometheus.CounterVec
	jobsTotal       *prometheus.CounterVec
}

// NewMetrics initialises the registry and every collector.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fabricflow_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fabricflow_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	moves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fabricflow_stock_movements_total",
		Help: "Committed stock movements by counter and movement type.",
	}, []string{"counter", "type"})
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fabricflow_stock_units_total",
		Help: "Units moved by counter and direction.",
	}, []string{"counter", "direction"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fabricflow_stock_rejections_total",
		Help: "Adjustments refused because the counter would go negative.",
	}, []string{"counter"})
	jobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fabricflow_jobs_total",
		Help: "Background jobs processed by task type and outcome.",
	}, []string{"task", "outcome"})
	registry.MustRegister(requests, duration, moves, units, rejections, jobs)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		stockMoves:      moves,
		stockUnits:      units,
		stockRejections: rejections,
		jobsTotal:       jobs,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency.
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

// StockMoved counts a committed adjustment.
func (m *Metrics) StockMoved(counter string, movement ledger.MovementType, delta int) {
	if m == nil {
		return
	}
	m.stockMoves.WithLabelValues(counter, string(movement)).Inc()
	direction, units := "in", delta
	if delta < 0 {
		direction, units = "out", -delta
	}
	m.stockUnits.WithLabelValues(counter, direction).Add(float64(units))
}

// StockRejected counts an adjustment refused for insufficient stock.
func (m *Metrics) StockRejected(counter string) {
	if m == nil {
		return
	}
	m.stockRejections.WithLabelValues(counter).Inc()
}

// JobProcessed counts one background job run.
func (m *Metrics) JobProcessed(task string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.jobsTotal.WithLabelValues(task, outcome).Inc()
}

// Registerer exposes the registry for custom collectors.
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
