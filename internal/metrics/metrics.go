package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the weighbridge service
type Metrics struct {
	registry *prometheus.Registry

	extractionsTotal *prometheus.CounterVec
	ticketsTotal     *prometheus.CounterVec
	grossWeight      prometheus.Histogram
	requestTotal     *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

// New registers the collectors on a private registry
func New() *Metrics {
	registry := prometheus.NewRegistry()

	extractionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "weighbridge",
			Subsystem: "extraction",
			Name:      "documents_total",
			Help:      "Documents processed by source and outcome.",
		},
		[]string{"source", "outcome"},
	)
	ticketsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "weighbridge",
			Subsystem: "tickets",
			Name:      "issued_total",
			Help:      "Tickets issued by vehicle category and how the vehicle was chosen.",
		},
		[]string{"category", "selection"},
	)
	grossWeight := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "weighbridge",
			Subsystem: "tickets",
			Name:      "gross_weight_kg",
			Help:      "Distribution of calculated gross weights.",
			Buckets:   prometheus.LinearBuckets(10000, 10000, 8),
		},
	)
	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "weighbridge",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"method", "pattern", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "weighbridge",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "pattern"},
	)

	registry.MustRegister(extractionsTotal, ticketsTotal, grossWeight, requestTotal, requestDuration)

	return &Metrics{
		registry:         registry,
		extractionsTotal: extractionsTotal,
		ticketsTotal:     ticketsTotal,
		grossWeight:      grossWeight,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordExtraction counts one processed document. An empty outcome means success.
func (m *Metrics) RecordExtraction(source, outcome string) {
	if outcome == "" {
		outcome = "ok"
	}
	m.extractionsTotal.WithLabelValues(source, outcome).Inc()
}

// RecordTicket counts one issued ticket
func (m *Metrics) RecordTicket(category string, auto bool, grossWeight int) {
	selection := "manual"
	if auto {
		selection = "auto"
	}
	m.ticketsTotal.WithLabelValues(category, selection).Inc()
	m.grossWeight.Observe(float64(grossWeight))
}

// Middleware records request counts and latency. The route pattern, not
// the raw path, is used as label so ticket ids do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(recorder, r)

		pattern := r.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		m.requestTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(recorder.statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
