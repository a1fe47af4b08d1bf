// Package metrics exposes Prometheus instrumentation for the API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pizzaria"

// Metrics holds the collectors updated by the HTTP layer and the services.
type Metrics struct {
	Requests       *prometheus.CounterVec
	LatencyMS      *prometheus.HistogramVec
	Checkouts      *prometheus.CounterVec
	StatusAdvances *prometheus.CounterVec
	gatherer       prometheus.Gatherer
}

// New creates the collectors and registers them on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout session attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		StatusAdvances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_advances_total",
			Help:      "Fulfilment status advances by target status.",
		}, []string{"status"}),
		gatherer: reg,
	}

	reg.MustRegister(m.Requests, m.LatencyMS, m.Checkouts, m.StatusAdvances)
	return m
}

// NewDefault registers the collectors together with the Go runtime and
// process collectors.
func NewDefault() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return New(reg)
}

// Checkout outcomes.
const (
	OutcomeCreated          = "created"
	OutcomeReplayed         = "replayed"
	OutcomeProviderError    = "provider_error"
	OutcomePersistenceError = "persistence_error"
	OutcomeInvalid          = "invalid"
)

// ObserveCheckout counts a checkout attempt. A nil receiver is a no-op.
func (m *Metrics) ObserveCheckout(provider, outcome string) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(provider, outcome).Inc()
}

// ObserveAdvance counts a fulfilment advance. A nil receiver is a no-op.
func (m *Metrics) ObserveAdvance(status string) {
	if m == nil {
		return
	}
	m.StatusAdvances.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
