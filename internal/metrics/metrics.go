// Package metrics exposes Prometheus instrumentation for the conversion
// pipeline: job outcomes, provider failovers, attempt latencies and the
// live credential-state gauge.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the pipeline's Prometheus registry and instruments.
// All observe methods are safe on a nil receiver so metrics stay
// optional in tests and stripped-down deployments.
type Collector struct {
	registry *prometheus.Registry

	jobs            *prometheus.CounterVec
	failovers       *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	credentials     *prometheus.GaugeVec
}

// NewCollector builds a Collector with its own registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		jobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "converter",
			Name:      "jobs_total",
			Help:      "Conversion jobs by kind, serving provider and outcome.",
		}, []string{"kind", "provider", "outcome"}),
		failovers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "converter",
			Name:      "provider_failovers_total",
			Help:      "Times a provider's whole pool was unavailable and the job moved on.",
		}, []string{"provider"}),
		attemptDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "converter",
			Name:      "provider_attempt_duration_seconds",
			Help:      "Latency of individual provider attempts.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "outcome"}),
		credentials: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "converter",
			Name:      "credentials",
			Help:      "Credentials per provider and lifecycle state.",
		}, []string{"provider", "state"}),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveJob counts one finished job.
func (c *Collector) ObserveJob(kind, provider, outcome string) {
	if c == nil {
		return
	}
	c.jobs.WithLabelValues(kind, provider, outcome).Inc()
}

// ObserveFailover counts one exhausted-pool handoff away from provider.
func (c *Collector) ObserveFailover(provider string) {
	if c == nil {
		return
	}
	c.failovers.WithLabelValues(provider).Inc()
}

// ObserveAttempt records one provider attempt's latency.
func (c *Collector) ObserveAttempt(provider, outcome string, seconds float64) {
	if c == nil {
		return
	}
	c.attemptDuration.WithLabelValues(provider, outcome).Observe(seconds)
}

// SetCredentialStates refreshes the state gauge for one provider.
func (c *Collector) SetCredentialStates(provider string, active, exhausted, disabled int) {
	if c == nil {
		return
	}
	c.credentials.WithLabelValues(provider, "active").Set(float64(active))
	c.credentials.WithLabelValues(provider, "exhausted").Set(float64(exhausted))
	c.credentials.WithLabelValues(provider, "disabled").Set(float64(disabled))
}
