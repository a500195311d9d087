// Package metrics exposes Prometheus counters for extraction outcomes and
// generation calls on a private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"updatestracker/internal/domain"
)

const namespace = "updatestracker"

// Fallback reasons that are a choice rather than a failure are not counted
// as fallbacks.
var notFallbacks = map[string]bool{"": true, "disabled": true}

type Metrics struct {
	registry *prometheus.Registry

	Extractions        *prometheus.CounterVec
	Fallbacks          *prometheus.CounterVec
	GenerationDuration prometheus.Histogram
	GenerationAttempts *prometheus.CounterVec
	ReportsCommitted   prometheus.Counter
}

// New registers every collector on a fresh registry, so several instances
// can coexist in one process.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Extractions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Extractions by the method that produced the result",
		}, []string{"method"}),
		Fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Rule-based fallbacks by reason",
		}, []string{"reason"}),
		GenerationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Wall-clock time of generation attempts, successful or not",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 90},
		}),
		GenerationAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_attempts_total",
			Help:      "Provider calls by provider and outcome, retries included",
		}, []string{"provider", "outcome"}),
		ReportsCommitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_committed_total",
			Help:      "Reports persisted",
		}),
	}
}

// ObserveExtraction records one extraction. generation is zero when no
// generation was attempted.
func (m *Metrics) ObserveExtraction(method domain.Method, fallbackReason string, generation time.Duration) {
	m.Extractions.WithLabelValues(string(method)).Inc()
	if method == domain.MethodRuleBased && !notFallbacks[fallbackReason] {
		m.Fallbacks.WithLabelValues(fallbackReason).Inc()
	}
	if generation > 0 {
		m.GenerationDuration.Observe(generation.Seconds())
	}
}

// ObserveAttempt records a single provider call.
func (m *Metrics) ObserveAttempt(provider, outcome string) {
	m.GenerationAttempts.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) ObserveCommit() {
	m.ReportsCommitted.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
