// Package metrics exposes Prometheus counters and histograms for
// deploy/destroy/solve duration and per-layer outcomes, collected by
// internal/orchestrator (deploy/destroy, layer outcomes) and the CLI's
// cost command (solve) and served to a scrape target
// over the handler New returns.
//
// Grounded on internal/shared/metrics/collector.go's metric-kind
// taxonomy (counter/gauge/histogram) and registration lifecycle, but
// built directly on the real client rather than that file's hand-rolled
// atomic counters — this module has an actual Prometheus scrape target
// to serve, where the teacher's collector only buffered metrics for its
// own exporters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every counter/histogram this deployer records. A nil
// *Metrics is a safe no-op receiver, the same pattern internal/notify's
// *Mailer uses, so callers that don't care about metrics never need a
// nil check of their own.
type Metrics struct {
	registry        *prometheus.Registry
	deployDuration  *prometheus.HistogramVec
	destroyDuration *prometheus.HistogramVec
	solveDuration   prometheus.Histogram
	layerOutcome    *prometheus.CounterVec
}

// New builds a Metrics collector registered against its own
// prometheus.Registry, so a caller that never serves /metrics doesn't
// pollute the global default registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		deployDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "twin2multicloud",
			Name:      "deploy_duration_seconds",
			Help:      "Duration of a full DeployAll run, by outcome.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"outcome"}),
		destroyDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "twin2multicloud",
			Name:      "destroy_duration_seconds",
			Help:      "Duration of a full DestroyAll run, by outcome.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"outcome"}),
		solveDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: "twin2multicloud",
			Name:      "cost_solve_duration_seconds",
			Help:      "Duration of one CalculateCheapestCosts solve.",
			Buckets:   prometheus.DefBuckets,
		}),
		layerOutcome: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "twin2multicloud",
			Name:      "layer_outcome_total",
			Help:      "Per-layer deploy/destroy outcomes, by layer, provider, action and outcome.",
		}, []string{"layer", "provider", "action", "outcome"}),
	}
	return m
}

// Handler serves the collector's metrics in the Prometheus exposition
// format. A nil *Metrics serves an empty registry rather than panicking,
// so wiring it into an http.ServeMux is always safe.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveDeploy records one DeployAll run's wall-clock duration.
func (m *Metrics) ObserveDeploy(seconds float64, outcome string) {
	if m == nil {
		return
	}
	m.deployDuration.WithLabelValues(outcome).Observe(seconds)
}

// ObserveDestroy records one DestroyAll run's wall-clock duration.
func (m *Metrics) ObserveDestroy(seconds float64, outcome string) {
	if m == nil {
		return
	}
	m.destroyDuration.WithLabelValues(outcome).Observe(seconds)
}

// ObserveSolve records one CalculateCheapestCosts call's duration.
func (m *Metrics) ObserveSolve(seconds float64) {
	if m == nil {
		return
	}
	m.solveDuration.Observe(seconds)
}

// RecordLayerOutcome increments the per-layer outcome counter, e.g.
// ("L1", "aws", "deploy", "success") or (..., "failed").
func (m *Metrics) RecordLayerOutcome(layer, provider, action, outcome string) {
	if m == nil {
		return
	}
	m.layerOutcome.WithLabelValues(layer, provider, action, outcome).Inc()
}
