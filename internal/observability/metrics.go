// Package observability registers the Prometheus metrics for the wind model
// and the Monte Carlo engine.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the simulation
// service.
type Metrics struct {
	Rollouts           *prometheus.CounterVec // labels: result={completed,discarded}
	Simulations        *prometheus.CounterVec // labels: outcome={ok,insufficient_rollouts,invalid_request}
	SimulationDuration prometheus.Histogram
	FitDuration        prometheus.Histogram
	ModelSamples       prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus
// registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Rollouts,
		m.Simulations,
		m.SimulationDuration,
		m.FitDuration,
		m.ModelSamples,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Rollouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "driftcast",
			Name:      "rollouts_total",
			Help:      "Monte Carlo rollouts by result.",
		}, []string{"result"}),
		Simulations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "driftcast",
			Name:      "simulations_total",
			Help:      "Simulation requests by outcome.",
		}, []string{"outcome"}),
		SimulationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "driftcast",
			Name:      "simulation_duration_seconds",
			Help:      "Wall-clock duration of a complete simulate() call.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		FitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "driftcast",
			Name:      "windfield_fit_duration_seconds",
			Help:      "Duration of a wind-field model fit.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		ModelSamples: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "driftcast",
			Name:      "windfield_model_samples",
			Help:      "Number of wind samples in the currently fitted model.",
		}),
	}
}
