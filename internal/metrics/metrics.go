// Package metrics exposes Prometheus instrumentation for counter operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alfredjeanlab/suicounter/internal/model"
)

const namespace = "counter"

// Metrics holds the collectors for one server instance.
type Metrics struct {
	registry *prometheus.Registry

	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	panels      prometheus.Gauge
	wallets     prometheus.Gauge
	rateLimited prometheus.Counter
}

// New builds a Metrics with its own registry, so tests can create many.
func New() (*Metrics, error) {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Counter operations by name and outcome kind.",
		}, []string{"operation", "kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Wall time of counter operations including the simulated confirmation delay.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 1.2, 1.5, 2, 5},
		}, []string{"operation"}),
		panels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "panels",
			Help:      "Currently mounted panels.",
		}),
		wallets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "wallet_sessions",
			Help:      "Currently connected wallet sessions.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.operations, m.duration, m.panels, m.wallets, m.rateLimited,
		prometheus.NewGoCollector(),
	} {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveOperation records the outcome and duration of one operation.
func (m *Metrics) ObserveOperation(op model.Operation, kind model.NotificationKind, d time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op.String(), string(kind)).Inc()
	m.duration.WithLabelValues(op.String()).Observe(d.Seconds())
}

// SetPanels sets the mounted panel gauge.
func (m *Metrics) SetPanels(n int) {
	if m == nil {
		return
	}
	m.panels.Set(float64(n))
}

// SetWallets sets the wallet session gauge.
func (m *Metrics) SetWallets(n int) {
	if m == nil {
		return
	}
	m.wallets.Set(float64(n))
}

// RateLimited counts a rejected request.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
