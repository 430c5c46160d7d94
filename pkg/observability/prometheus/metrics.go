// Package prometheus exposes machine activity as Prometheus metrics.
package prometheus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DefaultRegistry is the default Prometheus registry.
	DefaultRegistry = prometheus.NewRegistry()

	// DefaultRegisterer is the default Prometheus registerer.
	DefaultRegisterer = prometheus.WrapRegistererWith(prometheus.Labels{"service": "fsmkit"}, DefaultRegistry)

	metricsOnce sync.Once
	metrics     *Metrics
)

// Metrics holds all machine metrics.
type Metrics struct {
	// TransitionsTotal counts applied state changes per edge.
	TransitionsTotal *prometheus.CounterVec

	// TimeoutsTotal counts automatic timeout transitions.
	TimeoutsTotal *prometheus.CounterVec

	// TimeoutsBlockedTotal counts timeouts held back by a full lock.
	// Retried every qualifying tick, so this grows while blocked.
	TimeoutsBlockedTotal *prometheus.CounterVec

	// ErrorsTotal counts reported engine errors by code.
	ErrorsTotal *prometheus.CounterVec

	// TimeInState observes seconds spent in a state when it is exited.
	TimeInState *prometheus.HistogramVec
}

// GetMetrics returns the global metrics instance.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics(DefaultRegisterer)
	})
	return metrics
}

// NewMetrics creates a metrics collection registered on the given
// registerer. A nil registerer falls back to the default.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = DefaultRegisterer
	}

	return &Metrics{
		TransitionsTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsmkit_transitions_total",
				Help: "Total number of applied state changes",
			},
			[]string{"machine", "from", "to"},
		),
		TimeoutsTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsmkit_timeouts_total",
				Help: "Total number of state timeouts that fired",
			},
			[]string{"machine", "state"},
		),
		TimeoutsBlockedTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsmkit_timeouts_blocked_total",
				Help: "Total number of state timeouts blocked by a lock",
			},
			[]string{"machine", "state"},
		),
		ErrorsTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsmkit_errors_total",
				Help: "Total number of reported machine errors",
			},
			[]string{"machine", "code"},
		),
		TimeInState: promauto.With(registerer).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fsmkit_time_in_state_seconds",
				Help:    "Seconds spent in a state, observed on exit",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10), // 10ms to ~44m
			},
			[]string{"machine", "state"},
		),
	}
}
