package prometheus

import (
	"context"
	"fmt"

	"github.com/fluxionlab/fsmkit/pkg/machine"
)

// Observer feeds machine notifications into Prometheus metrics.
// Register it on a machine with machine.WithObserver or AddObserver.
type Observer[S comparable] struct {
	machineID string
	metrics   *Metrics
}

// NewObserver creates a metrics observer. A nil metrics collection
// falls back to the global one.
func NewObserver[S comparable](machineID string, m *Metrics) *Observer[S] {
	if m == nil {
		m = GetMetrics()
	}
	return &Observer[S]{machineID: machineID, metrics: m}
}

func (o *Observer[S]) OnStateChanged(ctx context.Context, change machine.Change[S]) {
	from := ""
	if change.HasFrom {
		from = fmt.Sprint(change.From)
		o.metrics.TimeInState.WithLabelValues(o.machineID, from).Observe(change.Elapsed)
	}
	o.metrics.TransitionsTotal.WithLabelValues(o.machineID, from, fmt.Sprint(change.To)).Inc()
}

func (o *Observer[S]) OnTransitionTriggered(ctx context.Context, rule *machine.TransitionRule[S]) {
	// The applied change is already counted by OnStateChanged.
}

func (o *Observer[S]) OnStateTimeout(ctx context.Context, id S) {
	o.metrics.TimeoutsTotal.WithLabelValues(o.machineID, fmt.Sprint(id)).Inc()
}

func (o *Observer[S]) OnTimeoutBlocked(ctx context.Context, id S) {
	o.metrics.TimeoutsBlockedTotal.WithLabelValues(o.machineID, fmt.Sprint(id)).Inc()
}

func (o *Observer[S]) OnError(ctx context.Context, err error) {
	code := "unknown"
	if e, ok := err.(*machine.Error); ok {
		code = e.Code.String()
	}
	o.metrics.ErrorsTotal.WithLabelValues(o.machineID, code).Inc()
}
