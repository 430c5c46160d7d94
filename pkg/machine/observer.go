package machine

import (
	"context"

	"github.com/fluxionlab/fsmkit/pkg/core"
)

// Observer receives engine notifications. Observers are invoked
// synchronously, on the host's tick thread, in registration order.
type Observer[S comparable] interface {
	// OnStateChanged fires after a state change has fully applied:
	// exit handler run, registries updated, enter handler run.
	OnStateChanged(ctx context.Context, change Change[S])

	// OnTransitionTriggered fires when an automatic (polled or
	// event-driven) rule wins evaluation, after its change applied.
	OnTransitionTriggered(ctx context.Context, rule *TransitionRule[S])

	// OnStateTimeout fires when a state's timeout elapses and its
	// automatic transition is about to apply.
	OnStateTimeout(ctx context.Context, id S)

	// OnTimeoutBlocked fires instead of OnStateTimeout when the timed
	// out state is fully locked. Retried every qualifying tick.
	OnTimeoutBlocked(ctx context.Context, id S)

	// OnError receives engine errors: handler failures, queue
	// overflow, structural violations.
	OnError(ctx context.Context, err error)
}

// ObserverFuncs adapts plain functions to the Observer interface.
// Nil fields are no-ops.
type ObserverFuncs[S comparable] struct {
	StateChanged        func(ctx context.Context, change Change[S])
	TransitionTriggered func(ctx context.Context, rule *TransitionRule[S])
	StateTimeout        func(ctx context.Context, id S)
	TimeoutBlocked      func(ctx context.Context, id S)
	Error               func(ctx context.Context, err error)
}

func (o ObserverFuncs[S]) OnStateChanged(ctx context.Context, change Change[S]) {
	if o.StateChanged != nil {
		o.StateChanged(ctx, change)
	}
}

func (o ObserverFuncs[S]) OnTransitionTriggered(ctx context.Context, rule *TransitionRule[S]) {
	if o.TransitionTriggered != nil {
		o.TransitionTriggered(ctx, rule)
	}
}

func (o ObserverFuncs[S]) OnStateTimeout(ctx context.Context, id S) {
	if o.StateTimeout != nil {
		o.StateTimeout(ctx, id)
	}
}

func (o ObserverFuncs[S]) OnTimeoutBlocked(ctx context.Context, id S) {
	if o.TimeoutBlocked != nil {
		o.TimeoutBlocked(ctx, id)
	}
}

func (o ObserverFuncs[S]) OnError(ctx context.Context, err error) {
	if o.Error != nil {
		o.Error(ctx, err)
	}
}

// LoggingObserver logs every notification through a core.Logger.
type LoggingObserver[S comparable] struct {
	logger core.Logger
}

// NewLoggingObserver creates an observer that logs all notifications.
func NewLoggingObserver[S comparable](logger core.Logger) *LoggingObserver[S] {
	return &LoggingObserver[S]{logger: logger}
}

func (o *LoggingObserver[S]) OnStateChanged(ctx context.Context, change Change[S]) {
	if change.HasFrom {
		o.logger.Infof("state changed: %v -> %v (event: %q, elapsed: %.3fs)",
			change.From, change.To, change.Event, change.Elapsed)
		return
	}
	o.logger.Infof("state entered: %v", change.To)
}

func (o *LoggingObserver[S]) OnTransitionTriggered(ctx context.Context, rule *TransitionRule[S]) {
	o.logger.Debugf("transition triggered: -> %v (priority: %d, event: %q)",
		rule.To(), rule.Priority(), rule.Event())
}

func (o *LoggingObserver[S]) OnStateTimeout(ctx context.Context, id S) {
	o.logger.Infof("state timed out: %v", id)
}

func (o *LoggingObserver[S]) OnTimeoutBlocked(ctx context.Context, id S) {
	o.logger.Warnf("state timeout blocked by lock: %v", id)
}

func (o *LoggingObserver[S]) OnError(ctx context.Context, err error) {
	o.logger.Errorf("machine error: %v", err)
}
