// Package machine provides a host-agnostic, tick-driven finite state
// machine engine, generic over the state identifier type.
//
// The host owns the loop: it calls Process once per active tick
// channel per frame, and may call SendEvent, TryChangeState and the
// data-store accessors from callback bodies at any point during a
// tick. The engine itself never blocks and never spawns goroutines;
// timeouts and minimum-time gates are accumulated-elapsed-time
// comparisons checked synchronously on each tick.
//
// Example usage:
//
//	m := machine.NewMachine[string]()
//	m.AddState("idle").
//	    WithMinTime(0.2).
//	    OnEnter(func(ctx context.Context, ch machine.Change[string]) error {
//	        log.Println("entered idle")
//	        return nil
//	    })
//	m.AddState("walk")
//	m.AddTransition("idle", "walk").
//	    When(func(ctx context.Context) bool { return wantsToWalk })
//	m.Start(ctx)
//	for running {
//	    m.Process(ctx, machine.ProcessUpdate, dt)
//	}
package machine

import (
	"context"
	"fmt"
)

// ProcessMode selects which host tick channel services a state.
type ProcessMode int

const (
	// ProcessUpdate is the variable-rate tick channel.
	ProcessUpdate ProcessMode = iota
	// ProcessFixed is the fixed-rate tick channel.
	ProcessFixed
)

func (p ProcessMode) String() string {
	switch p {
	case ProcessUpdate:
		return "update"
	case ProcessFixed:
		return "fixed"
	default:
		return fmt.Sprintf("ProcessMode(%d)", int(p))
	}
}

// LockMode restricts how a state may be left.
type LockMode int

const (
	// LockNone places no restriction on leaving the state.
	LockNone LockMode = iota
	// LockTransitions blocks polled auto-transitions; timeouts and
	// forced changes still apply, and the exit handler still runs.
	LockTransitions
	// LockFull blocks every automatic exit (polled, event, timeout).
	// Only a forced change leaves the state, and without its exit
	// handler running.
	LockFull
)

func (l LockMode) String() string {
	switch l {
	case LockNone:
		return "none"
	case LockTransitions:
		return "transitions"
	case LockFull:
		return "full"
	default:
		return fmt.Sprintf("LockMode(%d)", int(l))
	}
}

// Condition is a predicate evaluated during transition resolution.
// Used both for guards (pre-checks) and conditions (trigger checks).
type Condition func(ctx context.Context) bool

// Change describes one applied state change, passed to enter and exit
// handlers and to observers.
type Change[S comparable] struct {
	// From is the exited state. Unset (HasFrom false) for the initial
	// entry performed by Start and Reset.
	From    S      `json:"from,omitempty"`
	HasFrom bool   `json:"hasFrom"`
	To      S      `json:"to"`
	// Event is the queued event name that triggered the change, empty
	// for polled, timeout and forced changes.
	Event string `json:"event,omitempty"`
	// Payload is the one-shot payload supplied via WithPayload. It
	// travels with its change request and is visible only to the
	// handlers of the change that set it, queued or not.
	Payload any `json:"-"`
	// Elapsed is the time in seconds spent in From.
	Elapsed float64 `json:"elapsed"`
}

// EnterHandler runs after a state becomes current. A returned error is
// logged and reported to observers; it never unwinds the transition.
type EnterHandler[S comparable] func(ctx context.Context, change Change[S]) error

// ExitHandler runs before a state stops being current.
type ExitHandler[S comparable] func(ctx context.Context, change Change[S]) error

// UpdateHandler runs once per serviced tick, before transition
// resolution, with the tick's delta time in seconds.
type UpdateHandler func(ctx context.Context, dt float64)

// TimeoutHandler runs when a state's timeout elapses, before the
// automatic transition to the timeout target.
type TimeoutHandler[S comparable] func(ctx context.Context, id S)

// TriggeredHandler runs after the transition it is attached to has
// been applied.
type TriggeredHandler func(ctx context.Context)

// EventListener is invoked when its event name is drained from the
// queue, before event-driven transitions are evaluated.
type EventListener func(ctx context.Context, event string)

// ErrorCode classifies engine errors reported to the logging sink and
// to Observer.OnError.
type ErrorCode int

const (
	// ErrUnknownState means an operation referenced an unregistered
	// state id. The operation is a no-op.
	ErrUnknownState ErrorCode = iota
	// ErrDuplicateState means AddState was called for an existing id.
	// The existing definition is returned unchanged.
	ErrDuplicateState
	// ErrQueueOverflow means the pending-transition queue was at
	// capacity and the nested change request was dropped.
	ErrQueueOverflow
	// ErrInvalidArgument means an empty event name, data key or nil
	// callback was supplied. The operation is a no-op.
	ErrInvalidArgument
	// ErrMissingTimeoutTarget means a timeout elapsed but its target
	// state is unset or unregistered.
	ErrMissingTimeoutTarget
	// ErrHandlerFailed means an enter or exit handler returned an
	// error. The transition still completes.
	ErrHandlerFailed
	// ErrNotStarted means Start or Reset was called with no initial
	// state configured.
	ErrNotStarted
)

func (c ErrorCode) String() string {
	switch c {
	case ErrUnknownState:
		return "unknown_state"
	case ErrDuplicateState:
		return "duplicate_state"
	case ErrQueueOverflow:
		return "queue_overflow"
	case ErrInvalidArgument:
		return "invalid_argument"
	case ErrMissingTimeoutTarget:
		return "missing_timeout_target"
	case ErrHandlerFailed:
		return "handler_failed"
	case ErrNotStarted:
		return "not_started"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// Error is the engine error value handed to the logging sink and to
// Observer.OnError. The engine itself never returns it from mutating
// calls; those report failure through falsy results.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
