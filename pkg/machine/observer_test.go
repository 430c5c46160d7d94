package machine

import (
	"context"
	"fmt"
	"testing"

	"github.com/fluxionlab/fsmkit/pkg/core"
)

func TestObserverFuncs_NilFieldsAreNoOps(t *testing.T) {
	var o ObserverFuncs[string]
	ctx := context.Background()

	// Must not panic.
	o.OnStateChanged(ctx, Change[string]{To: "A"})
	o.OnTransitionTriggered(ctx, nil)
	o.OnStateTimeout(ctx, "A")
	o.OnTimeoutBlocked(ctx, "A")
	o.OnError(ctx, fmt.Errorf("boom"))
}

func TestObserverFuncs_Dispatch(t *testing.T) {
	var gotChange Change[string]
	var gotErr error
	o := ObserverFuncs[string]{
		StateChanged: func(ctx context.Context, change Change[string]) { gotChange = change },
		Error:        func(ctx context.Context, err error) { gotErr = err },
	}
	ctx := context.Background()

	o.OnStateChanged(ctx, Change[string]{From: "A", HasFrom: true, To: "B"})
	o.OnError(ctx, fmt.Errorf("boom"))

	if gotChange.To != "B" || gotChange.From != "A" {
		t.Errorf("Unexpected change dispatched: %+v", gotChange)
	}
	if gotErr == nil || gotErr.Error() != "boom" {
		t.Errorf("Unexpected error dispatched: %v", gotErr)
	}
}

func TestObservers_NotifiedInRegistrationOrder(t *testing.T) {
	var order []string
	mk := func(name string) Observer[string] {
		return ObserverFuncs[string]{
			StateChanged: func(ctx context.Context, change Change[string]) {
				order = append(order, name)
			},
		}
	}

	m := NewMachine[string](
		WithLogger[string](core.NewNopLogger()),
		WithObserver[string](mk("first")),
	)
	m.AddObserver(mk("second"))

	m.AddState("A")
	m.Start(context.Background())

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("Expected [first second], got %v", order)
	}
}

func TestLoggingObserver_DoesNotPanic(t *testing.T) {
	o := NewLoggingObserver[string](core.NewNopLogger())
	ctx := context.Background()

	o.OnStateChanged(ctx, Change[string]{To: "A"})
	o.OnStateChanged(ctx, Change[string]{From: "A", HasFrom: true, To: "B", Event: "go", Elapsed: 1.5})
	o.OnStateTimeout(ctx, "A")
	o.OnTimeoutBlocked(ctx, "A")
	o.OnError(ctx, fmt.Errorf("boom"))

	m := newBareMachine()
	m.AddState("A")
	m.AddState("B")
	o.OnTransitionTriggered(ctx, m.AddTransition("A", "B"))
}
