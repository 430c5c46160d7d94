package tracing

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/fluxionlab/fsmkit/pkg/core"
	"github.com/fluxionlab/fsmkit/pkg/machine"
)

func newRecordingProvider() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	recorder := tracetest.NewSpanRecorder()
	return recorder, sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
}

func TestObserver_EmitsTransitionSpans(t *testing.T) {
	recorder, tp := newRecordingProvider()
	m := machine.NewMachine[string](
		machine.WithLogger[string](core.NewNopLogger()),
		machine.WithObserver[string](NewObserver[string]("light", tp)),
	)
	ctx := context.Background()

	m.AddState("red")
	m.AddState("green")
	m.Start(ctx)
	m.TryChangeState(ctx, "green")

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("Expected 2 spans (start entry + change), got %d", len(spans))
	}

	span := spans[1]
	if span.Name() != "fsm.transition" {
		t.Errorf("Unexpected span name %q", span.Name())
	}
	attrs := make(map[string]string)
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs["fsm.machine"] != "light" || attrs["fsm.from"] != "red" || attrs["fsm.to"] != "green" {
		t.Errorf("Unexpected span attributes: %v", attrs)
	}
}

func TestObserver_EmitsTimeoutSpans(t *testing.T) {
	recorder, tp := newRecordingProvider()
	m := machine.NewMachine[string](
		machine.WithLogger[string](core.NewNopLogger()),
		machine.WithObserver[string](NewObserver[string]("light", tp)),
	)
	ctx := context.Background()

	m.AddState("red").WithTimeout(1.0, "green")
	m.AddState("green")
	m.Start(ctx)
	m.Process(ctx, machine.ProcessUpdate, 1.5)

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	found := false
	for _, name := range names {
		if name == "fsm.timeout" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected an fsm.timeout span, got %v", names)
	}
}

func TestInitialize_InstallsGlobalProvider(t *testing.T) {
	shutdown, err := Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}
