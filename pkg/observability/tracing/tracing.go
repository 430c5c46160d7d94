// Package tracing emits OpenTelemetry spans for machine activity.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/fluxionlab/fsmkit/pkg/machine"
)

const tracerName = "github.com/fluxionlab/fsmkit"

// Initialize installs a global tracer provider exporting to stdout.
// Returns a shutdown function to flush pending spans.
func Initialize(ctx context.Context) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Observer emits one span per applied state change and records engine
// errors on the active span.
type Observer[S comparable] struct {
	machineID string
	tracer    trace.Tracer
}

// NewObserver creates a tracing observer. A nil provider falls back to
// the globally installed one.
func NewObserver[S comparable](machineID string, tp trace.TracerProvider) *Observer[S] {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Observer[S]{
		machineID: machineID,
		tracer:    tp.Tracer(tracerName),
	}
}

func (o *Observer[S]) OnStateChanged(ctx context.Context, change machine.Change[S]) {
	// Changes apply synchronously on the host tick, so the span is
	// closed immediately; its value is the attributes and the timeline.
	_, span := o.tracer.Start(ctx, "fsm.transition")
	defer span.End()

	attrs := []attribute.KeyValue{
		attribute.String("fsm.machine", o.machineID),
		attribute.String("fsm.to", fmt.Sprint(change.To)),
		attribute.Float64("fsm.elapsed_seconds", change.Elapsed),
	}
	if change.HasFrom {
		attrs = append(attrs, attribute.String("fsm.from", fmt.Sprint(change.From)))
	}
	if change.Event != "" {
		attrs = append(attrs, attribute.String("fsm.event", change.Event))
	}
	span.SetAttributes(attrs...)
}

func (o *Observer[S]) OnTransitionTriggered(ctx context.Context, rule *machine.TransitionRule[S]) {}

func (o *Observer[S]) OnStateTimeout(ctx context.Context, id S) {
	_, span := o.tracer.Start(ctx, "fsm.timeout")
	defer span.End()
	span.SetAttributes(
		attribute.String("fsm.machine", o.machineID),
		attribute.String("fsm.state", fmt.Sprint(id)),
	)
}

func (o *Observer[S]) OnTimeoutBlocked(ctx context.Context, id S) {}

func (o *Observer[S]) OnError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
}
