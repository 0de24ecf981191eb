package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer provides distributed tracing for pipeline stages. It only depends on
// the OpenTelemetry API, so the actual exporter is whatever the host process
// installed as the global provider.
type Tracer struct {
	serviceName string
	tracer      trace.Tracer
}

// NewTracer creates a new tracer instance
func NewTracer(serviceName string) *Tracer {
	return &Tracer{
		serviceName: serviceName,
		tracer:      otel.Tracer(serviceName),
	}
}

// StartStage starts a span for a named pipeline stage
func (t *Tracer) StartStage(ctx context.Context, stage string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, fmt.Sprintf("%s.%s", t.serviceName, stage))
}

// TraceStage wraps a pipeline stage with a span, recording any error
func (t *Tracer) TraceStage(ctx context.Context, stage string, fn func(context.Context) error) error {
	ctx, span := t.StartStage(ctx, stage)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}

// AddAttribute attaches a string attribute to the current span
func (t *Tracer) AddAttribute(ctx context.Context, key, value string) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String(key, value))
}

// AddCount attaches an integer attribute to the current span
func (t *Tracer) AddCount(ctx context.Context, key string, value int) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int(key, value))
}
