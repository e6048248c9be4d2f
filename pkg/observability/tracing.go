package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// otelTracer implements Tracer over an otel trace.Tracer. Wiring a
// concrete exporter (OTLP, stdout, etc.) is the composition root's job,
// not the core's; the core only ever talks to the trace.Tracer API.
type otelTracer struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer backed by the given otel trace.Tracer.
func NewTracer(tracer trace.Tracer) Tracer {
	return &otelTracer{tracer: tracer}
}

// Start begins a new span named name.
func (t *otelTracer) Start(ctx context.Context, name string) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

// End ends the span.
func (s *otelSpan) End() { s.span.End() }

// SetAttribute attaches a single key/value attribute to the span, best
// effort stringifying value.
func (s *otelSpan) SetAttribute(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, toString(v)))
	}
}

// RecordError records err on the span and marks its status as errored.
func (s *otelSpan) RecordError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func toString(v interface{}) string {
	type stringer interface{ String() string }
	if s, ok := v.(stringer); ok {
		return s.String()
	}
	return ""
}

// noopTracer and noopSpan let callers avoid a nil check when tracing is
// disabled.
type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, name string) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End()                               {}
func (noopSpan) SetAttribute(string, interface{})   {}
func (noopSpan) RecordError(error)                  {}

// NewNoopTracer creates a Tracer that discards everything.
func NewNoopTracer() Tracer {
	return noopTracer{}
}
