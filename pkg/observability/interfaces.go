// Package observability provides the logging, metrics, and tracing
// facade every subsystem in the routing core is constructed with. The
// Logger contract mirrors the teacher lineage's observability package,
// trimmed to the methods the core actually calls; MetricsClient and
// Tracer are backed by go.opentelemetry.io/otel rather than stdlib, since
// those two concerns have a real ecosystem library available in the
// retrieved pack (see DESIGN.md for why Logger stays stdlib-backed).
package observability

import "context"

// LogLevel defines log message severity.
type LogLevel string

// Log levels, ordered from most to least verbose.
const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// Logger is the structured logging contract used throughout the core.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})

	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	// With returns a derived logger that merges fields into every
	// subsequent log call made through it.
	With(fields map[string]interface{}) Logger
}

// MetricsClient is the metrics contract used throughout the core.
type MetricsClient interface {
	IncrementCounter(name string, value float64)
	IncrementCounterWithLabels(name string, value float64, labels map[string]string)
	RecordGauge(name string, value float64, labels map[string]string)
	RecordHistogram(name string, value float64, labels map[string]string)
}

// Span is a single traced operation.
type Span interface {
	End()
	SetAttribute(key string, value interface{})
	RecordError(err error)
}

// Tracer starts spans for traced operations.
type Tracer interface {
	Start(ctx context.Context, name string) (context.Context, Span)
}
