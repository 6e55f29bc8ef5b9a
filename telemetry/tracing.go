// OpenTelemetry tracing support for protocol sessions.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry tracer with socket-specific helpers.
type Tracer struct {
	tracer trace.Tracer
}

var (
	globalTracer *Tracer
	tracerMu     sync.RWMutex
)

// SetGlobalTracer sets the global tracer instance.
func SetGlobalTracer(t *Tracer) {
	tracerMu.Lock()
	defer tracerMu.Unlock()
	globalTracer = t
}

// GetTracer returns the global tracer, or a no-op tracer if not set.
func GetTracer() *Tracer {
	tracerMu.RLock()
	defer tracerMu.RUnlock()
	if globalTracer == nil {
		return &Tracer{tracer: trace.NewNoopTracerProvider().Tracer("")}
	}
	return globalTracer
}

// NewTracer creates a new tracer with the given name.
func NewTracer(name string) *Tracer {
	return &Tracer{tracer: otel.Tracer(name)}
}

// StartSpan starts a new span with the given name.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// StartSpan starts a client span on the global tracer.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return GetTracer().StartSpan(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
}

// EndSpan ends a span, recording err when set.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// --- Session Spans ---

// SessionSpanOptions carries the attributes of a transport session span.
type SessionSpanOptions struct {
	Transport string
	Sid       string
	Namespace string
}

// EndSessionSpan ends a session span with its attributes.
func EndSessionSpan(span trace.Span, opts SessionSpanOptions, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("socket.transport", opts.Transport),
	}
	if opts.Sid != "" {
		attrs = append(attrs, attribute.String("socket.sid", opts.Sid))
	}
	if opts.Namespace != "" {
		attrs = append(attrs, attribute.String("socket.namespace", opts.Namespace))
	}
	span.SetAttributes(attrs...)

	EndSpan(span, err)
}

// --- Context Propagation ---

// InjectContext injects trace context into a carrier for cross-process
// propagation, for example into an event payload.
func InjectContext(ctx context.Context, carrier propagation.TextMapCarrier) {
	otel.GetTextMapPropagator().Inject(ctx, carrier)
}

// ExtractContext extracts trace context from a carrier.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// MapCarrier is a simple map-based TextMapCarrier for context propagation.
type MapCarrier map[string]string

func (c MapCarrier) Get(key string) string {
	return c[key]
}

func (c MapCarrier) Set(key, value string) {
	c[key] = value
}

func (c MapCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
