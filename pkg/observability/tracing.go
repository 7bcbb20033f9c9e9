// Package observability provides OpenTelemetry tracing around ingestion and
// export of instrument data.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span wraps a trace span and batches its attributes until End.
type Span struct {
	span       trace.Span
	startTime  time.Time
	attributes []attribute.KeyValue
}

// NewSpan starts a span named operationName.
func NewSpan(ctx context.Context, operationName string) (context.Context, *Span) {
	ctx, span := Tracer().Start(ctx, operationName)

	return ctx, &Span{
		span:      span,
		startTime: time.Now(),
	}
}

// SetAttribute adds an attribute to the span.
func (s *Span) SetAttribute(key string, value interface{}) {
	var attr attribute.KeyValue

	switch v := value.(type) {
	case string:
		attr = attribute.String(key, v)
	case int:
		attr = attribute.Int(key, v)
	case int64:
		attr = attribute.Int64(key, v)
	case float64:
		attr = attribute.Float64(key, v)
	case bool:
		attr = attribute.Bool(key, v)
	case []string:
		attr = attribute.StringSlice(key, v)
	default:
		attr = attribute.String(key, fmt.Sprintf("%v", v))
	}

	s.attributes = append(s.attributes, attr)
}

// AddEvent adds an event to the span.
func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError marks the span as failed.
func (s *Span) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// End flushes the batched attributes and ends the span.
func (s *Span) End() {
	s.attributes = append(s.attributes, attribute.Float64("duration_ms",
		float64(time.Since(s.startTime).Microseconds())/1000))
	s.span.SetAttributes(s.attributes...)
	s.span.End()
}

// FormatTracer names spans after the reader or writer that emits them, for
// example "source.squid.read".
type FormatTracer struct {
	kind   string
	format string
}

// NewFormatTracer creates a tracer for kind ("source" or "destination")
// and format.
func NewFormatTracer(kind, format string) *FormatTracer {
	return &FormatTracer{kind: kind, format: format}
}

// StartSpan starts a span for operation with the format attributes set.
func (ft *FormatTracer) StartSpan(ctx context.Context, operation string) (context.Context, *Span) {
	ctx, span := NewSpan(ctx, fmt.Sprintf("%s.%s.%s", ft.kind, ft.format, operation))

	span.SetAttribute("asciidata.kind", ft.kind)
	span.SetAttribute("asciidata.format", ft.format)
	span.SetAttribute("asciidata.operation", operation)

	return ctx, span
}

// Trace runs fn inside a span for operation and records its error.
func (ft *FormatTracer) Trace(ctx context.Context, operation string, fn func(ctx context.Context, span *Span) error) error {
	ctx, span := ft.StartSpan(ctx, operation)
	defer span.End()

	err := fn(ctx, span)
	if err != nil {
		span.RecordError(err)
	} else {
		span.span.SetStatus(codes.Ok, "")
	}
	return err
}
