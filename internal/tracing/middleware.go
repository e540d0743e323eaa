package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Wrap returns fn, such as a bus listener, wrapped in a span named name.
// A nil tracer returns fn unchanged.
func Wrap[T any](tracer trace.Tracer, name string, fn func(context.Context, T) error, attrs ...attribute.KeyValue) func(context.Context, T) error {
	if tracer == nil || fn == nil {
		return fn
	}
	return func(ctx context.Context, v T) error {
		ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
		defer span.End()

		err := fn(ctx, v)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}

// TraceID returns the hex trace ID of the span in ctx, or "" when ctx
// carries no sampled span.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
