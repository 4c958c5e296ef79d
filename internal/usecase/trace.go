package usecase

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "sportsync/internal/usecase"

// startSpan opens a child span when the context already carries a valid
// trace, and returns a noop span otherwise so background jobs do not emit
// orphan traces.
func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if !trace.SpanContextFromContext(ctx).IsValid() {
		return ctx, trace.SpanFromContext(ctx)
	}
	return otel.Tracer(tracerName).Start(ctx, name)
}
