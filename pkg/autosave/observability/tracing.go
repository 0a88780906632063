package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the autosave tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("autosave")

// StartSaveSpan starts a span covering one save operation, including
// all of its retry attempts.
func StartSaveSpan(ctx context.Context, bookID, chapterID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "autosave.save",
		trace.WithAttributes(
			attribute.String("book.id", bookID),
			attribute.String("chapter.id", chapterID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartRecoverySpan starts a span covering a recovery prompt lifecycle.
func StartRecoverySpan(ctx context.Context, bookID, chapterID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "autosave.recovery",
		trace.WithAttributes(
			attribute.String("book.id", bookID),
			attribute.String("chapter.id", chapterID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span in context.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
