package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Uses the global OTel tracer provider.
var tracer = otel.Tracer("flowedit")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartLoadSpan starts a span covering one flow load.
	StartLoadSpan(ctx context.Context, botID string) (context.Context, trace.Span)

	// StartSaveSpan starts a span covering one flow save.
	StartSaveSpan(ctx context.Context, botID string) (context.Context, trace.Span)

	// StartOpSpan starts a span for a named editor operation, such as
	// "compact" or "export".
	StartOpSpan(ctx context.Context, op string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartLoadSpan starts a span covering one flow load.
func (m *otelSpanManager) StartLoadSpan(ctx context.Context, botID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "flowedit.load",
		trace.WithAttributes(attribute.String("bot.id", botID)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartSaveSpan starts a span covering one flow save.
func (m *otelSpanManager) StartSaveSpan(ctx context.Context, botID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "flowedit.save",
		trace.WithAttributes(attribute.String("bot.id", botID)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartOpSpan starts a span for a named editor operation.
func (m *otelSpanManager) StartOpSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "flowedit."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
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

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
