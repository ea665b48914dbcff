// Package tracing records one OpenTelemetry span per effect invocation.
package tracing

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zuriscript/signalstory-sub000/store"
)

const instrumentation = "github.com/zuriscript/signalstory-sub000/extensions/tracing"

// Extension opens a span in BeforeEffect and ends it when the invocation
// settles. Spans are correlated by invocation id, so overlapping runs get
// their own spans.
type Extension struct {
	tracer trace.Tracer
	spans  map[string]trace.Span
	mu     sync.Mutex
}

// Option configures an Extension.
type Option func(*Extension)

// WithTracerProvider uses tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Extension) { e.tracer = tp.Tracer(instrumentation) }
}

// New creates a tracing extension.
func New(opts ...Option) *Extension {
	e := &Extension{
		tracer: otel.Tracer(instrumentation),
		spans:  make(map[string]trace.Span),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Extension) BeforeEffect(c store.Handle, effect store.Effect, invocationID string) error {
	_, span := e.tracer.Start(context.Background(), "effect "+effect.Name(),
		trace.WithAttributes(
			attribute.String("signalstory.store", c.Name()),
			attribute.String("signalstory.effect", effect.Name()),
			attribute.String("signalstory.invocation_id", invocationID),
		),
	)

	e.mu.Lock()
	e.spans[invocationID] = span
	e.mu.Unlock()
	return nil
}

func (e *Extension) AfterEffect(c store.Handle, effect store.Effect, outcome store.Outcome, invocationID string) {
	e.mu.Lock()
	span, ok := e.spans[invocationID]
	delete(e.spans, invocationID)
	e.mu.Unlock()

	if !ok {
		return
	}

	span.SetAttributes(attribute.Int("signalstory.emissions", outcome.Emissions))
	if outcome.Err != nil {
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, outcome.Err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
