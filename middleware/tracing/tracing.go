// Package tracing provides OpenTelemetry integration for the ledger.
//
// Basic usage with the command bus:
//
//	tp, err := tracing.NewStdoutProvider("ledger", os.Stderr)
//	otel.SetTracerProvider(tp)
//
//	tracer := tracing.NewTracer()
//	svc.Bus().Use(tracing.CommandMiddleware(tracer))
//	store := ledger.NewStore(tracing.NewEventStoreMiddleware(adapter, tracer))
//
// The tracing middleware captures:
//   - Command type, target aggregate and outcome
//   - Event store appends and loads with versions and event kinds
//   - Dispatch of committed events to subscribers
//   - Correlation IDs
package tracing

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/AshkanYarmoradi/go-ledger"
	"github.com/AshkanYarmoradi/go-ledger/adapters"
)

const (
	// TracerName is the name of the ledger tracer.
	TracerName = "github.com/AshkanYarmoradi/go-ledger"

	// DefaultServiceName is the default service name for spans.
	DefaultServiceName = "ledger"
)

// Tracer wraps an OpenTelemetry tracer for ledger operations.
type Tracer struct {
	tracer      trace.Tracer
	serviceName string
}

// TracerOption configures a Tracer.
type TracerOption func(*Tracer)

// WithTracerProvider sets a custom TracerProvider.
func WithTracerProvider(tp trace.TracerProvider) TracerOption {
	return func(t *Tracer) {
		t.tracer = tp.Tracer(TracerName)
	}
}

// WithServiceName sets the service name for spans.
func WithServiceName(name string) TracerOption {
	return func(t *Tracer) {
		t.serviceName = name
	}
}

// NewTracer creates a new Tracer with the global TracerProvider.
func NewTracer(opts ...TracerOption) *Tracer {
	t := &Tracer{
		tracer:      otel.Tracer(TracerName),
		serviceName: DefaultServiceName,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// StartSpan starts a new span with the given name.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// ServiceName returns the configured service name.
func (t *Tracer) ServiceName() string {
	return t.serviceName
}

// NewStdoutProvider builds a TracerProvider that writes spans as JSON to w.
// Callers own the provider and must Shutdown it.
func NewStdoutProvider(serviceName string, w io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("ledger/tracing: failed to create stdout exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", ledger.Version()),
	)

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// =============================================================================
// Command Middleware
// =============================================================================

// CommandMiddleware creates middleware that traces command execution.
// Duplicate operations end with an Ok status and ledger.duplicate=true.
func CommandMiddleware(tracer *Tracer) ledger.Middleware {
	return func(next ledger.MiddlewareFunc) ledger.MiddlewareFunc {
		return func(ctx context.Context, cmd ledger.Command) (ledger.CommandResult, error) {
			ctx, span := tracer.StartSpan(ctx, "command."+cmd.CommandType(),
				trace.WithSpanKind(trace.SpanKindInternal),
			)
			defer span.End()

			span.SetAttributes(
				attribute.String("ledger.service", tracer.serviceName),
				attribute.String("ledger.command.type", cmd.CommandType()),
			)
			if ic, ok := cmd.(ledger.IdempotentCommand); ok && ic.IdempotencyKey() != "" {
				span.SetAttributes(attribute.String("ledger.operation_id", ic.IdempotencyKey()))
			}
			if correlationID := ledger.CorrelationIDFromContext(ctx); correlationID != "" {
				span.SetAttributes(attribute.String("ledger.correlation_id", correlationID))
			}

			result, err := next(ctx, cmd)

			if err == nil && result.IsError() {
				err = result.Error
			}
			finish(span, err)
			if err == nil {
				span.SetAttributes(
					attribute.String("ledger.result.aggregate_id", result.AggregateID),
					attribute.Int64("ledger.result.version", result.Version),
					attribute.Bool("ledger.duplicate", result.Duplicate),
				)
			}

			return result, err
		}
	}
}

// =============================================================================
// Event Store Middleware
// =============================================================================

// EventStoreMiddleware wraps an EventStoreAdapter with tracing.
type EventStoreMiddleware struct {
	adapter adapters.EventStoreAdapter
	tracer  *Tracer
}

var _ adapters.EventStoreAdapter = (*EventStoreMiddleware)(nil)

// NewEventStoreMiddleware wraps an adapter with tracing.
func NewEventStoreMiddleware(adapter adapters.EventStoreAdapter, tracer *Tracer) *EventStoreMiddleware {
	return &EventStoreMiddleware{
		adapter: adapter,
		tracer:  tracer,
	}
}

// Append stores events with tracing.
func (m *EventStoreMiddleware) Append(ctx context.Context, aggregateID, aggregateType string, events []adapters.EventRecord, expectedVersion int64) ([]adapters.StoredEvent, error) {
	ctx, span := m.tracer.StartSpan(ctx, "eventstore.append",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	kinds := make([]string, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	span.SetAttributes(
		attribute.String("ledger.service", m.tracer.serviceName),
		attribute.String("ledger.aggregate_id", aggregateID),
		attribute.String("ledger.aggregate_type", aggregateType),
		attribute.Int64("ledger.expected_version", expectedVersion),
		attribute.Int("ledger.events.count", len(events)),
		attribute.StringSlice("ledger.events.kinds", kinds),
	)

	stored, err := m.adapter.Append(ctx, aggregateID, aggregateType, events, expectedVersion)

	finish(span, err)
	if errors.Is(err, adapters.ErrConcurrencyConflict) || errors.Is(err, adapters.ErrAggregateExists) {
		span.SetAttributes(attribute.Bool("ledger.concurrency_conflict", true))
	}
	if err == nil {
		span.SetAttributes(attribute.Int64("ledger.stored.version", adapters.NextVersion(expectedVersion)))
		if len(stored) > 0 {
			span.SetAttributes(attribute.Int64("ledger.stored.position", int64(stored[len(stored)-1].Position)))
		}
	}

	return stored, err
}

// Load retrieves a stream with tracing.
func (m *EventStoreMiddleware) Load(ctx context.Context, aggregateID string) (*adapters.StreamRecord, error) {
	ctx, span := m.tracer.StartSpan(ctx, "eventstore.load",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	span.SetAttributes(
		attribute.String("ledger.service", m.tracer.serviceName),
		attribute.String("ledger.aggregate_id", aggregateID),
	)

	record, err := m.adapter.Load(ctx, aggregateID)

	finish(span, err)
	if err == nil {
		span.SetAttributes(
			attribute.Int64("ledger.stream.version", record.Version),
			attribute.Int("ledger.events.loaded", len(record.Events)),
		)
	}

	return record, err
}

// GetAggregateInfo returns aggregate metadata with tracing.
func (m *EventStoreMiddleware) GetAggregateInfo(ctx context.Context, aggregateID string) (*adapters.AggregateInfo, error) {
	ctx, span := m.tracer.StartSpan(ctx, "eventstore.get_aggregate_info",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	span.SetAttributes(
		attribute.String("ledger.service", m.tracer.serviceName),
		attribute.String("ledger.aggregate_id", aggregateID),
	)

	info, err := m.adapter.GetAggregateInfo(ctx, aggregateID)
	finish(span, err)
	return info, err
}

// Initialize initializes the adapter with tracing.
func (m *EventStoreMiddleware) Initialize(ctx context.Context) error {
	ctx, span := m.tracer.StartSpan(ctx, "eventstore.initialize",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	err := m.adapter.Initialize(ctx)
	finish(span, err)
	return err
}

// Ping checks the wrapped adapter if it supports health checks.
func (m *EventStoreMiddleware) Ping(ctx context.Context) error {
	if hc, ok := m.adapter.(adapters.HealthChecker); ok {
		return hc.Ping(ctx)
	}
	return nil
}

// Close closes the adapter.
func (m *EventStoreMiddleware) Close() error {
	return m.adapter.Close()
}

// =============================================================================
// Dispatch
// =============================================================================

// TraceHandler wraps a dispatcher subscriber in a span named after it.
func TraceHandler(tracer *Tracer, name string, handler ledger.EventHandler) ledger.EventHandler {
	return func(ctx context.Context, event ledger.RecordedEvent) error {
		ctx, span := tracer.StartSpan(ctx, "dispatch."+name,
			trace.WithSpanKind(trace.SpanKindConsumer),
		)
		defer span.End()

		span.SetAttributes(
			attribute.String("ledger.service", tracer.serviceName),
			attribute.String("ledger.event.kind", event.Kind()),
			attribute.String("ledger.event.id", event.ID),
			attribute.String("ledger.event.aggregate_id", event.AggregateID),
			attribute.Int64("ledger.event.position", int64(event.Position)),
		)

		err := handler(ctx, event)
		finish(span, err)
		return err
	}
}

// =============================================================================
// Span Helpers
// =============================================================================

// AddEvent adds an event to the current span.
func AddEvent(ctx context.Context, name string, opts ...trace.EventOption) {
	trace.SpanFromContext(ctx).AddEvent(name, opts...)
}

// SetError sets an error on the current span.
func SetError(ctx context.Context, err error) {
	finish(trace.SpanFromContext(ctx), err)
}
