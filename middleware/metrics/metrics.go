// Package metrics provides Prometheus metrics for the ledger.
//
// Basic usage:
//
//	m := metrics.New(metrics.WithMetricsServiceName("ledger-api"))
//	prometheus.MustRegister(m.Collectors()...)
//
//	// Command bus
//	svc.Bus().Use(m.CommandMiddleware())
//
//	// Event store
//	store := ledger.NewStore(m.WrapEventStore(adapter))
//
//	// Committed events
//	svc.Dispatcher().SubscribeAll(m.EventHandler())
//
// The metrics collected include:
//   - Command execution counts, durations and duplicates
//   - Event store operations (append, load) and version conflicts
//   - Committed events by kind
//   - Error counts by type
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AshkanYarmoradi/go-ledger"
	"github.com/AshkanYarmoradi/go-ledger/adapters"
)

// Default metric labels.
const (
	LabelCommandType   = "command_type"
	LabelAggregateType = "aggregate_type"
	LabelEventKind     = "event_kind"
	LabelOperation     = "operation"
	LabelStatus        = "status"
	LabelErrorType     = "error_type"
	LabelService       = "service"
)

// Status values.
const (
	StatusSuccess   = "success"
	StatusDuplicate = "duplicate"
	StatusError     = "error"
)

// Operation values.
const (
	OperationAppend = "append"
	OperationLoad   = "load"
	OperationInfo   = "get_aggregate_info"
)

// Metrics holds all Prometheus metrics for the ledger.
type Metrics struct {
	namespace   string
	subsystem   string
	serviceName string

	// Command metrics
	commandsTotal    *prometheus.CounterVec
	commandDuration  *prometheus.HistogramVec
	commandsInFlight *prometheus.GaugeVec

	// Event store metrics
	eventStoreOperationsTotal   *prometheus.CounterVec
	eventStoreOperationDuration *prometheus.HistogramVec
	eventsAppendedTotal         *prometheus.CounterVec
	eventsLoadedTotal           *prometheus.CounterVec
	concurrencyConflictsTotal   *prometheus.CounterVec

	// Dispatch metrics
	eventsDispatchedTotal *prometheus.CounterVec

	// Error metrics
	errorsTotal *prometheus.CounterVec
}

// MetricsOption configures Metrics.
type MetricsOption func(*Metrics)

// WithNamespace sets the Prometheus namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(m *Metrics) {
		m.namespace = namespace
	}
}

// WithSubsystem sets the Prometheus subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(m *Metrics) {
		m.subsystem = subsystem
	}
}

// WithMetricsServiceName sets the service name label.
func WithMetricsServiceName(name string) MetricsOption {
	return func(m *Metrics) {
		m.serviceName = name
	}
}

// New creates a new Metrics instance with default settings.
func New(opts ...MetricsOption) *Metrics {
	m := &Metrics{
		namespace:   "ledger",
		serviceName: "unknown",
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initMetrics()
	return m
}

func (m *Metrics) counter(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Metrics) histogram(name, help string, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   prometheus.DefBuckets,
	}, labels)
}

func (m *Metrics) initMetrics() {
	m.commandsTotal = m.counter("commands_total",
		"Total number of commands processed.",
		LabelService, LabelCommandType, LabelStatus)
	m.commandDuration = m.histogram("command_duration_seconds",
		"Duration of command processing in seconds.",
		LabelService, LabelCommandType)
	m.commandsInFlight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "commands_in_flight",
		Help:      "Number of commands currently being processed.",
	}, []string{LabelService, LabelCommandType})

	m.eventStoreOperationsTotal = m.counter("eventstore_operations_total",
		"Total number of event store operations.",
		LabelService, LabelOperation, LabelStatus)
	m.eventStoreOperationDuration = m.histogram("eventstore_operation_duration_seconds",
		"Duration of event store operations in seconds.",
		LabelService, LabelOperation)
	m.eventsAppendedTotal = m.counter("events_appended_total",
		"Total number of events appended to the log.",
		LabelService, LabelAggregateType, LabelEventKind)
	m.eventsLoadedTotal = m.counter("events_loaded_total",
		"Total number of events replayed from the log.",
		LabelService)
	m.concurrencyConflictsTotal = m.counter("concurrency_conflicts_total",
		"Total number of appends rejected by the optimistic version check.",
		LabelService, LabelAggregateType)

	m.eventsDispatchedTotal = m.counter("events_dispatched_total",
		"Total number of committed events handed to subscribers.",
		LabelService, LabelEventKind)

	m.errorsTotal = m.counter("errors_total",
		"Total number of errors by type.",
		LabelService, LabelErrorType)
}

// Collectors returns all Prometheus collectors for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.commandsTotal,
		m.commandDuration,
		m.commandsInFlight,
		m.eventStoreOperationsTotal,
		m.eventStoreOperationDuration,
		m.eventsAppendedTotal,
		m.eventsLoadedTotal,
		m.concurrencyConflictsTotal,
		m.eventsDispatchedTotal,
		m.errorsTotal,
	}
}

// MustRegister registers all collectors with the default registry.
// Panics if registration fails.
func (m *Metrics) MustRegister() {
	prometheus.MustRegister(m.Collectors()...)
}

// Register registers all collectors with the given registry.
func (m *Metrics) Register(registry prometheus.Registerer) error {
	for _, collector := range m.Collectors() {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Command Middleware
// =============================================================================

// CommandMiddleware returns middleware that records command metrics.
// Commands answered as duplicates are counted with the duplicate status.
func (m *Metrics) CommandMiddleware() ledger.Middleware {
	return func(next ledger.MiddlewareFunc) ledger.MiddlewareFunc {
		return func(ctx context.Context, cmd ledger.Command) (ledger.CommandResult, error) {
			cmdType := cmd.CommandType()

			m.commandsInFlight.WithLabelValues(m.serviceName, cmdType).Inc()
			defer m.commandsInFlight.WithLabelValues(m.serviceName, cmdType).Dec()

			start := time.Now()
			result, err := next(ctx, cmd)
			m.commandDuration.WithLabelValues(m.serviceName, cmdType).Observe(time.Since(start).Seconds())

			status := StatusSuccess
			switch {
			case err != nil || result.IsError():
				status = StatusError
				m.recordError(err, result)
			case result.Duplicate:
				status = StatusDuplicate
			}

			m.commandsTotal.WithLabelValues(m.serviceName, cmdType, status).Inc()

			return result, err
		}
	}
}

func (m *Metrics) recordError(err error, result ledger.CommandResult) {
	if err == nil {
		err = result.Error
	}
	m.errorsTotal.WithLabelValues(m.serviceName, ErrorTypeName(err)).Inc()
}

// ErrorTypeName maps an error to a stable label value.
func ErrorTypeName(err error) string {
	if err == nil {
		return "none"
	}

	switch {
	case errors.Is(err, ledger.ErrConcurrencyConflict):
		return "concurrency_conflict"
	case errors.Is(err, ledger.ErrNotFound):
		return "not_found"
	case errors.Is(err, ledger.ErrOperationDuplicate):
		return "operation_duplicate"
	case errors.Is(err, ledger.ErrValidation):
		return "validation_failed"
	case errors.Is(err, ledger.ErrHandlerNotFound):
		return "handler_not_found"
	case errors.Is(err, ledger.ErrHandlerPanicked):
		return "handler_panicked"
	case errors.Is(err, ledger.ErrSerializationFailed):
		return "serialization_failed"
	case errors.Is(err, ledger.ErrEventKindNotRegistered):
		return "event_kind_not_registered"
	case errors.Is(err, ledger.ErrUnhandledEvent):
		return "unhandled_event"
	case errors.Is(err, ledger.ErrNilCommand):
		return "nil_command"
	case errors.Is(err, adapters.ErrEmptyAggregateID):
		return "empty_aggregate_id"
	case errors.Is(err, adapters.ErrNoEvents):
		return "no_events"
	case errors.Is(err, adapters.ErrInvalidVersion):
		return "invalid_version"
	case errors.Is(err, adapters.ErrAdapterClosed):
		return "adapter_closed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "unknown"
	}
}

// =============================================================================
// Event Store Middleware
// =============================================================================

// EventStoreMiddleware wraps an EventStoreAdapter with metrics.
type EventStoreMiddleware struct {
	adapter adapters.EventStoreAdapter
	metrics *Metrics
}

var (
	_ adapters.EventStoreAdapter = (*EventStoreMiddleware)(nil)
	_ adapters.HealthChecker     = (*EventStoreMiddleware)(nil)
)

// WrapEventStore wraps an adapter with metrics collection.
func (m *Metrics) WrapEventStore(adapter adapters.EventStoreAdapter) *EventStoreMiddleware {
	return &EventStoreMiddleware{
		adapter: adapter,
		metrics: m,
	}
}

// Unwrap returns the wrapped adapter.
func (em *EventStoreMiddleware) Unwrap() adapters.EventStoreAdapter {
	return em.adapter
}

func (em *EventStoreMiddleware) observe(operation string, start time.Time, err error) {
	m := em.metrics
	m.eventStoreOperationDuration.WithLabelValues(m.serviceName, operation).Observe(time.Since(start).Seconds())

	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.eventStoreOperationsTotal.WithLabelValues(m.serviceName, operation, status).Inc()
}

// Append stores events with metrics.
func (em *EventStoreMiddleware) Append(ctx context.Context, aggregateID, aggregateType string, events []adapters.EventRecord, expectedVersion int64) ([]adapters.StoredEvent, error) {
	m := em.metrics
	start := time.Now()
	stored, err := em.adapter.Append(ctx, aggregateID, aggregateType, events, expectedVersion)
	em.observe(OperationAppend, start, err)

	switch {
	case err == nil:
		for _, e := range events {
			m.eventsAppendedTotal.WithLabelValues(m.serviceName, aggregateType, e.Kind).Inc()
		}
	case errors.Is(err, adapters.ErrConcurrencyConflict), errors.Is(err, adapters.ErrAggregateExists):
		m.concurrencyConflictsTotal.WithLabelValues(m.serviceName, aggregateType).Inc()
	default:
		m.errorsTotal.WithLabelValues(m.serviceName, "append_error").Inc()
	}

	return stored, err
}

// Load retrieves a stream with metrics.
func (em *EventStoreMiddleware) Load(ctx context.Context, aggregateID string) (*adapters.StreamRecord, error) {
	m := em.metrics
	start := time.Now()
	record, err := em.adapter.Load(ctx, aggregateID)
	em.observe(OperationLoad, start, err)

	if err == nil {
		m.eventsLoadedTotal.WithLabelValues(m.serviceName).Add(float64(len(record.Events)))
	} else if !errors.Is(err, adapters.ErrAggregateNotFound) {
		m.errorsTotal.WithLabelValues(m.serviceName, "load_error").Inc()
	}

	return record, err
}

// GetAggregateInfo returns aggregate metadata with metrics.
func (em *EventStoreMiddleware) GetAggregateInfo(ctx context.Context, aggregateID string) (*adapters.AggregateInfo, error) {
	start := time.Now()
	info, err := em.adapter.GetAggregateInfo(ctx, aggregateID)
	em.observe(OperationInfo, start, err)
	return info, err
}

// Initialize initializes the wrapped adapter.
func (em *EventStoreMiddleware) Initialize(ctx context.Context) error {
	return em.adapter.Initialize(ctx)
}

// Ping checks the wrapped adapter if it supports health checks.
func (em *EventStoreMiddleware) Ping(ctx context.Context) error {
	if hc, ok := em.adapter.(adapters.HealthChecker); ok {
		return hc.Ping(ctx)
	}
	return nil
}

// Close closes the wrapped adapter.
func (em *EventStoreMiddleware) Close() error {
	return em.adapter.Close()
}

// =============================================================================
// Dispatch
// =============================================================================

// EventHandler returns a dispatcher subscriber that counts committed events.
func (m *Metrics) EventHandler() ledger.EventHandler {
	return func(_ context.Context, event ledger.RecordedEvent) error {
		m.eventsDispatchedTotal.WithLabelValues(m.serviceName, event.Kind()).Inc()
		return nil
	}
}

// RecordError records a custom error.
func (m *Metrics) RecordError(errorType string) {
	m.errorsTotal.WithLabelValues(m.serviceName, errorType).Inc()
}

// =============================================================================
// Getters for testing
// =============================================================================

// CommandsTotal returns the commands counter.
func (m *Metrics) CommandsTotal() *prometheus.CounterVec {
	return m.commandsTotal
}

// CommandDuration returns the command duration histogram.
func (m *Metrics) CommandDuration() *prometheus.HistogramVec {
	return m.commandDuration
}

// CommandsInFlight returns the in-flight commands gauge.
func (m *Metrics) CommandsInFlight() *prometheus.GaugeVec {
	return m.commandsInFlight
}

// EventStoreOperationsTotal returns the event store operations counter.
func (m *Metrics) EventStoreOperationsTotal() *prometheus.CounterVec {
	return m.eventStoreOperationsTotal
}

// EventsAppendedTotal returns the events appended counter.
func (m *Metrics) EventsAppendedTotal() *prometheus.CounterVec {
	return m.eventsAppendedTotal
}

// EventsLoadedTotal returns the events loaded counter.
func (m *Metrics) EventsLoadedTotal() *prometheus.CounterVec {
	return m.eventsLoadedTotal
}

// ConcurrencyConflictsTotal returns the version conflict counter.
func (m *Metrics) ConcurrencyConflictsTotal() *prometheus.CounterVec {
	return m.concurrencyConflictsTotal
}

// EventsDispatchedTotal returns the dispatched events counter.
func (m *Metrics) EventsDispatchedTotal() *prometheus.CounterVec {
	return m.eventsDispatchedTotal
}

// ErrorsTotal returns the errors counter.
func (m *Metrics) ErrorsTotal() *prometheus.CounterVec {
	return m.errorsTotal
}
