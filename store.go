package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/AshkanYarmoradi/go-ledger/adapters"
)

// EventStore is the append-only log contract the repository depends on.
type EventStore interface {
	// LoadStream returns every event of the aggregate in append order together
	// with its persisted version. Fails with NotFoundError if no record exists.
	LoadStream(ctx context.Context, aggregateID ID) (*EventStream, error)

	// SaveEvents appends events under an expected version.
	// NewAggregateVersion creates the aggregate record; any other version must
	// match the stored record exactly and is bumped by one. A mismatch, or an
	// existing record for a new aggregate, fails with ConcurrencyError.
	// The whole operation is atomic.
	SaveEvents(ctx context.Context, aggregateID ID, aggregateType string, events []Event, expectedVersion int64) ([]RecordedEvent, error)
}

// Store implements EventStore on top of an adapter and a serializer.
type Store struct {
	adapter    adapters.EventStoreAdapter
	serializer Serializer
	logger     Logger
}

var _ EventStore = (*Store)(nil)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithSerializer sets a custom serializer.
func WithSerializer(s Serializer) StoreOption {
	return func(es *Store) {
		es.serializer = s
	}
}

// WithLogger sets a custom logger.
func WithLogger(l Logger) StoreOption {
	return func(es *Store) {
		es.logger = l
	}
}

// NewStore creates a new Store with the given adapter and options.
// Events are JSON encoded unless WithSerializer is given.
func NewStore(adapter adapters.EventStoreAdapter, opts ...StoreOption) *Store {
	es := &Store{
		adapter:    adapter,
		serializer: NewJSONSerializer(),
		logger:     &noopLogger{},
	}

	for _, opt := range opts {
		opt(es)
	}

	return es
}

// Serializer returns the store's serializer.
func (s *Store) Serializer() Serializer {
	return s.serializer
}

// Adapter returns the underlying adapter.
func (s *Store) Adapter() adapters.EventStoreAdapter {
	return s.adapter
}

// LoadStream loads and decodes the stream of one aggregate.
func (s *Store) LoadStream(ctx context.Context, aggregateID ID) (*EventStream, error) {
	if aggregateID.IsZero() {
		return nil, adapters.ErrEmptyAggregateID
	}

	record, err := s.adapter.Load(ctx, aggregateID.String())
	if err != nil {
		if errors.Is(err, adapters.ErrAggregateNotFound) {
			return nil, NewNotFoundError(aggregateID.String())
		}
		return nil, err
	}

	stream := &EventStream{
		Version: record.Version,
		Events:  make([]Event, 0, len(record.Events)),
	}
	for i, stored := range record.Events {
		event, err := s.serializer.Deserialize(stored.Data, stored.Kind)
		if err != nil {
			return nil, fmt.Errorf("ledger: failed to deserialize event %d of %s: %w", i, aggregateID, err)
		}
		stream.Events = append(stream.Events, event)
	}

	s.logger.Debug("Loaded stream",
		"aggregateID", aggregateID.String(),
		"version", stream.Version,
		"events", len(stream.Events))

	return stream, nil
}

// SaveEvents serializes and appends events under an expected version.
func (s *Store) SaveEvents(ctx context.Context, aggregateID ID, aggregateType string, events []Event, expectedVersion int64) ([]RecordedEvent, error) {
	if aggregateID.IsZero() {
		return nil, adapters.ErrEmptyAggregateID
	}

	if len(events) == 0 {
		return nil, adapters.ErrNoEvents
	}

	records := make([]adapters.EventRecord, len(events))
	for i, event := range events {
		data, err := s.serializer.Serialize(event)
		if err != nil {
			return nil, fmt.Errorf("ledger: failed to serialize event %d: %w", i, err)
		}
		records[i] = adapters.EventRecord{Kind: event.Kind(), Data: data}
	}

	stored, err := s.adapter.Append(ctx, aggregateID.String(), aggregateType, records, expectedVersion)
	if err != nil {
		return nil, translateAppendError(aggregateID.String(), expectedVersion, err)
	}

	recorded := make([]RecordedEvent, len(stored))
	for i, se := range stored {
		recorded[i] = RecordedEvent{
			ID:            se.ID,
			AggregateID:   se.AggregateID,
			AggregateType: aggregateType,
			Position:      se.Position,
			Timestamp:     se.Timestamp,
			Event:         events[i],
		}
	}

	s.logger.Debug("Saved events",
		"aggregateID", aggregateID.String(),
		"aggregateType", aggregateType,
		"expectedVersion", expectedVersion,
		"events", len(events))

	return recorded, nil
}

// Initialize sets up the required storage schema.
func (s *Store) Initialize(ctx context.Context) error {
	return s.adapter.Initialize(ctx)
}

// Ping checks the adapter's connectivity if it supports health checks.
func (s *Store) Ping(ctx context.Context) error {
	if hc, ok := s.adapter.(adapters.HealthChecker); ok {
		return hc.Ping(ctx)
	}
	return nil
}

// Close releases resources held by the store.
func (s *Store) Close() error {
	return s.adapter.Close()
}

func translateAppendError(aggregateID string, expected int64, err error) error {
	var conflict *adapters.ConcurrencyError
	switch {
	case errors.As(err, &conflict):
		return &ConcurrencyError{
			AggregateID:     aggregateID,
			ExpectedVersion: conflict.ExpectedVersion,
			ActualVersion:   conflict.ActualVersion,
			Cause:           err,
		}
	case errors.Is(err, adapters.ErrAggregateExists):
		return &ConcurrencyError{
			AggregateID:     aggregateID,
			ExpectedVersion: expected,
			ActualVersion:   adapters.InitialVersion,
			Cause:           err,
		}
	case errors.Is(err, adapters.ErrConcurrencyConflict):
		return &ConcurrencyError{
			AggregateID:     aggregateID,
			ExpectedVersion: expected,
			Cause:           err,
		}
	default:
		return err
	}
}
