// Package memory provides an in-memory implementation of the event store adapter.
// This adapter is primarily intended for testing and development purposes.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/AshkanYarmoradi/go-ledger/adapters"
	"github.com/google/uuid"
)

// Ensure MemoryAdapter implements all required interfaces.
var (
	_ adapters.EventStoreAdapter = (*MemoryAdapter)(nil)
	_ adapters.HealthChecker     = (*MemoryAdapter)(nil)
)

// MemoryAdapter is an in-memory implementation of EventStoreAdapter.
// It is thread-safe and suitable for unit testing.
type MemoryAdapter struct {
	mu         sync.RWMutex
	aggregates map[string]*aggregateData
	position   uint64
	closed     bool
	now        func() time.Time
}

type aggregateData struct {
	aggregateType string
	version       int64
	events        []adapters.StoredEvent
}

// Option configures a MemoryAdapter.
type Option func(*MemoryAdapter)

// WithClock overrides the timestamp source for stored events.
func WithClock(now func() time.Time) Option {
	return func(a *MemoryAdapter) {
		a.now = now
	}
}

// NewAdapter creates a new in-memory event store adapter.
func NewAdapter(opts ...Option) *MemoryAdapter {
	adapter := &MemoryAdapter{
		aggregates: make(map[string]*aggregateData),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// Initialize is a no-op for the memory adapter.
func (a *MemoryAdapter) Initialize(ctx context.Context) error {
	return nil
}

// Append stores events for an aggregate with optimistic concurrency control.
func (a *MemoryAdapter) Append(ctx context.Context, aggregateID, aggregateType string, events []adapters.EventRecord, expectedVersion int64) ([]adapters.StoredEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, adapters.ErrAdapterClosed
	}

	if aggregateID == "" {
		return nil, adapters.ErrEmptyAggregateID
	}

	if len(events) == 0 {
		return nil, adapters.ErrNoEvents
	}

	agg, exists := a.aggregates[aggregateID]
	var currentVersion int64
	if exists {
		currentVersion = agg.version
	}

	if err := adapters.CheckVersion(aggregateID, expectedVersion, currentVersion, exists); err != nil {
		return nil, err
	}

	if !exists {
		agg = &aggregateData{aggregateType: aggregateType}
	}

	now := a.now()
	stored := make([]adapters.StoredEvent, len(events))
	position := a.position
	for i, event := range events {
		position++
		stored[i] = adapters.StoredEvent{
			ID:          uuid.New().String(),
			AggregateID: aggregateID,
			Kind:        event.Kind,
			Data:        append([]byte(nil), event.Data...),
			Position:    position,
			Timestamp:   now,
		}
	}

	// Nothing above can fail past this point, so the write is all-or-nothing.
	a.position = position
	agg.events = append(agg.events, stored...)
	agg.version = adapters.NextVersion(expectedVersion)
	a.aggregates[aggregateID] = agg

	return copyEvents(stored), nil
}

// Load returns the aggregate record and all of its events.
func (a *MemoryAdapter) Load(ctx context.Context, aggregateID string) (*adapters.StreamRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return nil, adapters.ErrAdapterClosed
	}

	if aggregateID == "" {
		return nil, adapters.ErrEmptyAggregateID
	}

	agg, exists := a.aggregates[aggregateID]
	if !exists {
		return nil, adapters.NewAggregateNotFoundError(aggregateID)
	}

	return &adapters.StreamRecord{
		AggregateID:   aggregateID,
		AggregateType: agg.aggregateType,
		Version:       agg.version,
		Events:        copyEvents(agg.events),
	}, nil
}

// GetAggregateInfo returns the aggregate record without its events.
func (a *MemoryAdapter) GetAggregateInfo(ctx context.Context, aggregateID string) (*adapters.AggregateInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return nil, adapters.ErrAdapterClosed
	}

	agg, exists := a.aggregates[aggregateID]
	if !exists {
		return nil, adapters.NewAggregateNotFoundError(aggregateID)
	}

	return &adapters.AggregateInfo{
		AggregateID:   aggregateID,
		AggregateType: agg.aggregateType,
		Version:       agg.version,
		EventCount:    int64(len(agg.events)),
	}, nil
}

// SetVersion forces the stored version of an existing aggregate.
// Tests use it to put a record at an arbitrary version.
func (a *MemoryAdapter) SetVersion(aggregateID string, version int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	agg, exists := a.aggregates[aggregateID]
	if !exists {
		return false
	}
	agg.version = version
	return true
}

// Ping reports whether the adapter is still open.
func (a *MemoryAdapter) Ping(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return adapters.ErrAdapterClosed
	}
	return ctx.Err()
}

// Close marks the adapter as closed.
func (a *MemoryAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.closed = true
	return nil
}

// Reset clears all stored data.
func (a *MemoryAdapter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.aggregates = make(map[string]*aggregateData)
	a.position = 0
}

// EventCount returns the total number of stored events.
func (a *MemoryAdapter) EventCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return int(a.position)
}

// AggregateCount returns the number of aggregate records.
func (a *MemoryAdapter) AggregateCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return len(a.aggregates)
}

func copyEvents(events []adapters.StoredEvent) []adapters.StoredEvent {
	out := make([]adapters.StoredEvent, len(events))
	copy(out, events)
	return out
}
