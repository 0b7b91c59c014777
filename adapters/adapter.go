// Package adapters provides interfaces for event store backends.
package adapters

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for adapter implementations.
// Adapters should return these (or errors that match via errors.Is)
// so the store can translate them into domain errors.
var (
	// ErrConcurrencyConflict is returned when the optimistic version check fails.
	ErrConcurrencyConflict = errors.New("ledger: concurrency conflict")

	// ErrAggregateNotFound is returned when no aggregate record exists for an id.
	ErrAggregateNotFound = errors.New("ledger: aggregate not found")

	// ErrAggregateExists is returned when a new aggregate record collides with an existing one.
	ErrAggregateExists = errors.New("ledger: aggregate already exists")

	// ErrEmptyAggregateID is returned when an empty aggregate id is provided.
	ErrEmptyAggregateID = errors.New("ledger: aggregate ID is required")

	// ErrNoEvents is returned when attempting to append zero events.
	ErrNoEvents = errors.New("ledger: no events to append")

	// ErrInvalidVersion is returned when an invalid expected version is specified.
	ErrInvalidVersion = errors.New("ledger: invalid version")

	// ErrAdapterClosed is returned when operations are attempted on a closed adapter.
	ErrAdapterClosed = errors.New("ledger: adapter is closed")
)

// StoredEvent is a persisted event record.
type StoredEvent struct {
	// ID is the record identifier generated at append time.
	ID string

	// AggregateID is the aggregate the event belongs to.
	AggregateID string

	// Kind is the event kind used to pick a decoder.
	Kind string

	// Data is the serialized event payload.
	Data []byte

	// Position is the global append position across all aggregates.
	Position uint64

	// Timestamp is when the event was stored.
	Timestamp time.Time
}

// EventRecord is an event waiting to be appended.
type EventRecord struct {
	Kind string
	Data []byte
}

// StreamRecord is the persisted state of one aggregate: its record plus its events.
type StreamRecord struct {
	AggregateID   string
	AggregateType string

	// Version is the persisted aggregate version. It starts at InitialVersion
	// and grows by one on every successful append.
	Version int64

	// Events are ordered by append position.
	Events []StoredEvent
}

// AggregateInfo describes an aggregate record without its events.
type AggregateInfo struct {
	AggregateID   string
	AggregateType string
	Version       int64
	EventCount    int64
}

// EventStoreAdapter is the interface that database adapters must implement.
// It provides the low-level operations for persisting and retrieving events.
type EventStoreAdapter interface {
	// Append stores events for an aggregate under an expected version.
	//   - NewAggregate (-1): the aggregate record is created at InitialVersion.
	//     An existing record fails with ErrAggregateExists.
	//   - any other value: exactly one record must exist at that version.
	//     Its version is bumped by one. Anything else fails with ErrConcurrencyConflict.
	// The version check, the bump and the event inserts happen atomically.
	Append(ctx context.Context, aggregateID, aggregateType string, events []EventRecord, expectedVersion int64) ([]StoredEvent, error)

	// Load returns the aggregate record and all of its events.
	// Returns ErrAggregateNotFound if no record exists.
	Load(ctx context.Context, aggregateID string) (*StreamRecord, error)

	// GetAggregateInfo returns the aggregate record without its events.
	GetAggregateInfo(ctx context.Context, aggregateID string) (*AggregateInfo, error)

	// Initialize sets up the required database schema.
	Initialize(ctx context.Context) error

	// Close releases any resources held by the adapter.
	Close() error
}

// HealthChecker is implemented by adapters that can report connectivity.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Migrator is implemented by adapters that own a database schema.
type Migrator interface {
	Migrate(ctx context.Context) error
	MigrationVersion(ctx context.Context) (int, error)
}
