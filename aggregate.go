package ledger

import (
	"sort"
)

// Aggregate is a consistency boundary whose state derives solely from its own events.
type Aggregate interface {
	// AggregateID returns the unique identifier for this aggregate instance.
	AggregateID() ID

	// AggregateType returns the type of this aggregate (e.g., "Account", "Client").
	AggregateType() string

	// Version returns the persisted version the aggregate was loaded at,
	// or NewAggregateVersion if it has never been saved.
	Version() int64

	// UncommittedChanges returns events produced since the aggregate was loaded.
	UncommittedChanges() []Event

	// MarkChangesAsCommitted records the uncommitted operation ids as committed
	// and clears the uncommitted changes. Call it once per successful save.
	MarkChangesAsCommitted()
}

// EventApplier mutates aggregate state for one event.
// Implementations switch on the concrete event type and return an
// UnhandledEventError for any kind they do not understand.
type EventApplier interface {
	When(event Event) error
}

// AggregateBase provides the replay and idempotency machinery shared by all aggregates.
// Embed this struct in aggregate types.
type AggregateBase struct {
	id            ID
	aggregateType string
	version       int64
	uncommitted   []Event
	committed     map[string]struct{}
}

// NewAggregateBase creates an AggregateBase for an aggregate that has never been saved.
func NewAggregateBase(aggregateType string) AggregateBase {
	return AggregateBase{
		aggregateType: aggregateType,
		version:       NewAggregateVersion,
		committed:     make(map[string]struct{}),
	}
}

// AggregateID returns the aggregate's unique identifier.
func (a *AggregateBase) AggregateID() ID {
	return a.id
}

// SetID sets the aggregate's ID. Creation event handlers call it.
func (a *AggregateBase) SetID(id ID) {
	a.id = id
}

// AggregateType returns the aggregate type.
func (a *AggregateBase) AggregateType() string {
	return a.aggregateType
}

// Version returns the version the aggregate was loaded at.
func (a *AggregateBase) Version() int64 {
	return a.version
}

// UncommittedChanges returns a copy of the events waiting to be persisted.
func (a *AggregateBase) UncommittedChanges() []Event {
	out := make([]Event, len(a.uncommitted))
	copy(out, a.uncommitted)
	return out
}

// HasUncommittedChanges returns true if there are events waiting to be persisted.
func (a *AggregateBase) HasUncommittedChanges() bool {
	return len(a.uncommitted) > 0
}

// CommittedOperations returns the committed operation ids, sorted.
func (a *AggregateBase) CommittedOperations() []string {
	ops := make([]string, 0, len(a.committed))
	for op := range a.committed {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// HasCommitted reports whether the operation id has been committed.
func (a *AggregateBase) HasCommitted(operationID string) bool {
	_, ok := a.committed[operationID]
	return ok
}

// MarkChangesAsCommitted moves every uncommitted operation id into the
// committed set and clears the uncommitted changes.
func (a *AggregateBase) MarkChangesAsCommitted() {
	for _, e := range a.uncommitted {
		a.commit(e.OperationID())
	}
	a.uncommitted = nil
}

// Replay sets the version to the stream's version and applies every event
// in order as already committed.
func (a *AggregateBase) Replay(applier EventApplier, stream *EventStream) error {
	if stream == nil {
		return nil
	}
	a.version = stream.Version
	for _, e := range stream.Events {
		if err := a.ApplyEvent(applier, e, false); err != nil {
			return err
		}
	}
	return nil
}

// ApplyEvent applies an event through applier.
//
// For a new event the operation id is checked against the committed set
// first: a duplicate fails with OperationDuplicateError and state is left
// untouched. Otherwise the event is applied and appended to the uncommitted
// changes. For a replayed event the operation id is recorded as committed.
func (a *AggregateBase) ApplyEvent(applier EventApplier, event Event, isNew bool) error {
	if isNew && a.HasCommitted(event.OperationID()) {
		return NewOperationDuplicateError(a.id.String(), event.OperationID(), event.Kind())
	}

	if err := applier.When(event); err != nil {
		return err
	}

	if isNew {
		a.uncommitted = append(a.uncommitted, event)
	} else {
		a.commit(event.OperationID())
	}
	return nil
}

// Raise applies a new event produced by a command.
func (a *AggregateBase) Raise(applier EventApplier, event Event) error {
	return a.ApplyEvent(applier, event, true)
}

// initialize replaces the uncommitted changes. Static constructors use it after
// replaying the creation event so the creation is both applied and pending.
func (a *AggregateBase) initialize(events ...Event) {
	a.uncommitted = append([]Event(nil), events...)
}

func (a *AggregateBase) commit(operationID string) {
	if a.committed == nil {
		a.committed = make(map[string]struct{})
	}
	a.committed[operationID] = struct{}{}
}
