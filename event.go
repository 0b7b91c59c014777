package ledger

import (
	"time"
)

// DefaultSchemaVersion is the schema version events carry unless set otherwise.
const DefaultSchemaVersion = 1

// NewAggregateVersion is the version of an aggregate that has never been saved.
const NewAggregateVersion int64 = -1

// Event is an immutable record of something that happened to an aggregate.
//
// The set of events is closed: every kind the ledger knows is declared in this
// package and registered in DefaultRegistry.
type Event interface {
	// Kind is the discriminator persisted next to the payload.
	Kind() string

	// OperationID is the idempotency key of the command that produced the event.
	OperationID() string

	// SchemaVersion is the payload schema version.
	SchemaVersion() int

	sealed()
}

// EventMeta carries the fields every event has. Embed it in event types.
type EventMeta struct {
	Operation string `json:"operation_id" msgpack:"operation_id"`
	Schema    int    `json:"schema_version" msgpack:"schema_version"`
}

// NewEventMeta returns metadata for an event produced by the given operation.
func NewEventMeta(operationID ID) EventMeta {
	return EventMeta{Operation: operationID.String(), Schema: DefaultSchemaVersion}
}

// OperationID returns the operation that produced the event.
func (m EventMeta) OperationID() string {
	return m.Operation
}

// SchemaVersion returns the payload schema version, defaulting to 1.
func (m EventMeta) SchemaVersion() int {
	if m.Schema == 0 {
		return DefaultSchemaVersion
	}
	return m.Schema
}

func (EventMeta) sealed() {}

// EventStream is the ordered history of one aggregate together with the
// version it was persisted at when loaded, or NewAggregateVersion.
type EventStream struct {
	Version int64
	Events  []Event
}

// NewEventStream builds a stream from events that have not been persisted yet.
func NewEventStream(events ...Event) *EventStream {
	return &EventStream{Version: NewAggregateVersion, Events: events}
}

// RecordedEvent is a committed event together with its storage details.
// It is what gets handed to the dispatcher after a successful save.
type RecordedEvent struct {
	// ID is the event record identifier.
	ID string

	// AggregateID is the aggregate the event belongs to.
	AggregateID string

	// AggregateType is the kind of aggregate, e.g. "Account".
	AggregateType string

	// Position is the global append position.
	Position uint64

	// Timestamp is when the event was stored.
	Timestamp time.Time

	// Event is the decoded domain event.
	Event Event
}

// Kind returns the wrapped event's kind.
func (r RecordedEvent) Kind() string {
	if r.Event == nil {
		return ""
	}
	return r.Event.Kind()
}
