package ledger

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
)

// Serializer handles event payload serialization and deserialization.
type Serializer interface {
	// Serialize converts an event to bytes.
	Serialize(event Event) ([]byte, error)

	// Deserialize converts bytes back to an event.
	// The kind selects the target type through an EventRegistry.
	Deserialize(data []byte, kind string) (Event, error)
}

// DecodeFunc decodes a serialized payload into target, a pointer to an event value.
type DecodeFunc func(target interface{}) error

// EventFactory decodes one event kind using the given DecodeFunc.
type EventFactory func(decode DecodeFunc) (Event, error)

// EventRegistry maps event kinds to constructors.
// Decoding never inspects types at runtime: each kind is bound to a factory
// that knows its concrete type.
type EventRegistry struct {
	mu        sync.RWMutex
	factories map[string]EventFactory
}

// NewEventRegistry creates a new empty EventRegistry.
func NewEventRegistry() *EventRegistry {
	return &EventRegistry{
		factories: make(map[string]EventFactory),
	}
}

// Register binds a kind to a factory, replacing any previous binding.
func (r *EventRegistry) Register(kind string, factory EventFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[kind] = factory
}

// RegisterEvent binds E's kind to a factory decoding into a value of E.
func RegisterEvent[E Event](r *EventRegistry) {
	var zero E
	r.Register(zero.Kind(), func(decode DecodeFunc) (Event, error) {
		var e E
		if err := decode(&e); err != nil {
			return nil, err
		}
		return e, nil
	})
}

// Decode builds the event of the given kind.
// Unknown kinds fail with EventKindNotRegisteredError.
func (r *EventRegistry) Decode(kind string, decode DecodeFunc) (Event, error) {
	r.mu.RLock()
	factory, ok := r.factories[kind]
	r.mu.RUnlock()

	if !ok {
		return nil, NewEventKindNotRegisteredError(kind)
	}

	event, err := factory(decode)
	if err != nil {
		return nil, NewSerializationError(kind, "deserialize", err)
	}
	return event, nil
}

// IsRegistered reports whether kind has a factory.
func (r *EventRegistry) IsRegistered(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.factories[kind]
	return ok
}

// Kinds returns all registered kinds, sorted.
func (r *EventRegistry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Count returns the number of registered event kinds.
func (r *EventRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// DefaultRegistry returns a registry populated with every ledger event kind.
func DefaultRegistry() *EventRegistry {
	r := NewEventRegistry()
	RegisterEvent[AccountCreated](r)
	RegisterEvent[AccountCredited](r)
	RegisterEvent[AccountDebited](r)
	RegisterEvent[AccountMaximumDebtChanged](r)
	RegisterEvent[ClientCreated](r)
	RegisterEvent[AccountAddedToClient](r)
	RegisterEvent[AccountRemovedFromClient](r)
	return r
}

// JSONSerializer is the default Serializer implementation using JSON encoding.
type JSONSerializer struct {
	registry *EventRegistry
}

// NewJSONSerializer creates a JSONSerializer over DefaultRegistry.
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{
		registry: DefaultRegistry(),
	}
}

// NewJSONSerializerWithRegistry creates a new JSONSerializer with the given registry.
func NewJSONSerializerWithRegistry(registry *EventRegistry) *JSONSerializer {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &JSONSerializer{
		registry: registry,
	}
}

// Registry returns the underlying EventRegistry.
func (s *JSONSerializer) Registry() *EventRegistry {
	return s.registry
}

// Serialize converts an event to JSON bytes.
func (s *JSONSerializer) Serialize(event Event) ([]byte, error) {
	if event == nil {
		return nil, NewSerializationError("nil", "serialize", errors.New("event cannot be nil"))
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, NewSerializationError(event.Kind(), "serialize", err)
	}

	return data, nil
}

// Deserialize converts JSON bytes back to an event.
func (s *JSONSerializer) Deserialize(data []byte, kind string) (Event, error) {
	if len(data) == 0 {
		return nil, NewSerializationError(kind, "deserialize", errors.New("data cannot be empty"))
	}

	return s.registry.Decode(kind, func(target interface{}) error {
		return json.Unmarshal(data, target)
	})
}

var _ Serializer = (*JSONSerializer)(nil)
