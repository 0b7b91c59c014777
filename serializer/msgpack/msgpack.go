// Package msgpack provides a MessagePack serializer for ledger events.
//
// MessagePack payloads are smaller than JSON and keep the same field names,
// which makes it a drop-in choice for high-volume ledgers.
//
// Basic usage:
//
//	store := ledger.NewStore(adapter, ledger.WithSerializer(msgpack.NewSerializer()))
package msgpack

import (
	"errors"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/AshkanYarmoradi/go-ledger"
)

// Serializer is a MessagePack implementation of ledger.Serializer.
type Serializer struct {
	registry *ledger.EventRegistry
}

var _ ledger.Serializer = (*Serializer)(nil)

// SerializerOption configures a Serializer.
type SerializerOption func(*Serializer)

// WithRegistry sets the event registry used for decoding.
func WithRegistry(registry *ledger.EventRegistry) SerializerOption {
	return func(s *Serializer) {
		if registry != nil {
			s.registry = registry
		}
	}
}

// NewSerializer creates a MessagePack serializer over ledger.DefaultRegistry.
func NewSerializer(opts ...SerializerOption) *Serializer {
	s := &Serializer{registry: ledger.DefaultRegistry()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the event registry.
func (s *Serializer) Registry() *ledger.EventRegistry {
	return s.registry
}

// Serialize converts an event to MessagePack bytes.
func (s *Serializer) Serialize(event ledger.Event) ([]byte, error) {
	if event == nil {
		return nil, ledger.NewSerializationError("nil", "serialize", errors.New("event cannot be nil"))
	}

	data, err := msgpack.Marshal(event)
	if err != nil {
		return nil, ledger.NewSerializationError(event.Kind(), "serialize", err)
	}
	return data, nil
}

// Deserialize converts MessagePack bytes back to an event of the given kind.
func (s *Serializer) Deserialize(data []byte, kind string) (ledger.Event, error) {
	if len(data) == 0 {
		return nil, ledger.NewSerializationError(kind, "deserialize", errors.New("data cannot be empty"))
	}

	return s.registry.Decode(kind, func(target interface{}) error {
		return msgpack.Unmarshal(data, target)
	})
}
