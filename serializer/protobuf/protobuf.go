// Package protobuf provides a Protocol Buffers serializer for ledger events.
//
// Events are plain Go structs, so payloads are encoded as a
// google.protobuf.Struct built from the event's JSON field names. Any
// protobuf runtime can read them without generated code.
//
// Usage:
//
//	s := protobuf.NewSerializer()
//	store := ledger.NewStore(adapter, ledger.WithSerializer(s))
package protobuf

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/AshkanYarmoradi/go-ledger"
)

var (
	// ErrNilEvent indicates an attempt to serialize a nil event.
	ErrNilEvent = errors.New("ledger/protobuf: cannot serialize nil event")

	// ErrEmptyData indicates an attempt to deserialize empty data.
	ErrEmptyData = errors.New("ledger/protobuf: cannot deserialize empty data")
)

// Serializer implements ledger.Serializer using Protocol Buffers.
type Serializer struct {
	registry *ledger.EventRegistry
}

var _ ledger.Serializer = (*Serializer)(nil)

// SerializerOption configures the Serializer.
type SerializerOption func(*Serializer)

// WithRegistry sets the event registry used for decoding.
func WithRegistry(registry *ledger.EventRegistry) SerializerOption {
	return func(s *Serializer) {
		if registry != nil {
			s.registry = registry
		}
	}
}

// NewSerializer creates a Protocol Buffers serializer over ledger.DefaultRegistry.
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

// Serialize converts an event to a binary google.protobuf.Struct.
func (s *Serializer) Serialize(event ledger.Event) ([]byte, error) {
	if event == nil {
		return nil, ledger.NewSerializationError("nil", "serialize", ErrNilEvent)
	}

	msg, err := ToStruct(event)
	if err != nil {
		return nil, ledger.NewSerializationError(event.Kind(), "serialize", err)
	}

	data, err := proto.Marshal(msg)
	if err != nil {
		return nil, ledger.NewSerializationError(event.Kind(), "serialize", err)
	}
	return data, nil
}

// Deserialize converts a binary google.protobuf.Struct back to an event.
func (s *Serializer) Deserialize(data []byte, kind string) (ledger.Event, error) {
	if data == nil {
		return nil, ledger.NewSerializationError(kind, "deserialize", ErrEmptyData)
	}

	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return nil, ledger.NewSerializationError(kind, "deserialize", err)
	}

	// AsMap yields float64 numbers; encoding/json writes integral values
	// without an exponent so they decode back into int64 fields.
	raw, err := json.Marshal(msg.AsMap())
	if err != nil {
		return nil, ledger.NewSerializationError(kind, "deserialize", err)
	}

	return s.registry.Decode(kind, func(target interface{}) error {
		return json.Unmarshal(raw, target)
	})
}

// ToStruct converts an event to a google.protobuf.Struct keyed by its JSON field names.
func ToStruct(event ledger.Event) (*structpb.Struct, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}

	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("ledger/protobuf: failed to build struct: %w", err)
	}
	return msg, nil
}

// MarshalText renders a serialized payload as protobuf JSON, for diagnostics.
func MarshalText(data []byte) (string, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return "", fmt.Errorf("ledger/protobuf: failed to decode payload: %w", err)
	}

	out, err := protojson.MarshalOptions{Multiline: false}.Marshal(&msg)
	if err != nil {
		return "", fmt.Errorf("ledger/protobuf: failed to render payload: %w", err)
	}
	return string(out), nil
}
