package ledger

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// ID is an opaque identifier for aggregates and operations.
// A fresh ID wraps a random UUID; a parsed ID wraps any caller-supplied string.
type ID struct {
	value string
}

// NewID returns a freshly generated random identifier.
func NewID() ID {
	return ID{value: uuid.New().String()}
}

// ParseID wraps a caller-supplied identifier.
func ParseID(s string) (ID, error) {
	if s == "" {
		return ID{}, NewValidationError("id", "must not be empty")
	}
	return ID{value: s}, nil
}

// MustParseID is like ParseID but panics on an empty string.
func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IDOrNew parses s, or generates a fresh identifier when s is empty.
// Commands use it for optional operation ids.
func IDOrNew(s string) ID {
	if s == "" {
		return NewID()
	}
	return ID{value: s}
}

// String returns the wrapped value.
func (id ID) String() string {
	return id.value
}

// IsZero reports whether the identifier is unset.
func (id ID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON encodes the identifier as a plain string.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

// UnmarshalJSON decodes a plain string.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		return errors.New("ledger: empty identifier")
	}
	id.value = s
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	id.value = string(text)
	return nil
}
