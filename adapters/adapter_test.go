package adapters

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrConcurrencyConflict", ErrConcurrencyConflict},
		{"ErrAggregateNotFound", ErrAggregateNotFound},
		{"ErrAggregateExists", ErrAggregateExists},
		{"ErrEmptyAggregateID", ErrEmptyAggregateID},
		{"ErrNoEvents", ErrNoEvents},
		{"ErrInvalidVersion", ErrInvalidVersion},
		{"ErrAdapterClosed", ErrAdapterClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name+" has ledger prefix", func(t *testing.T) {
			assert.Contains(t, tt.err.Error(), "ledger:")
		})

		t.Run(tt.name+" is distinct", func(t *testing.T) {
			for _, other := range tests {
				if tt.name != other.name {
					assert.False(t, errors.Is(tt.err, other.err),
						"%s should not match %s", tt.name, other.name)
				}
			}
		})
	}
}

func TestStoredEvent(t *testing.T) {
	now := time.Now()
	event := StoredEvent{
		ID:          "event-1",
		AggregateID: "account-1",
		Kind:        "AccountCredited",
		Data:        []byte(`{"dollars":10}`),
		Position:    42,
		Timestamp:   now,
	}

	assert.Equal(t, "event-1", event.ID)
	assert.Equal(t, "account-1", event.AggregateID)
	assert.Equal(t, "AccountCredited", event.Kind)
	assert.Equal(t, uint64(42), event.Position)
	assert.Equal(t, now, event.Timestamp)
}

func TestStreamRecord(t *testing.T) {
	record := StreamRecord{
		AggregateID:   "client-1",
		AggregateType: "Client",
		Version:       InitialVersion,
		Events:        []StoredEvent{{Kind: "ClientCreated"}},
	}

	assert.Equal(t, int64(1), record.Version)
	assert.Len(t, record.Events, 1)
}
