package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventMeta(t *testing.T) {
	meta := NewEventMeta(MustParseID("op-1"))

	assert.Equal(t, "op-1", meta.OperationID())
	assert.Equal(t, DefaultSchemaVersion, meta.SchemaVersion())
	assert.Equal(t, DefaultSchemaVersion, EventMeta{}.SchemaVersion(), "zero schema reads as the default")
	assert.Equal(t, 2, EventMeta{Schema: 2}.SchemaVersion())
}

func TestEventKinds(t *testing.T) {
	tests := []struct {
		event Event
		kind  string
	}{
		{AccountCreated{}, KindAccountCreated},
		{AccountCredited{}, KindAccountCredited},
		{AccountDebited{}, KindAccountDebited},
		{AccountMaximumDebtChanged{}, KindAccountMaximumDebtChanged},
		{ClientCreated{}, KindClientCreated},
		{AccountAddedToClient{}, KindAccountAddedToClient},
		{AccountRemovedFromClient{}, KindAccountRemovedFromClient},
	}

	seen := make(map[string]bool)
	for _, tt := range tests {
		assert.Equal(t, tt.kind, tt.event.Kind())
		assert.False(t, seen[tt.kind], "duplicate kind %s", tt.kind)
		seen[tt.kind] = true
	}
}

func TestAmountEvents(t *testing.T) {
	assert.Equal(t, NewAmount(3, 20), AccountCredited{Dollars: 3, Cents: 20}.Amount())
	assert.Equal(t, NewAmount(4, 10), AccountDebited{Dollars: 3, Cents: 110}.Amount())
	assert.Equal(t, NewAmount(100, 0), AccountMaximumDebtChanged{Dollars: 100}.Amount())
}

func TestNewEventStream(t *testing.T) {
	stream := NewEventStream(accountCreated("op-1"))

	assert.Equal(t, NewAggregateVersion, stream.Version)
	assert.Len(t, stream.Events, 1)
}

func TestRecordedEvent_Kind(t *testing.T) {
	recorded := RecordedEvent{
		ID:          "evt-1",
		AggregateID: "account-1",
		Position:    7,
		Timestamp:   time.Now(),
		Event:       credited("op-1", 1, 0),
	}

	assert.Equal(t, KindAccountCredited, recorded.Kind())
	assert.Equal(t, "", RecordedEvent{}.Kind())
}
