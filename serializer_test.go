package ledger

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allEvents() []Event {
	meta := EventMeta{Operation: "op-1", Schema: 1}
	return []Event{
		AccountCreated{EventMeta: meta, ClientID: "client-1", AccountID: "account-1", AccountName: "checking"},
		AccountCredited{EventMeta: meta, AccountID: "account-1", Dollars: 10, Cents: 5},
		AccountDebited{EventMeta: meta, AccountID: "account-1", Dollars: 3, Cents: -2},
		AccountMaximumDebtChanged{EventMeta: meta, AccountID: "account-1", Dollars: 100},
		ClientCreated{EventMeta: meta, ClientID: "client-1", SSN: 123456789, FirstName: "Ada", LastName: "Lovelace", Birthdate: "10/12/1815"},
		AccountAddedToClient{EventMeta: meta, ClientID: "client-1", AccountID: "account-1", AccountName: "checking"},
		AccountRemovedFromClient{EventMeta: meta, ClientID: "client-1", AccountID: "account-1"},
	}
}

func TestEventRegistry(t *testing.T) {
	t.Run("default registry knows every kind", func(t *testing.T) {
		r := DefaultRegistry()

		assert.Equal(t, 7, r.Count())
		for _, e := range allEvents() {
			assert.True(t, r.IsRegistered(e.Kind()), e.Kind())
		}
		assert.Equal(t, []string{
			KindAccountAddedToClient,
			KindAccountCreated,
			KindAccountCredited,
			KindAccountDebited,
			KindAccountMaximumDebtChanged,
			KindAccountRemovedFromClient,
			KindClientCreated,
		}, r.Kinds())
	})

	t.Run("unknown kind", func(t *testing.T) {
		r := NewEventRegistry()

		_, err := r.Decode("Nope", func(interface{}) error { return nil })

		var notRegistered *EventKindNotRegisteredError
		require.True(t, errors.As(err, &notRegistered))
		assert.Equal(t, "Nope", notRegistered.EventKind)
	})

	t.Run("decode failure is a serialization error", func(t *testing.T) {
		r := DefaultRegistry()

		_, err := r.Decode(KindAccountCredited, func(interface{}) error { return errors.New("truncated") })

		assert.ErrorIs(t, err, ErrSerializationFailed)
	})

	t.Run("register replaces", func(t *testing.T) {
		r := NewEventRegistry()
		RegisterEvent[AccountCredited](r)
		r.Register(KindAccountCredited, func(DecodeFunc) (Event, error) {
			return AccountCredited{Dollars: 42}, nil
		})

		e, err := r.Decode(KindAccountCredited, nil)

		require.NoError(t, err)
		assert.Equal(t, int64(42), e.(AccountCredited).Dollars)
		assert.Equal(t, 1, r.Count())
	})
}

func TestJSONSerializer(t *testing.T) {
	s := NewJSONSerializer()

	for _, e := range allEvents() {
		t.Run(e.Kind(), func(t *testing.T) {
			data, err := s.Serialize(e)
			require.NoError(t, err)

			decoded, err := s.Deserialize(data, e.Kind())

			require.NoError(t, err)
			assert.Equal(t, e, decoded)
		})
	}
}

func TestJSONSerializer_Payload(t *testing.T) {
	data, err := NewJSONSerializer().Serialize(AccountCredited{
		EventMeta: EventMeta{Operation: "op-1", Schema: 1},
		AccountID: "account-1",
		Dollars:   10,
		Cents:     5,
	})
	require.NoError(t, err)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "op-1", payload["operation_id"])
	assert.Equal(t, "account-1", payload["account_id"])
	assert.EqualValues(t, 10, payload["dollars"])
	assert.EqualValues(t, 5, payload["cents"])
}

func TestJSONSerializer_Errors(t *testing.T) {
	s := NewJSONSerializer()

	_, err := s.Serialize(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = s.Deserialize(nil, KindAccountCredited)
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = s.Deserialize([]byte(`{not json`), KindAccountCredited)
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = s.Deserialize([]byte(`{}`), "Unknown")
	assert.ErrorIs(t, err, ErrEventKindNotRegistered)
}

func TestNewJSONSerializerWithRegistry(t *testing.T) {
	r := NewEventRegistry()
	RegisterEvent[AccountCreated](r)
	s := NewJSONSerializerWithRegistry(r)

	assert.Same(t, r, s.Registry())
	_, err := s.Deserialize([]byte(`{}`), KindAccountCredited)
	assert.ErrorIs(t, err, ErrEventKindNotRegistered)

	assert.Equal(t, 7, NewJSONSerializerWithRegistry(nil).Registry().Count())
}
