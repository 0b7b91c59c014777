package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AshkanYarmoradi/go-ledger/adapters"
	"github.com/AshkanYarmoradi/go-ledger/adapters/memory"
)

// failingSerializer fails every call.
type failingSerializer struct{}

func (failingSerializer) Serialize(Event) ([]byte, error) {
	return nil, errors.New("cannot encode")
}

func (failingSerializer) Deserialize([]byte, string) (Event, error) {
	return nil, errors.New("cannot decode")
}

func TestNewStore(t *testing.T) {
	adapter := memory.NewAdapter()
	store := NewStore(adapter)

	assert.Same(t, adapter, store.Adapter())
	assert.IsType(t, &JSONSerializer{}, store.Serializer())
	assert.NoError(t, store.Initialize(context.Background()))
	assert.NoError(t, store.Ping(context.Background()))

	custom := NewJSONSerializerWithRegistry(NewEventRegistry())
	assert.Same(t, custom, NewStore(adapter, WithSerializer(custom)).Serializer())
}

func TestStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := NewStore(memory.NewAdapter())
	id := MustParseID("account-1")

	recorded, err := store.SaveEvents(ctx, id, AccountAggregateType, []Event{
		accountCreated("op-1"),
		credited("op-2", 10, 0),
	}, NewAggregateVersion)
	require.NoError(t, err)
	require.Len(t, recorded, 2)
	assert.Equal(t, "account-1", recorded[0].AggregateID)
	assert.Equal(t, AccountAggregateType, recorded[0].AggregateType)
	assert.Equal(t, KindAccountCredited, recorded[1].Kind())
	assert.Less(t, recorded[0].Position, recorded[1].Position)

	_, err = store.SaveEvents(ctx, id, AccountAggregateType, []Event{credited("op-3", 1, 0)}, 1)
	require.NoError(t, err)

	stream, err := store.LoadStream(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stream.Version)
	assert.Equal(t, []Event{accountCreated("op-1"), credited("op-2", 10, 0), credited("op-3", 1, 0)}, stream.Events)
}

func TestStore_LoadStream(t *testing.T) {
	ctx := context.Background()

	t.Run("missing aggregate", func(t *testing.T) {
		store := NewStore(memory.NewAdapter())

		_, err := store.LoadStream(ctx, MustParseID("nope"))

		var notFound *NotFoundError
		require.True(t, errors.As(err, &notFound))
		assert.Equal(t, "nope", notFound.AggregateID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("zero id", func(t *testing.T) {
		_, err := NewStore(memory.NewAdapter()).LoadStream(ctx, ID{})

		assert.ErrorIs(t, err, adapters.ErrEmptyAggregateID)
	})

	t.Run("undecodable payload", func(t *testing.T) {
		adapter := memory.NewAdapter()
		_, err := adapter.Append(ctx, "a", AccountAggregateType,
			[]adapters.EventRecord{{Kind: "Mystery", Data: []byte(`{}`)}}, adapters.NewAggregate)
		require.NoError(t, err)

		_, err = NewStore(adapter).LoadStream(ctx, MustParseID("a"))

		assert.ErrorIs(t, err, ErrEventKindNotRegistered)
	})

	t.Run("serializer failure", func(t *testing.T) {
		adapter := memory.NewAdapter()
		_, err := NewStore(adapter).SaveEvents(ctx, MustParseID("a"), AccountAggregateType, []Event{accountCreated("op-1")}, NewAggregateVersion)
		require.NoError(t, err)

		_, err = NewStore(adapter, WithSerializer(failingSerializer{})).LoadStream(ctx, MustParseID("a"))

		assert.ErrorContains(t, err, "cannot decode")
	})
}

func TestStore_SaveEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("new aggregate collision", func(t *testing.T) {
		store := NewStore(memory.NewAdapter())
		id := MustParseID("client-1")
		_, err := store.SaveEvents(ctx, id, ClientAggregateType, []Event{accountCreated("op-1")}, NewAggregateVersion)
		require.NoError(t, err)

		_, err = store.SaveEvents(ctx, id, ClientAggregateType, []Event{accountCreated("op-1")}, NewAggregateVersion)

		var conflict *ConcurrencyError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, NewAggregateVersion, conflict.ExpectedVersion)
		assert.ErrorIs(t, err, ErrConcurrencyConflict)
		assert.ErrorIs(t, err, ErrAggregateExists)
	})

	t.Run("stale version", func(t *testing.T) {
		adapter := memory.NewAdapter()
		store := NewStore(adapter)
		id := MustParseID("account-1")
		_, err := store.SaveEvents(ctx, id, AccountAggregateType, []Event{accountCreated("op-1")}, NewAggregateVersion)
		require.NoError(t, err)
		adapter.SetVersion("account-1", 5)

		_, err = store.SaveEvents(ctx, id, AccountAggregateType, []Event{credited("op-2", 1, 0)}, 1)

		var conflict *ConcurrencyError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, int64(1), conflict.ExpectedVersion)
		assert.Equal(t, int64(5), conflict.ActualVersion)
		assert.False(t, errors.Is(err, ErrAggregateExists))
	})

	t.Run("save at the current version bumps it once", func(t *testing.T) {
		adapter := memory.NewAdapter()
		store := NewStore(adapter)
		id := MustParseID("account-1")
		_, err := store.SaveEvents(ctx, id, AccountAggregateType, []Event{accountCreated("op-1")}, NewAggregateVersion)
		require.NoError(t, err)
		require.True(t, adapter.SetVersion("account-1", 5))

		_, err = store.SaveEvents(ctx, id, AccountAggregateType, []Event{credited("op-2", 1, 0)}, 5)
		require.NoError(t, err)

		stream, err := store.LoadStream(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(6), stream.Version)
		assert.Len(t, stream.Events, 2)

		_, err = store.SaveEvents(ctx, id, AccountAggregateType, []Event{credited("op-3", 1, 0)}, 5)

		var conflict *ConcurrencyError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, int64(5), conflict.ExpectedVersion)
		assert.Equal(t, int64(6), conflict.ActualVersion)

		stream, err = store.LoadStream(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(6), stream.Version)
		assert.Len(t, stream.Events, 2)
	})

	t.Run("existing version without a record", func(t *testing.T) {
		store := NewStore(memory.NewAdapter())

		_, err := store.SaveEvents(ctx, MustParseID("ghost"), AccountAggregateType, []Event{credited("op-1", 1, 0)}, 3)

		assert.ErrorIs(t, err, ErrConcurrencyConflict)
	})

	t.Run("invalid input", func(t *testing.T) {
		store := NewStore(memory.NewAdapter())

		_, err := store.SaveEvents(ctx, ID{}, AccountAggregateType, []Event{accountCreated("op-1")}, NewAggregateVersion)
		assert.ErrorIs(t, err, adapters.ErrEmptyAggregateID)

		_, err = store.SaveEvents(ctx, MustParseID("a"), AccountAggregateType, nil, NewAggregateVersion)
		assert.ErrorIs(t, err, adapters.ErrNoEvents)
	})

	t.Run("serializer failure appends nothing", func(t *testing.T) {
		adapter := memory.NewAdapter()
		store := NewStore(adapter, WithSerializer(failingSerializer{}))

		_, err := store.SaveEvents(ctx, MustParseID("a"), AccountAggregateType, []Event{accountCreated("op-1")}, NewAggregateVersion)

		assert.ErrorContains(t, err, "cannot encode")
		assert.Equal(t, 0, adapter.EventCount())
	})
}

func TestStore_Close(t *testing.T) {
	store := NewStore(memory.NewAdapter())

	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.Ping(context.Background()), ErrAdapterClosed)
	_, err := store.LoadStream(context.Background(), MustParseID("a"))
	assert.ErrorIs(t, err, ErrAdapterClosed)
}
