package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AshkanYarmoradi/go-ledger/adapters"
)

func records(kinds ...string) []adapters.EventRecord {
	out := make([]adapters.EventRecord, len(kinds))
	for i, k := range kinds {
		out[i] = adapters.EventRecord{Kind: k, Data: []byte(fmt.Sprintf(`{"n":%d}`, i))}
	}
	return out
}

func TestNewAdapter(t *testing.T) {
	adapter := NewAdapter()

	assert.NotNil(t, adapter)
	assert.Equal(t, 0, adapter.EventCount())
	assert.Equal(t, 0, adapter.AggregateCount())
	assert.NoError(t, adapter.Initialize(context.Background()))
}

func TestMemoryAdapter_Append(t *testing.T) {
	ctx := context.Background()

	t.Run("new aggregate starts at version 1", func(t *testing.T) {
		adapter := NewAdapter()

		stored, err := adapter.Append(ctx, "account-1", "Account", records("AccountCreated"), adapters.NewAggregate)

		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, "account-1", stored[0].AggregateID)
		assert.Equal(t, "AccountCreated", stored[0].Kind)
		assert.Equal(t, uint64(1), stored[0].Position)
		assert.NotEmpty(t, stored[0].ID)

		info, err := adapter.GetAggregateInfo(ctx, "account-1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), info.Version)
		assert.Equal(t, "Account", info.AggregateType)
		assert.Equal(t, int64(1), info.EventCount)
	})

	t.Run("each append bumps the version once", func(t *testing.T) {
		adapter := NewAdapter()

		_, err := adapter.Append(ctx, "account-1", "Account", records("AccountCreated", "AccountMaximumDebtChanged"), adapters.NewAggregate)
		require.NoError(t, err)
		_, err = adapter.Append(ctx, "account-1", "Account", records("AccountCredited", "AccountDebited"), 1)
		require.NoError(t, err)
		_, err = adapter.Append(ctx, "account-1", "Account", records("AccountCredited"), 2)
		require.NoError(t, err)

		record, err := adapter.Load(ctx, "account-1")
		require.NoError(t, err)
		assert.Equal(t, int64(3), record.Version)
		require.Len(t, record.Events, 5)
		for i, e := range record.Events {
			assert.Equal(t, uint64(i+1), e.Position)
		}
	})

	t.Run("positions are global", func(t *testing.T) {
		adapter := NewAdapter()

		_, err := adapter.Append(ctx, "a", "Account", records("AccountCreated"), adapters.NewAggregate)
		require.NoError(t, err)
		stored, err := adapter.Append(ctx, "b", "Account", records("AccountCreated"), adapters.NewAggregate)
		require.NoError(t, err)

		assert.Equal(t, uint64(2), stored[0].Position)
		assert.Equal(t, 2, adapter.EventCount())
		assert.Equal(t, 2, adapter.AggregateCount())
	})

	t.Run("new aggregate collision", func(t *testing.T) {
		adapter := NewAdapter()
		_, err := adapter.Append(ctx, "client-1", "Client", records("ClientCreated"), adapters.NewAggregate)
		require.NoError(t, err)

		_, err = adapter.Append(ctx, "client-1", "Client", records("ClientCreated"), adapters.NewAggregate)

		assert.True(t, errors.Is(err, ErrAggregateExists))
		assert.Equal(t, 1, adapter.EventCount())
	})

	t.Run("stale version", func(t *testing.T) {
		adapter := NewAdapter()
		_, err := adapter.Append(ctx, "account-1", "Account", records("AccountCreated"), adapters.NewAggregate)
		require.NoError(t, err)
		_, err = adapter.Append(ctx, "account-1", "Account", records("AccountCredited"), 1)
		require.NoError(t, err)

		_, err = adapter.Append(ctx, "account-1", "Account", records("AccountCredited"), 1)

		assert.True(t, errors.Is(err, ErrConcurrencyConflict))
		record, err := adapter.Load(ctx, "account-1")
		require.NoError(t, err)
		assert.Len(t, record.Events, 2)
		assert.Equal(t, int64(2), record.Version)
	})

	t.Run("existing version on missing record", func(t *testing.T) {
		adapter := NewAdapter()

		_, err := adapter.Append(ctx, "ghost", "Account", records("AccountCredited"), 1)

		assert.True(t, errors.Is(err, ErrConcurrencyConflict))
		assert.Equal(t, 0, adapter.AggregateCount())
	})

	t.Run("invalid input", func(t *testing.T) {
		adapter := NewAdapter()

		_, err := adapter.Append(ctx, "", "Account", records("AccountCreated"), adapters.NewAggregate)
		assert.True(t, errors.Is(err, ErrEmptyAggregateID))

		_, err = adapter.Append(ctx, "a", "Account", nil, adapters.NewAggregate)
		assert.True(t, errors.Is(err, ErrNoEvents))

		_, err = adapter.Append(ctx, "a", "Account", records("AccountCreated"), -5)
		assert.True(t, errors.Is(err, ErrInvalidVersion))
	})

	t.Run("cancelled context", func(t *testing.T) {
		adapter := NewAdapter()
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := adapter.Append(cctx, "a", "Account", records("AccountCreated"), adapters.NewAggregate)

		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("uses the clock", func(t *testing.T) {
		fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		adapter := NewAdapter(WithClock(func() time.Time { return fixed }))

		stored, err := adapter.Append(ctx, "a", "Account", records("AccountCreated"), adapters.NewAggregate)

		require.NoError(t, err)
		assert.Equal(t, fixed, stored[0].Timestamp)
	})
}

func TestMemoryAdapter_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("missing aggregate", func(t *testing.T) {
		adapter := NewAdapter()

		_, err := adapter.Load(ctx, "nope")

		assert.True(t, errors.Is(err, ErrAggregateNotFound))
	})

	t.Run("empty id", func(t *testing.T) {
		adapter := NewAdapter()

		_, err := adapter.Load(ctx, "")

		assert.True(t, errors.Is(err, ErrEmptyAggregateID))
	})

	t.Run("returns copies", func(t *testing.T) {
		adapter := NewAdapter()
		_, err := adapter.Append(ctx, "a", "Account", records("AccountCreated"), adapters.NewAggregate)
		require.NoError(t, err)

		first, err := adapter.Load(ctx, "a")
		require.NoError(t, err)
		first.Events[0].Kind = "Tampered"

		second, err := adapter.Load(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "AccountCreated", second.Events[0].Kind)
	})
}

func TestMemoryAdapter_SetVersion(t *testing.T) {
	ctx := context.Background()
	adapter := NewAdapter()
	_, err := adapter.Append(ctx, "a", "Account", records("AccountCreated"), adapters.NewAggregate)
	require.NoError(t, err)

	assert.True(t, adapter.SetVersion("a", 10))
	assert.False(t, adapter.SetVersion("missing", 10))

	_, err = adapter.Append(ctx, "a", "Account", records("AccountCredited"), 1)
	assert.True(t, errors.Is(err, ErrConcurrencyConflict))

	_, err = adapter.Append(ctx, "a", "Account", records("AccountCredited"), 10)
	assert.NoError(t, err)
}

func TestMemoryAdapter_Close(t *testing.T) {
	ctx := context.Background()
	adapter := NewAdapter()
	require.NoError(t, adapter.Ping(ctx))

	require.NoError(t, adapter.Close())

	assert.True(t, errors.Is(adapter.Ping(ctx), ErrAdapterClosed))
	_, err := adapter.Append(ctx, "a", "Account", records("AccountCreated"), adapters.NewAggregate)
	assert.True(t, errors.Is(err, ErrAdapterClosed))
	_, err = adapter.Load(ctx, "a")
	assert.True(t, errors.Is(err, ErrAdapterClosed))
	_, err = adapter.GetAggregateInfo(ctx, "a")
	assert.True(t, errors.Is(err, ErrAdapterClosed))
}

func TestMemoryAdapter_Reset(t *testing.T) {
	ctx := context.Background()
	adapter := NewAdapter()
	_, err := adapter.Append(ctx, "a", "Account", records("AccountCreated"), adapters.NewAggregate)
	require.NoError(t, err)

	adapter.Reset()

	assert.Equal(t, 0, adapter.EventCount())
	assert.Equal(t, 0, adapter.AggregateCount())
}

func TestMemoryAdapter_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	adapter := NewAdapter()
	_, err := adapter.Append(ctx, "a", "Account", records("AccountCreated"), adapters.NewAggregate)
	require.NoError(t, err)

	const writers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := adapter.Append(ctx, "a", "Account", records("AccountCredited"), 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrConcurrencyConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, writers-1, conflicts)

	info, err := adapter.GetAggregateInfo(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.Version)
	assert.Equal(t, int64(2), info.EventCount)
}
