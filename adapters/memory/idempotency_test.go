package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AshkanYarmoradi/go-ledger/adapters"
)

func idempotencyRecord(key string, expiresIn time.Duration) *adapters.IdempotencyRecord {
	now := time.Now()
	return &adapters.IdempotencyRecord{
		Key:         key,
		CommandType: "RegisterClient",
		AggregateID: "client-1",
		Version:     1,
		ProcessedAt: now,
		ExpiresAt:   now.Add(expiresIn),
	}
}

func TestIdempotencyStore_StoreAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewIdempotencyStore()
	defer store.Close()

	t.Run("missing key", func(t *testing.T) {
		record, err := store.Get(ctx, "RegisterClient::op-0")
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("stored record comes back", func(t *testing.T) {
		require.NoError(t, store.Store(ctx, idempotencyRecord("RegisterClient::op-1", time.Hour)))

		record, err := store.Get(ctx, "RegisterClient::op-1")
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, "client-1", record.AggregateID)
		assert.Equal(t, int64(1), record.Version)
	})

	t.Run("returned record is a copy", func(t *testing.T) {
		record, err := store.Get(ctx, "RegisterClient::op-1")
		require.NoError(t, err)
		record.AggregateID = "changed"

		again, err := store.Get(ctx, "RegisterClient::op-1")
		require.NoError(t, err)
		assert.Equal(t, "client-1", again.AggregateID)
	})

	t.Run("expired record is hidden", func(t *testing.T) {
		require.NoError(t, store.Store(ctx, idempotencyRecord("RegisterClient::op-2", -time.Minute)))

		record, err := store.Get(ctx, "RegisterClient::op-2")
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := store.Get(cancelled, "RegisterClient::op-1")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestIdempotencyStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewIdempotencyStore()

	require.NoError(t, store.Store(ctx, idempotencyRecord("k", time.Hour)))
	require.NoError(t, store.Delete(ctx, "k"))
	require.NoError(t, store.Delete(ctx, "k"))

	assert.Equal(t, 0, store.Len())
}

func TestIdempotencyStore_Cleanup(t *testing.T) {
	ctx := context.Background()
	store := NewIdempotencyStore()

	require.NoError(t, store.Store(ctx, idempotencyRecord("live", time.Hour)))
	require.NoError(t, store.Store(ctx, idempotencyRecord("recent", -time.Minute)))
	require.NoError(t, store.Store(ctx, idempotencyRecord("old", -2*time.Hour)))

	removed, err := store.Cleanup(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, 2, store.Len())

	removed, err = store.Cleanup(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, 1, store.Len())
}

func TestIdempotencyStore_Sweep(t *testing.T) {
	ctx := context.Background()
	store := NewIdempotencyStore(WithSweepInterval(5 * time.Millisecond))

	require.NoError(t, store.Store(ctx, idempotencyRecord("gone", -time.Minute)))

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
