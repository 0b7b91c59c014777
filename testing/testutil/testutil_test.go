package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AshkanYarmoradi/go-ledger/adapters"
)

// =============================================================================
// Environment Tests
// =============================================================================

func TestKafkaBrokers(t *testing.T) {
	t.Run("splits and trims the list", func(t *testing.T) {
		t.Setenv(KafkaBrokersEnv, "kafka-1:9092, kafka-2:9092,,")

		assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, KafkaBrokers(t))
	})

	t.Run("unset skips the test", func(t *testing.T) {
		t.Setenv(KafkaBrokersEnv, "")

		KafkaBrokers(t)
		t.Fatal("KafkaBrokers should have skipped")
	})
}

func TestPostgresURL_UnsetSkips(t *testing.T) {
	t.Setenv(DatabaseURLEnv, "")

	PostgresURL(t)
	t.Fatal("PostgresURL should have skipped")
}

func TestUniqueSchema(t *testing.T) {
	schema := UniqueSchema("test")

	assert.Regexp(t, `^test_\d+$`, schema)
	assert.Contains(t, UniqueSchema("myprefix"), "myprefix_")
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"test_schema"`, quoteIdentifier("test_schema"))
	assert.Equal(t, `"test""schema"`, quoteIdentifier(`test"schema`))
}

// =============================================================================
// MockAdapter Tests
// =============================================================================

func TestMockAdapter_Append(t *testing.T) {
	ctx := context.Background()
	m := NewMockAdapter()

	stored, err := m.Append(ctx, "account-1", "Account", []adapters.EventRecord{
		{Kind: "AccountCreated", Data: []byte(`{}`)},
		{Kind: "AccountCredited", Data: []byte(`{}`)},
	}, adapters.NewAggregate)

	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, uint64(1), stored[0].Position)
	assert.Equal(t, uint64(2), stored[1].Position)
	assert.Equal(t, "AccountCredited", stored[1].Kind)

	calls := m.Appends()
	require.Len(t, calls, 1)
	assert.Equal(t, "account-1", calls[0].AggregateID)
	assert.Equal(t, adapters.NewAggregate, calls[0].ExpectedVersion)
}

func TestMockAdapter_Errors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	m := &MockAdapter{
		AppendErr:           boom,
		LoadErr:             boom,
		GetAggregateInfoErr: boom,
		InitializeErr:       boom,
		PingErr:             boom,
		CloseErr:            boom,
	}

	_, err := m.Append(ctx, "a", "Account", nil, 1)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, m.Appends(), 1, "failed appends are recorded")

	_, err = m.Load(ctx, "a")
	assert.ErrorIs(t, err, boom)
	_, err = m.GetAggregateInfo(ctx, "a")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, m.Initialize(ctx), boom)
	assert.ErrorIs(t, m.Ping(ctx), boom)
	assert.ErrorIs(t, m.Close(), boom)
}

func TestMockAdapter_Streams(t *testing.T) {
	ctx := context.Background()
	m := NewMockAdapter()
	m.Streams["account-1"] = &adapters.StreamRecord{
		AggregateID:   "account-1",
		AggregateType: "Account",
		Version:       3,
		Events:        []adapters.StoredEvent{{Kind: "AccountCreated", Timestamp: time.Now()}},
	}

	record, err := m.Load(ctx, "account-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), record.Version)

	info, err := m.GetAggregateInfo(ctx, "account-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.EventCount)

	_, err = m.Load(ctx, "missing")
	assert.ErrorIs(t, err, adapters.ErrAggregateNotFound)
	_, err = m.GetAggregateInfo(ctx, "missing")
	assert.ErrorIs(t, err, adapters.ErrAggregateNotFound)
}

// =============================================================================
// MockT Tests
// =============================================================================

func TestRunWithMockT(t *testing.T) {
	t.Run("fatal stops the function", func(t *testing.T) {
		reached := false
		mt := RunWithMockT(func(m *MockT) {
			m.Fatalf("stop %d", 1)
			reached = true
		})

		assert.True(t, mt.Failed())
		assert.True(t, mt.Fatal_)
		assert.Equal(t, "stop %d", mt.Message)
		assert.Equal(t, []string{"stop 1"}, mt.Reports)
		assert.False(t, reached)
	})

	t.Run("error keeps going", func(t *testing.T) {
		reached := false
		mt := RunWithMockT(func(m *MockT) {
			m.Error("soft")
			m.Errorf("balance %s", "1.-60")
			reached = true
		})

		assert.True(t, mt.Failed_)
		assert.False(t, mt.Fatal_)
		assert.Equal(t, "balance %s", mt.Message)
		assert.Equal(t, []string{"soft", "balance 1.-60"}, mt.Reports)
		assert.True(t, reached)
	})

	t.Run("clean run", func(t *testing.T) {
		mt := RunWithMockT(func(m *MockT) {})

		assert.False(t, mt.Failed())
	})
}

// =============================================================================
// PostgreSQL Integration Tests
// =============================================================================

func TestPostgresDB_Integration(t *testing.T) {
	db := PostgresDB(t)

	var result int
	require.NoError(t, db.QueryRowContext(context.Background(), "SELECT 1").Scan(&result))
	assert.Equal(t, 1, result)
}

func TestCleanupSchema_Integration(t *testing.T) {
	db := PostgresDB(t)
	ctx := context.Background()

	schemaExists := func(schema string) bool {
		var exists bool
		err := db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)",
			schema).Scan(&exists)
		require.NoError(t, err)
		return exists
	}

	schema := UniqueSchema("test_cleanup")
	_, err := db.ExecContext(ctx, `CREATE SCHEMA `+quoteIdentifier(schema))
	require.NoError(t, err)
	require.True(t, schemaExists(schema))

	require.NoError(t, CleanupSchema(ctx, db, schema))
	assert.False(t, schemaExists(schema))

	assert.NoError(t, CleanupSchema(ctx, db, "nonexistent_schema_12345"))

	t.Run("ledger schema is dropped after the test", func(t *testing.T) {
		var reserved string
		t.Run("reserve", func(t *testing.T) {
			reserved = LedgerSchema(t, db, "test_reserved")
			_, err := db.ExecContext(ctx, `CREATE SCHEMA `+quoteIdentifier(reserved))
			require.NoError(t, err)
		})
		assert.False(t, schemaExists(reserved))
	})
}
