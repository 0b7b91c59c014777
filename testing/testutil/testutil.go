// Package testutil provides helpers for ledger tests: a scriptable adapter,
// a recording testing.TB, and the environment plumbing for integration tests
// against PostgreSQL and Kafka.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Environment variables that enable integration tests.
const (
	DatabaseURLEnv  = "TEST_DATABASE_URL"
	KafkaBrokersEnv = "TEST_KAFKA_BROKERS"
)

// PostgresURL returns TEST_DATABASE_URL, skipping the test when it is unset
// or when running with -short.
func PostgresURL(t testing.TB) string {
	t.Helper()
	return requireEnv(t, DatabaseURLEnv)
}

// KafkaBrokers returns the comma separated TEST_KAFKA_BROKERS, skipping the
// test when it is unset or when running with -short.
func KafkaBrokers(t testing.TB) []string {
	t.Helper()
	var brokers []string
	for _, b := range strings.Split(requireEnv(t, KafkaBrokersEnv), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func requireEnv(t testing.TB, key string) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	v := os.Getenv(key)
	if v == "" {
		t.Skip(key + " not set, skipping integration test")
	}
	return v
}

// PostgresDB opens the integration database and closes it when the test ends.
// It retries the first ping for a few seconds so a database that is still
// starting does not fail the run.
func PostgresDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := sql.Open("pgx", PostgresURL(t))
	if err != nil {
		t.Fatalf("testutil: open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := waitForPostgres(context.Background(), db, 10, 500*time.Millisecond); err != nil {
		t.Fatalf("testutil: %v", err)
	}
	return db
}

func waitForPostgres(ctx context.Context, db *sql.DB, attempts int, pause time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		time.Sleep(pause)
	}
	return fmt.Errorf("postgres not reachable after %d attempts: %w", attempts, err)
}

// LedgerSchema reserves a unique schema name for one test and drops the
// schema, with everything the ledger migrated into it, when the test ends.
func LedgerSchema(t testing.TB, db *sql.DB, prefix string) string {
	t.Helper()
	schema := UniqueSchema(prefix)
	t.Cleanup(func() {
		if err := CleanupSchema(context.Background(), db, schema); err != nil {
			t.Errorf("testutil: drop schema %s: %v", schema, err)
		}
	})
	return schema
}

// CleanupSchema drops a schema and all its objects.
func CleanupSchema(ctx context.Context, db *sql.DB, schema string) error {
	_, err := db.ExecContext(ctx, "DROP SCHEMA IF EXISTS "+quoteIdentifier(schema)+" CASCADE")
	return err
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// UniqueSchema returns prefix followed by a nanosecond timestamp, which is a
// valid unquoted identifier for the postgres adapter.
func UniqueSchema(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}
