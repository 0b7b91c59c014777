// Package postgres provides a PostgreSQL implementation of the event store adapter.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/AshkanYarmoradi/go-ledger/adapters"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// DefaultSchema is the schema used when none is configured.
const DefaultSchema = "ledger"

// Sentinel errors for the postgres adapter.
// These are aliases to the adapters package errors for compatibility with errors.Is().
var (
	ErrAdapterClosed       = adapters.ErrAdapterClosed
	ErrEmptyAggregateID    = adapters.ErrEmptyAggregateID
	ErrNoEvents            = adapters.ErrNoEvents
	ErrConcurrencyConflict = adapters.ErrConcurrencyConflict
	ErrAggregateNotFound   = adapters.ErrAggregateNotFound
	ErrAggregateExists     = adapters.ErrAggregateExists
	ErrInvalidVersion      = adapters.ErrInvalidVersion

	// ErrInvalidSchema is returned when the schema name is not a plain identifier.
	ErrInvalidSchema = errors.New("ledger/postgres: invalid schema name")
)

var schemaPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

// Ensure PostgresAdapter implements required interfaces.
var (
	_ adapters.EventStoreAdapter = (*PostgresAdapter)(nil)
	_ adapters.HealthChecker     = (*PostgresAdapter)(nil)
	_ adapters.Migrator          = (*PostgresAdapter)(nil)
)

// PostgresAdapter is a PostgreSQL implementation of EventStoreAdapter.
//
// Tables:
//   - aggregates(uuid, type, version): one row per aggregate, version bumped on every append
//   - events(uuid, aggregate_uuid, position, name, data, created_at): the append-only log
//   - idempotency(key, ...): committed command outcomes, see IdempotencyStore
type PostgresAdapter struct {
	db     *sql.DB
	schema string
	closed atomic.Bool
}

// Option configures a PostgresAdapter.
type Option func(*PostgresAdapter)

// WithSchema sets the database schema name.
func WithSchema(schema string) Option {
	return func(a *PostgresAdapter) {
		a.schema = schema
	}
}

// WithMaxConnections sets the maximum number of open connections.
func WithMaxConnections(n int) Option {
	return func(a *PostgresAdapter) {
		a.db.SetMaxOpenConns(n)
	}
}

// WithMaxIdleConnections sets the maximum number of idle connections.
func WithMaxIdleConnections(n int) Option {
	return func(a *PostgresAdapter) {
		a.db.SetMaxIdleConns(n)
	}
}

// WithConnectionMaxLifetime sets the maximum connection lifetime.
func WithConnectionMaxLifetime(d time.Duration) Option {
	return func(a *PostgresAdapter) {
		a.db.SetConnMaxLifetime(d)
	}
}

// NewAdapter creates a new PostgreSQL event store adapter.
func NewAdapter(connStr string, opts ...Option) (*PostgresAdapter, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("ledger/postgres: failed to open database: %w", err)
	}

	adapter := NewAdapterWithDB(db, opts...)
	if !schemaPattern.MatchString(adapter.schema) {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %q", ErrInvalidSchema, adapter.schema)
	}

	return adapter, nil
}

// NewAdapterWithDB creates a new adapter with an existing database connection.
func NewAdapterWithDB(db *sql.DB, opts ...Option) *PostgresAdapter {
	adapter := &PostgresAdapter{
		db:     db,
		schema: DefaultSchema,
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// Initialize creates the required database schema and tables.
func (a *PostgresAdapter) Initialize(ctx context.Context) error {
	return a.Migrate(ctx)
}

// Migrate runs database migrations.
func (a *PostgresAdapter) Migrate(ctx context.Context) error {
	if !schemaPattern.MatchString(a.schema) {
		return fmt.Errorf("%w: %q", ErrInvalidSchema, a.schema)
	}

	for _, stmt := range MigrationStatements(a.schema) {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ledger/postgres: failed to migrate: %w", err)
		}
	}

	return nil
}

// MigrationStatements returns the DDL for the given schema, in execution order.
func MigrationStatements(schema string) []string {
	return []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, schema),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.aggregates (
			uuid        VARCHAR(64) PRIMARY KEY,
			type        VARCHAR(250) NOT NULL DEFAULT '',
			version     BIGINT NOT NULL DEFAULT 1,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, schema),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.events (
			uuid            UUID PRIMARY KEY,
			aggregate_uuid  VARCHAR(64) NOT NULL REFERENCES %s.aggregates(uuid),
			position        BIGSERIAL NOT NULL,
			name            VARCHAR(250) NOT NULL,
			data            BYTEA NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, schema, schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_events_aggregate ON %s.events(aggregate_uuid, position)`, schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_events_name ON %s.events(name)`, schema),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.idempotency (
			key           VARCHAR(512) PRIMARY KEY,
			command_type  VARCHAR(250) NOT NULL,
			aggregate_id  VARCHAR(64) NOT NULL DEFAULT '',
			version       BIGINT NOT NULL DEFAULT 0,
			processed_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			expires_at    TIMESTAMPTZ NOT NULL
		)`, schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_idempotency_expires ON %s.idempotency(expires_at)`, schema),
	}
}

// MigrationVersion returns the current migration version.
func (a *PostgresAdapter) MigrationVersion(ctx context.Context) (int, error) {
	var exists bool
	err := a.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = $1 AND table_name = 'events'
		)`, a.schema).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("ledger/postgres: failed to read migration version: %w", err)
	}

	if exists {
		return 1, nil
	}
	return 0, nil
}

// Append stores events for an aggregate with optimistic concurrency control.
func (a *PostgresAdapter) Append(ctx context.Context, aggregateID, aggregateType string, events []adapters.EventRecord, expectedVersion int64) ([]adapters.StoredEvent, error) {
	if a.closed.Load() {
		return nil, ErrAdapterClosed
	}

	if aggregateID == "" {
		return nil, ErrEmptyAggregateID
	}

	if len(events) == 0 {
		return nil, ErrNoEvents
	}

	if expectedVersion < adapters.NewAggregate {
		return nil, ErrInvalidVersion
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger/postgres: failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if expectedVersion == adapters.NewAggregate {
		_, err = tx.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s.aggregates (uuid, type, version)
			VALUES ($1, $2, $3)`, a.schema), aggregateID, aggregateType, adapters.InitialVersion)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return nil, adapters.NewAggregateExistsError(aggregateID, err)
			}
			return nil, fmt.Errorf("ledger/postgres: failed to create aggregate: %w", err)
		}
	} else {
		var currentVersion int64
		exists := true
		err = tx.QueryRowContext(ctx, fmt.Sprintf(`
			SELECT version FROM %s.aggregates
			WHERE uuid = $1
			FOR UPDATE`, a.schema), aggregateID).Scan(&currentVersion)
		if errors.Is(err, sql.ErrNoRows) {
			exists = false
		} else if err != nil {
			return nil, fmt.Errorf("ledger/postgres: failed to get aggregate version: %w", err)
		}

		if err := adapters.CheckVersion(aggregateID, expectedVersion, currentVersion, exists); err != nil {
			return nil, err
		}

		res, err := tx.ExecContext(ctx, fmt.Sprintf(`
			UPDATE %s.aggregates
			SET version = version + 1, updated_at = NOW()
			WHERE uuid = $1 AND version = $2`, a.schema), aggregateID, expectedVersion)
		if err != nil {
			return nil, fmt.Errorf("ledger/postgres: failed to bump aggregate version: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return nil, fmt.Errorf("ledger/postgres: failed to bump aggregate version: %w", err)
		} else if n != 1 {
			return nil, adapters.NewConcurrencyError(aggregateID, expectedVersion, currentVersion, exists)
		}
	}

	stored := make([]adapters.StoredEvent, len(events))
	for i, event := range events {
		id := uuid.New().String()

		var position int64
		var timestamp time.Time
		err = tx.QueryRowContext(ctx, fmt.Sprintf(`
			INSERT INTO %s.events (uuid, aggregate_uuid, name, data)
			VALUES ($1, $2, $3, $4)
			RETURNING position, created_at`, a.schema),
			id, aggregateID, event.Kind, event.Data,
		).Scan(&position, &timestamp)
		if err != nil {
			return nil, fmt.Errorf("ledger/postgres: failed to insert event: %w", err)
		}

		stored[i] = adapters.StoredEvent{
			ID:          id,
			AggregateID: aggregateID,
			Kind:        event.Kind,
			Data:        event.Data,
			Position:    uint64(position),
			Timestamp:   timestamp,
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ledger/postgres: failed to commit transaction: %w", err)
	}

	return stored, nil
}

// Load returns the aggregate record and all of its events.
func (a *PostgresAdapter) Load(ctx context.Context, aggregateID string) (*adapters.StreamRecord, error) {
	if a.closed.Load() {
		return nil, ErrAdapterClosed
	}

	if aggregateID == "" {
		return nil, ErrEmptyAggregateID
	}

	// A read-only transaction keeps the version and the events consistent with each other.
	tx, err := a.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("ledger/postgres: failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	record := &adapters.StreamRecord{AggregateID: aggregateID}
	err = tx.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT type, version FROM %s.aggregates
		WHERE uuid = $1`, a.schema), aggregateID).Scan(&record.AggregateType, &record.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, adapters.NewAggregateNotFoundError(aggregateID)
	}
	if err != nil {
		return nil, fmt.Errorf("ledger/postgres: failed to load aggregate: %w", err)
	}

	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`
		SELECT uuid, aggregate_uuid, position, name, data, created_at
		FROM %s.events
		WHERE aggregate_uuid = $1
		ORDER BY position`, a.schema), aggregateID)
	if err != nil {
		return nil, fmt.Errorf("ledger/postgres: failed to load events: %w", err)
	}
	defer rows.Close()

	record.Events = make([]adapters.StoredEvent, 0)
	for rows.Next() {
		var event adapters.StoredEvent
		var position int64

		if err := rows.Scan(
			&event.ID,
			&event.AggregateID,
			&position,
			&event.Kind,
			&event.Data,
			&event.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("ledger/postgres: failed to scan event: %w", err)
		}

		event.Position = uint64(position)
		record.Events = append(record.Events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger/postgres: error iterating events: %w", err)
	}

	return record, nil
}

// GetAggregateInfo returns the aggregate record without its events.
func (a *PostgresAdapter) GetAggregateInfo(ctx context.Context, aggregateID string) (*adapters.AggregateInfo, error) {
	if a.closed.Load() {
		return nil, ErrAdapterClosed
	}

	info := adapters.AggregateInfo{AggregateID: aggregateID}
	err := a.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT a.type, a.version, COUNT(e.uuid)
		FROM %s.aggregates a
		LEFT JOIN %s.events e ON e.aggregate_uuid = a.uuid
		WHERE a.uuid = $1
		GROUP BY a.type, a.version`, a.schema, a.schema), aggregateID).Scan(
		&info.AggregateType,
		&info.Version,
		&info.EventCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, adapters.NewAggregateNotFoundError(aggregateID)
	}
	if err != nil {
		return nil, fmt.Errorf("ledger/postgres: failed to get aggregate info: %w", err)
	}

	return &info, nil
}

// Ping checks database connectivity.
func (a *PostgresAdapter) Ping(ctx context.Context) error {
	if a.closed.Load() {
		return ErrAdapterClosed
	}
	return a.db.PingContext(ctx)
}

// Close releases the database connection.
// Only the first call closes the pool; later calls return nil.
func (a *PostgresAdapter) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	return a.db.Close()
}

// DB returns the underlying database connection.
func (a *PostgresAdapter) DB() *sql.DB {
	return a.db
}

// Schema returns the schema name.
func (a *PostgresAdapter) Schema() string {
	return a.schema
}
