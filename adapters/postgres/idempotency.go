package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AshkanYarmoradi/go-ledger/adapters"
)

var _ adapters.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore keeps idempotency records in the idempotency table that
// Migrate creates next to the event log.
type IdempotencyStore struct {
	db     *sql.DB
	schema string
}

// NewIdempotencyStore creates a store on db. An empty schema means DefaultSchema.
func NewIdempotencyStore(db *sql.DB, schema string) (*IdempotencyStore, error) {
	if schema == "" {
		schema = DefaultSchema
	}
	if !schemaPattern.MatchString(schema) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSchema, schema)
	}
	return &IdempotencyStore{db: db, schema: schema}, nil
}

// NewIdempotencyStoreFromAdapter shares the adapter's connection pool and schema.
func NewIdempotencyStoreFromAdapter(adapter *PostgresAdapter) *IdempotencyStore {
	return &IdempotencyStore{db: adapter.db, schema: adapter.schema}
}

// Store upserts a record.
func (s *IdempotencyStore) Store(ctx context.Context, record *adapters.IdempotencyRecord) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s.idempotency (key, command_type, aggregate_id, version, processed_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO UPDATE SET
			command_type = EXCLUDED.command_type,
			aggregate_id = EXCLUDED.aggregate_id,
			version = EXCLUDED.version,
			processed_at = EXCLUDED.processed_at,
			expires_at = EXCLUDED.expires_at`, s.schema),
		record.Key,
		record.CommandType,
		record.AggregateID,
		record.Version,
		record.ProcessedAt,
		record.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("ledger/postgres: failed to store idempotency record: %w", err)
	}
	return nil
}

// Get returns the unexpired record for key, or nil.
func (s *IdempotencyStore) Get(ctx context.Context, key string) (*adapters.IdempotencyRecord, error) {
	var record adapters.IdempotencyRecord
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT key, command_type, aggregate_id, version, processed_at, expires_at
		FROM %s.idempotency
		WHERE key = $1 AND expires_at > NOW()`, s.schema), key).Scan(
		&record.Key,
		&record.CommandType,
		&record.AggregateID,
		&record.Version,
		&record.ProcessedAt,
		&record.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger/postgres: failed to get idempotency record: %w", err)
	}
	return &record, nil
}

// Delete removes the record for key.
func (s *IdempotencyStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s.idempotency WHERE key = $1`, s.schema), key)
	if err != nil {
		return fmt.Errorf("ledger/postgres: failed to delete idempotency record: %w", err)
	}
	return nil
}

// Cleanup removes records that expired more than olderThan ago.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	result, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %s.idempotency WHERE expires_at < $1`, s.schema), time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("ledger/postgres: failed to clean up idempotency records: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("ledger/postgres: failed to clean up idempotency records: %w", err)
	}
	return n, nil
}

// Count returns the number of records, expired ones included.
func (s *IdempotencyStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s.idempotency`, s.schema)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("ledger/postgres: failed to count idempotency records: %w", err)
	}
	return n, nil
}
