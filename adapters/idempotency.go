package adapters

import (
	"context"
	"time"
)

// IdempotencyRecord remembers the outcome of a committed command so that a
// redelivery can be answered without running the handler again.
type IdempotencyRecord struct {
	// Key identifies the operation: command type, target aggregate and
	// operation id.
	Key string

	// CommandType is the type of the command that was processed.
	CommandType string

	// AggregateID is the aggregate the command produced or changed.
	AggregateID string

	// Version is the aggregate version the command was applied to.
	Version int64

	// ProcessedAt is when the command was committed.
	ProcessedAt time.Time

	// ExpiresAt is when this record may be discarded.
	ExpiresAt time.Time
}

// IsExpired reports whether the record is past its expiration time.
func (r *IdempotencyRecord) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

// IdempotencyStore persists IdempotencyRecords.
type IdempotencyStore interface {
	// Get returns the record for a key, or nil if none exists or it expired.
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)

	// Store saves a record, replacing any record with the same key.
	Store(ctx context.Context, record *IdempotencyRecord) error

	// Delete removes a record. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Cleanup removes records that expired before now minus olderThan and
	// returns how many were removed.
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}
