package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/AshkanYarmoradi/go-ledger/adapters"
)

type (
	// IdempotencyStore remembers committed commands by operation key.
	IdempotencyStore = adapters.IdempotencyStore

	// IdempotencyRecord is the remembered outcome of one committed command.
	IdempotencyRecord = adapters.IdempotencyRecord
)

// DefaultIdempotencyTTL is how long a committed operation is remembered.
const DefaultIdempotencyTTL = 24 * time.Hour

// OperationKey returns the idempotency key of a command: its type, the
// aggregate it targets and its operation id, joined by ':'. Commands without
// an operation id have no key and return "".
func OperationKey(cmd Command) string {
	ic, ok := cmd.(IdempotentCommand)
	if !ok || ic.IdempotencyKey() == "" {
		return ""
	}

	var target string
	if tc, ok := cmd.(TargetedCommand); ok {
		target = tc.TargetID()
	}
	return strings.Join([]string{cmd.CommandType(), target, ic.IdempotencyKey()}, ":")
}

// NewIdempotencyRecord records a committed result under key.
func NewIdempotencyRecord(key, cmdType string, result CommandResult, ttl time.Duration) *IdempotencyRecord {
	now := time.Now()
	return &IdempotencyRecord{
		Key:         key,
		CommandType: cmdType,
		AggregateID: result.AggregateID,
		Version:     result.Version,
		ProcessedAt: now,
		ExpiresAt:   now.Add(ttl),
	}
}

// IdempotencyRecordToResult answers a replayed command from its record.
func IdempotencyRecordToResult(r *IdempotencyRecord) CommandResult {
	result := NewDuplicateResult(r.AggregateID)
	result.Version = r.Version
	return result
}

// IdempotencyConfig configures IdempotencyMiddleware.
type IdempotencyConfig struct {
	// Store holds the records. Required.
	Store IdempotencyStore

	// TTL is how long records are kept. Defaults to DefaultIdempotencyTTL.
	TTL time.Duration

	// KeyGenerator derives the key of a command. Defaults to OperationKey.
	// An empty key bypasses the middleware.
	KeyGenerator func(Command) string

	// Logger receives store failures. Defaults to a no-op logger.
	Logger Logger
}

// IdempotencyMiddleware answers a command whose operation was already
// committed from the store instead of running the handler again. Only
// first-time successes are recorded, so rejected commands may be retried.
//
// The store is consulted before the handler and written after it, so two
// concurrent first deliveries of one operation can both run. Updates are
// still caught by the aggregate's operation-id check; creates are not.
func IdempotencyMiddleware(config IdempotencyConfig) Middleware {
	if config.TTL <= 0 {
		config.TTL = DefaultIdempotencyTTL
	}
	if config.KeyGenerator == nil {
		config.KeyGenerator = OperationKey
	}
	if config.Logger == nil {
		config.Logger = &noopLogger{}
	}

	return func(next MiddlewareFunc) MiddlewareFunc {
		return func(ctx context.Context, cmd Command) (CommandResult, error) {
			key := config.KeyGenerator(cmd)
			if key == "" {
				return next(ctx, cmd)
			}

			record, err := config.Store.Get(ctx, key)
			if err != nil {
				config.Logger.Warn("Idempotency lookup failed",
					"key", key,
					"error", err,
				)
			} else if record != nil && !record.IsExpired() {
				return IdempotencyRecordToResult(record), nil
			}

			result, cmdErr := next(ctx, cmd)
			if cmdErr != nil || !result.IsSuccess() || result.Duplicate {
				return result, cmdErr
			}

			if err := config.Store.Store(ctx, NewIdempotencyRecord(key, cmd.CommandType(), result, config.TTL)); err != nil {
				config.Logger.Warn("Idempotency record not stored",
					"key", key,
					"error", err,
				)
			}
			return result, nil
		}
	}
}
