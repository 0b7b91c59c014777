package ledger

import (
	"context"
	"errors"
	"runtime/debug"
	"time"
)

// ValidationMiddleware validates commands before they reach the handler.
// If validation fails, the command is not dispatched.
func ValidationMiddleware() Middleware {
	return func(next MiddlewareFunc) MiddlewareFunc {
		return func(ctx context.Context, cmd Command) (CommandResult, error) {
			if err := cmd.Validate(); err != nil {
				return NewErrorResult(err), err
			}
			return next(ctx, cmd)
		}
	}
}

// RecoveryMiddleware turns handler panics into PanicError results.
func RecoveryMiddleware() Middleware {
	return func(next MiddlewareFunc) MiddlewareFunc {
		return func(ctx context.Context, cmd Command) (result CommandResult, err error) {
			defer func() {
				if r := recover(); r != nil {
					panicErr := NewPanicError(cmd.CommandType(), r, string(debug.Stack()))
					result = NewErrorResult(panicErr)
					err = panicErr
				}
			}()
			return next(ctx, cmd)
		}
	}
}

// LoggingMiddleware logs command execution.
type LoggingMiddleware struct {
	logger Logger
}

// NewLoggingMiddleware creates a new LoggingMiddleware.
func NewLoggingMiddleware(logger Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

// Middleware returns the middleware function.
// Domain rejections (validation, duplicates, conflicts, missing aggregates)
// are logged at warn level; anything else is an error.
func (m *LoggingMiddleware) Middleware() Middleware {
	return func(next MiddlewareFunc) MiddlewareFunc {
		return func(ctx context.Context, cmd Command) (CommandResult, error) {
			start := time.Now()

			m.logger.Debug("Dispatching command",
				"type", cmd.CommandType(),
				"correlationID", CorrelationIDFromContext(ctx),
			)

			result, err := next(ctx, cmd)
			duration := time.Since(start)

			switch {
			case err != nil && isDomainRejection(err):
				m.logger.Warn("Command rejected",
					"type", cmd.CommandType(),
					"duration", duration,
					"error", err,
				)
			case err != nil:
				m.logger.Error("Command failed",
					"type", cmd.CommandType(),
					"duration", duration,
					"error", err,
				)
			default:
				m.logger.Info("Command completed",
					"type", cmd.CommandType(),
					"duration", duration,
					"aggregateID", result.AggregateID,
					"version", result.Version,
					"duplicate", result.Duplicate,
				)
			}

			return result, err
		}
	}
}

func isDomainRejection(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrOperationDuplicate) ||
		errors.Is(err, ErrConcurrencyConflict) ||
		errors.Is(err, ErrNotFound)
}

// TimeoutMiddleware adds a timeout to command execution.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next MiddlewareFunc) MiddlewareFunc {
		return func(ctx context.Context, cmd Command) (CommandResult, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return next(ctx, cmd)
		}
	}
}

// =============================================================================
// Correlation ID Middleware
// =============================================================================

type correlationIDKey struct{}

// CorrelationIDFromContext returns the correlation ID from context.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithCorrelationID returns a context carrying the correlation ID.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, correlationID)
}

// CorrelationIDMiddleware makes sure a correlation ID travels with the command.
// The context wins over the command; a new ID is generated when neither has one.
func CorrelationIDMiddleware(generator func() string) Middleware {
	if generator == nil {
		generator = func() string {
			return NewID().String()
		}
	}

	return func(next MiddlewareFunc) MiddlewareFunc {
		return func(ctx context.Context, cmd Command) (CommandResult, error) {
			if CorrelationIDFromContext(ctx) != "" {
				return next(ctx, cmd)
			}

			var correlationID string
			if base, ok := cmd.(interface{ GetCorrelationID() string }); ok {
				correlationID = base.GetCorrelationID()
			}
			if correlationID == "" {
				correlationID = generator()
			}

			return next(WithCorrelationID(ctx, correlationID), cmd)
		}
	}
}
