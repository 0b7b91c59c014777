package ledger

import (
	"context"
)

// Command represents an intent to change an account or a client.
// Commands are validated by ValidationMiddleware before they reach a handler.
type Command interface {
	// CommandType returns the type identifier for this command (e.g., "CreditAccount").
	CommandType() string

	// Validate checks if the command is well formed.
	// Returns nil if valid, or a MultiValidationError describing every failure.
	Validate() error
}

// IdempotentCommand is a command that carries its own operation id.
// Commands without one get a fresh id per dispatch.
type IdempotentCommand interface {
	Command

	// IdempotencyKey returns the operation id the produced events will carry.
	IdempotencyKey() string
}

// TargetedCommand is a command aimed at one aggregate.
type TargetedCommand interface {
	Command

	// TargetID returns the id of the aggregate the command changes, or ""
	// when the command creates it.
	TargetID() string
}

// CommandBase provides the fields every banking command shares.
// Embed this struct in command types.
type CommandBase struct {
	// OperationID is the idempotency key. Empty means "generate one".
	OperationID string `json:"operation_id,omitempty"`

	// CorrelationID links related commands and events for tracing.
	CorrelationID string `json:"correlation_id,omitempty"`
}

// IdempotencyKey returns the caller supplied operation id.
func (c CommandBase) IdempotencyKey() string {
	return c.OperationID
}

// GetCorrelationID returns the correlation ID.
func (c CommandBase) GetCorrelationID() string {
	return c.CorrelationID
}

// CommandResult represents the result of command execution.
type CommandResult struct {
	// Success indicates whether the command executed successfully.
	Success bool

	// AggregateID is the aggregate affected by the command.
	// For create commands, this is the id of the new aggregate.
	AggregateID string

	// Version is the aggregate version the command was applied to.
	Version int64

	// Duplicate is set when the operation had already been committed and
	// the command was treated as a no-op.
	Duplicate bool

	// Events are the events committed by the command.
	Events []RecordedEvent

	// Error contains the error if the command failed.
	Error error
}

// NewSuccessResult creates a successful CommandResult.
func NewSuccessResult(aggregateID string, version int64) CommandResult {
	return CommandResult{
		Success:     true,
		AggregateID: aggregateID,
		Version:     version,
	}
}

// NewDuplicateResult creates a successful CommandResult for an operation
// that had already been committed.
func NewDuplicateResult(aggregateID string) CommandResult {
	return CommandResult{
		Success:     true,
		AggregateID: aggregateID,
		Duplicate:   true,
	}
}

// NewErrorResult creates a failed CommandResult.
func NewErrorResult(err error) CommandResult {
	return CommandResult{
		Success: false,
		Error:   err,
	}
}

// IsSuccess returns true if the command executed successfully.
func (r CommandResult) IsSuccess() bool {
	return r.Success && r.Error == nil
}

// IsError returns true if the command failed.
func (r CommandResult) IsError() bool {
	return !r.Success || r.Error != nil
}

// MiddlewareFunc is the function signature for command middleware.
type MiddlewareFunc func(ctx context.Context, cmd Command) (CommandResult, error)

// Middleware wraps a handler function with additional functionality.
type Middleware func(next MiddlewareFunc) MiddlewareFunc

// ChainMiddleware creates a single middleware from multiple middleware.
func ChainMiddleware(middleware ...Middleware) Middleware {
	return func(next MiddlewareFunc) MiddlewareFunc {
		for i := len(middleware) - 1; i >= 0; i-- {
			next = middleware[i](next)
		}
		return next
	}
}
