package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AshkanYarmoradi/go-ledger/adapters"
)

// Sentinel errors for common error conditions.
// Use errors.Is() to check for these errors.
var (
	// ErrNotFound indicates no aggregate record exists for the requested id.
	ErrNotFound = adapters.ErrAggregateNotFound

	// ErrConcurrencyConflict indicates the expected version did not match exactly one stored record.
	ErrConcurrencyConflict = adapters.ErrConcurrencyConflict

	// ErrAggregateExists indicates a new aggregate collided with an existing record.
	// It is always wrapped in a ConcurrencyError.
	ErrAggregateExists = adapters.ErrAggregateExists

	// ErrOperationDuplicate indicates an operation id was already committed for an aggregate.
	ErrOperationDuplicate = errors.New("ledger: operation already committed")

	// ErrValidation indicates a domain invariant or input rule was violated.
	ErrValidation = errors.New("ledger: validation failed")

	// ErrUnhandledEvent indicates an aggregate received an event kind it has no handler for.
	// This is a programming error, not a domain failure.
	ErrUnhandledEvent = errors.New("ledger: unhandled event kind")

	// ErrEventKindNotRegistered indicates an unknown event kind was encountered during decoding.
	ErrEventKindNotRegistered = errors.New("ledger: event kind not registered")

	// ErrSerializationFailed indicates event serialization/deserialization failed.
	ErrSerializationFailed = errors.New("ledger: serialization failed")

	// ErrDivisionByZero is returned by Amount.Div for a zero divisor.
	ErrDivisionByZero = errors.New("ledger: division by zero")

	// ErrNilAggregate indicates a nil aggregate was passed.
	ErrNilAggregate = errors.New("ledger: nil aggregate")

	// ErrAdapterClosed indicates the adapter has been closed.
	ErrAdapterClosed = adapters.ErrAdapterClosed

	// Command and handler related errors

	// ErrHandlerNotFound indicates no handler is registered for a command type.
	ErrHandlerNotFound = errors.New("ledger: handler not found")

	// ErrNilCommand indicates a nil command was passed.
	ErrNilCommand = errors.New("ledger: nil command")

	// ErrHandlerPanicked indicates a handler panicked during execution.
	ErrHandlerPanicked = errors.New("ledger: handler panicked")

	// ErrCommandBusClosed indicates the command bus has been closed.
	ErrCommandBusClosed = errors.New("ledger: command bus closed")
)

// NotFoundError provides detailed information about a missing aggregate.
type NotFoundError struct {
	AggregateID string
}

// Error returns the error message.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("ledger: aggregate %q not found", e.AggregateID)
}

// Is reports whether this error matches the target error.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(aggregateID string) *NotFoundError {
	return &NotFoundError{AggregateID: aggregateID}
}

// ConcurrencyError provides detailed information about a concurrency conflict.
type ConcurrencyError struct {
	AggregateID     string
	ExpectedVersion int64
	ActualVersion   int64
	Cause           error
}

// Error returns the error message.
func (e *ConcurrencyError) Error() string {
	if e.ExpectedVersion == adapters.NewAggregate {
		return fmt.Sprintf("ledger: concurrency conflict on aggregate %q: record already exists", e.AggregateID)
	}
	return fmt.Sprintf("ledger: concurrency conflict on aggregate %q: expected version %d, actual version %d",
		e.AggregateID, e.ExpectedVersion, e.ActualVersion)
}

// Is reports whether this error matches the target error.
func (e *ConcurrencyError) Is(target error) bool {
	return target == ErrConcurrencyConflict
}

// Unwrap returns the adapter error that caused the conflict.
func (e *ConcurrencyError) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return ErrConcurrencyConflict
}

// NewConcurrencyError creates a new ConcurrencyError.
func NewConcurrencyError(aggregateID string, expected, actual int64) *ConcurrencyError {
	return &ConcurrencyError{
		AggregateID:     aggregateID,
		ExpectedVersion: expected,
		ActualVersion:   actual,
	}
}

// OperationDuplicateError reports an operation id that an aggregate has already committed.
// Callers should treat it as a successful no-op: the original effect already happened.
type OperationDuplicateError struct {
	AggregateID string
	OperationID string
	EventKind   string
}

// Error returns the error message.
func (e *OperationDuplicateError) Error() string {
	return fmt.Sprintf("ledger: operation %q already committed on aggregate %q (%s)",
		e.OperationID, e.AggregateID, e.EventKind)
}

// Is reports whether this error matches the target error.
func (e *OperationDuplicateError) Is(target error) bool {
	return target == ErrOperationDuplicate
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *OperationDuplicateError) Unwrap() error {
	return ErrOperationDuplicate
}

// NewOperationDuplicateError creates a new OperationDuplicateError.
func NewOperationDuplicateError(aggregateID, operationID, kind string) *OperationDuplicateError {
	return &OperationDuplicateError{
		AggregateID: aggregateID,
		OperationID: operationID,
		EventKind:   kind,
	}
}

// ValidationError reports a violated domain rule or malformed input.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("ledger: validation failed: %s: %s", e.Field, e.Message)
	}
	return "ledger: validation failed: " + e.Message
}

// Is reports whether this error matches the target error.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// MultiValidationError collects several validation failures, e.g. from command validation.
type MultiValidationError struct {
	CommandType string
	Errors      []*ValidationError
}

// NewMultiValidationError creates a new MultiValidationError.
func NewMultiValidationError(cmdType string) *MultiValidationError {
	return &MultiValidationError{CommandType: cmdType}
}

// Add appends a validation failure.
func (e *MultiValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, NewValidationError(field, message))
}

// HasErrors reports whether any failure was collected.
func (e *MultiValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ErrorOrNil returns nil when no failure was collected.
func (e *MultiValidationError) ErrorOrNil() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// Error returns the error message.
func (e *MultiValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("ledger: validation failed for %s: %s: %s",
			e.CommandType, e.Errors[0].Field, e.Errors[0].Message)
	}
	parts := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		parts[i] = ve.Field + ": " + ve.Message
	}
	return fmt.Sprintf("ledger: validation failed for %s (%d errors): %s",
		e.CommandType, len(e.Errors), strings.Join(parts, "; "))
}

// Is reports whether this error matches the target error.
func (e *MultiValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *MultiValidationError) Unwrap() error {
	return ErrValidation
}

// UnhandledEventError reports an event kind an aggregate does not understand.
type UnhandledEventError struct {
	AggregateType string
	EventKind     string
}

// Error returns the error message.
func (e *UnhandledEventError) Error() string {
	return fmt.Sprintf("ledger: %s has no handler for event kind %q", e.AggregateType, e.EventKind)
}

// Is reports whether this error matches the target error.
func (e *UnhandledEventError) Is(target error) bool {
	return target == ErrUnhandledEvent
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *UnhandledEventError) Unwrap() error {
	return ErrUnhandledEvent
}

// NewUnhandledEventError creates a new UnhandledEventError.
func NewUnhandledEventError(aggregateType, kind string) *UnhandledEventError {
	return &UnhandledEventError{AggregateType: aggregateType, EventKind: kind}
}

// SerializationError provides detailed information about a serialization failure.
type SerializationError struct {
	EventKind string
	Operation string // "serialize" or "deserialize"
	Cause     error
}

// Error returns the error message.
func (e *SerializationError) Error() string {
	return fmt.Sprintf("ledger: failed to %s event kind %q: %v",
		e.Operation, e.EventKind, e.Cause)
}

// Is reports whether this error matches the target error.
func (e *SerializationError) Is(target error) bool {
	return target == ErrSerializationFailed
}

// Unwrap returns the underlying cause for errors.Unwrap().
func (e *SerializationError) Unwrap() error {
	return e.Cause
}

// NewSerializationError creates a new SerializationError.
func NewSerializationError(kind, operation string, cause error) *SerializationError {
	return &SerializationError{
		EventKind: kind,
		Operation: operation,
		Cause:     cause,
	}
}

// EventKindNotRegisteredError provides detailed information about an unregistered event kind.
type EventKindNotRegisteredError struct {
	EventKind string
}

// Error returns the error message.
func (e *EventKindNotRegisteredError) Error() string {
	return fmt.Sprintf("ledger: event kind %q not registered", e.EventKind)
}

// Is reports whether this error matches the target error.
func (e *EventKindNotRegisteredError) Is(target error) bool {
	return target == ErrEventKindNotRegistered
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *EventKindNotRegisteredError) Unwrap() error {
	return ErrEventKindNotRegistered
}

// NewEventKindNotRegisteredError creates a new EventKindNotRegisteredError.
func NewEventKindNotRegisteredError(kind string) *EventKindNotRegisteredError {
	return &EventKindNotRegisteredError{EventKind: kind}
}

// HandlerNotFoundError provides detailed information about a missing handler.
type HandlerNotFoundError struct {
	CommandType string
}

// Error returns the error message.
func (e *HandlerNotFoundError) Error() string {
	return fmt.Sprintf("ledger: no handler registered for command type %q", e.CommandType)
}

// Is reports whether this error matches the target error.
func (e *HandlerNotFoundError) Is(target error) bool {
	return target == ErrHandlerNotFound
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *HandlerNotFoundError) Unwrap() error {
	return ErrHandlerNotFound
}

// NewHandlerNotFoundError creates a new HandlerNotFoundError.
func NewHandlerNotFoundError(cmdType string) *HandlerNotFoundError {
	return &HandlerNotFoundError{CommandType: cmdType}
}

// PanicError provides detailed information about a handler panic.
type PanicError struct {
	CommandType string
	Value       interface{}
	Stack       string
}

// Error returns the error message.
func (e *PanicError) Error() string {
	return fmt.Sprintf("ledger: handler panicked while processing %q: %v", e.CommandType, e.Value)
}

// Is reports whether this error matches the target error.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanicked
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *PanicError) Unwrap() error {
	return ErrHandlerPanicked
}

// NewPanicError creates a new PanicError.
func NewPanicError(cmdType string, value interface{}, stack string) *PanicError {
	return &PanicError{
		CommandType: cmdType,
		Value:       value,
		Stack:       stack,
	}
}
