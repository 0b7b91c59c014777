package adapters

import (
	"fmt"
)

// Version constants for optimistic concurrency control.
const (
	// NewAggregate is the expected version of an aggregate that has never been saved.
	NewAggregate int64 = -1

	// InitialVersion is the version an aggregate record gets on its first save.
	InitialVersion int64 = 1
)

// ConcurrencyError provides details about a concurrency conflict.
// It is returned when an optimistic concurrency check fails during Append operations.
type ConcurrencyError struct {
	AggregateID     string
	ExpectedVersion int64
	ActualVersion   int64
	Exists          bool
}

// NewConcurrencyError creates a new ConcurrencyError.
func NewConcurrencyError(aggregateID string, expected, actual int64, exists bool) *ConcurrencyError {
	return &ConcurrencyError{
		AggregateID:     aggregateID,
		ExpectedVersion: expected,
		ActualVersion:   actual,
		Exists:          exists,
	}
}

// Error implements the error interface.
func (e *ConcurrencyError) Error() string {
	if !e.Exists {
		return fmt.Sprintf("ledger: concurrency conflict on aggregate %q: expected version %d, no record stored",
			e.AggregateID, e.ExpectedVersion)
	}
	return fmt.Sprintf("ledger: concurrency conflict on aggregate %q: expected version %d, got %d",
		e.AggregateID, e.ExpectedVersion, e.ActualVersion)
}

// Is implements errors.Is compatibility.
// Returns true when compared with ErrConcurrencyConflict.
func (e *ConcurrencyError) Is(target error) bool {
	return target == ErrConcurrencyConflict
}

// AggregateExistsError is returned when a new aggregate collides with a stored one.
type AggregateExistsError struct {
	AggregateID string
	Cause       error
}

// NewAggregateExistsError creates a new AggregateExistsError.
func NewAggregateExistsError(aggregateID string, cause error) *AggregateExistsError {
	return &AggregateExistsError{AggregateID: aggregateID, Cause: cause}
}

// Error implements the error interface.
func (e *AggregateExistsError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ledger: aggregate %q already exists: %v", e.AggregateID, e.Cause)
	}
	return fmt.Sprintf("ledger: aggregate %q already exists", e.AggregateID)
}

// Is implements errors.Is compatibility.
func (e *AggregateExistsError) Is(target error) bool {
	return target == ErrAggregateExists
}

// Unwrap returns the driver error, if any.
func (e *AggregateExistsError) Unwrap() error {
	return e.Cause
}

// AggregateNotFoundError provides details about a missing aggregate record.
type AggregateNotFoundError struct {
	AggregateID string
}

// NewAggregateNotFoundError creates a new AggregateNotFoundError.
func NewAggregateNotFoundError(aggregateID string) *AggregateNotFoundError {
	return &AggregateNotFoundError{AggregateID: aggregateID}
}

// Error implements the error interface.
func (e *AggregateNotFoundError) Error() string {
	return fmt.Sprintf("ledger: aggregate %q not found", e.AggregateID)
}

// Is implements errors.Is compatibility.
func (e *AggregateNotFoundError) Is(target error) bool {
	return target == ErrAggregateNotFound
}

// CheckVersion validates the expected version against the stored record.
// This implements the optimistic concurrency control logic shared by all adapters.
//
// Behavior:
//   - expected == NewAggregate and a record exists: AggregateExistsError
//   - expected == NewAggregate and no record: nil
//   - expected < NewAggregate: ErrInvalidVersion
//   - otherwise the record must exist with exactly the expected version
func CheckVersion(aggregateID string, expected, current int64, exists bool) error {
	switch {
	case expected == NewAggregate:
		if exists {
			return NewAggregateExistsError(aggregateID, nil)
		}
		return nil
	case expected < NewAggregate:
		return ErrInvalidVersion
	case !exists || current != expected:
		return NewConcurrencyError(aggregateID, expected, current, exists)
	default:
		return nil
	}
}

// NextVersion returns the version an aggregate record holds after a successful append.
func NextVersion(expected int64) int64 {
	if expected == NewAggregate {
		return InitialVersion
	}
	return expected + 1
}
