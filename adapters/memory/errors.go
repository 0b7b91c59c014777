package memory

import (
	"github.com/AshkanYarmoradi/go-ledger/adapters"
)

// Sentinel errors for the memory adapter.
// These are aliases to the adapters package errors for compatibility with errors.Is().
var (
	ErrAdapterClosed       = adapters.ErrAdapterClosed
	ErrEmptyAggregateID    = adapters.ErrEmptyAggregateID
	ErrNoEvents            = adapters.ErrNoEvents
	ErrConcurrencyConflict = adapters.ErrConcurrencyConflict
	ErrAggregateNotFound   = adapters.ErrAggregateNotFound
	ErrAggregateExists     = adapters.ErrAggregateExists
	ErrInvalidVersion      = adapters.ErrInvalidVersion
)
