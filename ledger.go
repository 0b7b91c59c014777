// Package ledger is an event-sourced banking ledger.
//
// Accounts and clients are never stored as rows. Their state is rebuilt by
// replaying the ordered log of immutable domain events recorded for them, and
// every change is committed through an append guarded by optimistic concurrency.
//
// # Quick Start
//
// Create a store with the in-memory adapter for development:
//
//	import (
//	    "github.com/AshkanYarmoradi/go-ledger"
//	    "github.com/AshkanYarmoradi/go-ledger/adapters/memory"
//	)
//
//	store := ledger.NewStore(memory.NewAdapter())
//	accounts := ledger.NewAccountRepository(store)
//
// For production, use the PostgreSQL adapter:
//
//	adapter, err := postgres.NewAdapter(connStr)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store := ledger.NewStore(adapter)
//
// # Aggregates
//
// Aggregates are created in memory with one uncommitted creation event and
// become durable on their first save:
//
//	account, err := ledger.CreateAccount(clientID, ledger.NewID(), ledger.NewID(), "savings")
//	account, err = accounts.Save(ctx, account)
//
// Every later command re-derives a fresh instance from the log:
//
//	account, err := accounts.GetByID(ctx, accountID)
//	err = account.Credit(ledger.NewAmount(50, 12), ledger.NewID())
//	account, err = accounts.Save(ctx, account)
//
// # Idempotency
//
// Each event carries the operation id of the command that produced it.
// Applying a new event whose operation id the aggregate has already committed
// fails with an OperationDuplicateError and leaves the aggregate untouched:
//
//	if errors.Is(err, ledger.ErrOperationDuplicate) {
//	    // the original command already took effect
//	}
//
// # Commands
//
// The Service registers the banking use cases on a CommandBus:
//
//	svc := ledger.NewService(store, ledger.WithServiceLogger(logger))
//	result, err := svc.Bus().Dispatch(ctx, ledger.CreditAccount{
//	    AccountID: accountID.String(),
//	    Dollars:   10,
//	})
//
// Committed events are handed to a Dispatcher. The service subscribes to
// AccountAddedToClient itself and opens the linked account.
package ledger

// Version returns the library version string.
func Version() string {
	return "0.3.0"
}

// Logger is the logging interface used across the ledger.
// Arguments after the message are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// noopLogger is a no-op logger implementation.
type noopLogger struct{}

func (l *noopLogger) Debug(msg string, args ...interface{}) {}
func (l *noopLogger) Info(msg string, args ...interface{})  {}
func (l *noopLogger) Warn(msg string, args ...interface{})  {}
func (l *noopLogger) Error(msg string, args ...interface{}) {}
