// Package bdd provides Given-When-Then fixtures for ledger aggregates and
// for commands dispatched through a command bus.
package bdd

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	ledger "github.com/AshkanYarmoradi/go-ledger"
	"github.com/AshkanYarmoradi/go-ledger/adapters"
)

// TB is an alias for testing.TB interface to allow mocking in tests
type TB = testing.TB

// Factory rebuilds an aggregate from history, e.g. ledger.AccountFromStream.
type Factory[T ledger.Aggregate] func(stream *ledger.EventStream) (T, error)

// TestFixture provides BDD-style testing for aggregates.
type TestFixture[T ledger.Aggregate] struct {
	t           TB
	factory     Factory[T]
	givenEvents []ledger.Event
	aggregate   T
	result      error
	executed    bool
}

// Given records the history the aggregate is rebuilt from before When runs.
// The history is treated as committed: its operation ids count as duplicates.
func Given[T ledger.Aggregate](t TB, factory Factory[T], events ...ledger.Event) *TestFixture[T] {
	t.Helper()
	return &TestFixture[T]{
		t:           t,
		factory:     factory,
		givenEvents: events,
	}
}

// When rebuilds the aggregate and runs command against it.
func (f *TestFixture[T]) When(command func(agg T) error) *TestFixture[T] {
	f.t.Helper()

	stream := &ledger.EventStream{Version: ledger.NewAggregateVersion, Events: f.givenEvents}
	if len(f.givenEvents) > 0 {
		stream.Version = adapters.InitialVersion
	}

	agg, err := f.factory(stream)
	if err != nil {
		f.t.Fatalf("Failed to rebuild aggregate from given events: %v", err)
	}
	f.aggregate = agg

	f.result = command(agg)
	f.executed = true

	return f
}

// Aggregate returns the aggregate built by When.
func (f *TestFixture[T]) Aggregate() T {
	return f.aggregate
}

// Then asserts that the command succeeded and produced exactly the expected events.
func (f *TestFixture[T]) Then(expectedEvents ...ledger.Event) *TestFixture[T] {
	f.t.Helper()

	if !f.executed {
		f.t.Fatal("bdd: Then() must be called after When() - no command was executed")
	}

	if f.result != nil {
		f.t.Fatalf("Expected success but got error: %v", f.result)
	}

	uncommitted := f.aggregate.UncommittedChanges()
	if len(uncommitted) != len(expectedEvents) {
		f.t.Fatalf("Expected %d events, got %d.\nExpected: %+v\nActual: %+v",
			len(expectedEvents), len(uncommitted), expectedEvents, uncommitted)
	}

	for i, expected := range expectedEvents {
		if !reflect.DeepEqual(uncommitted[i], expected) {
			f.t.Errorf("Event %d mismatch:\nExpected: %+v\nActual: %+v",
				i, expected, uncommitted[i])
		}
	}

	return f
}

// ThenState runs check against the aggregate after the command.
func (f *TestFixture[T]) ThenState(check func(agg T)) {
	f.t.Helper()

	if !f.executed {
		f.t.Fatal("bdd: ThenState() must be called after When() - no command was executed")
	}

	check(f.aggregate)
}

// ThenError asserts that the command produced the expected error and no events.
func (f *TestFixture[T]) ThenError(expectedErr error) {
	f.t.Helper()

	if !f.executed {
		f.t.Fatal("bdd: ThenError() must be called after When() - no command was executed")
	}

	if f.result == nil {
		f.t.Fatal("Expected error but got success")
	}

	if !errors.Is(f.result, expectedErr) {
		f.t.Errorf("Expected error %v, got %v", expectedErr, f.result)
	}

	if n := len(f.aggregate.UncommittedChanges()); n > 0 {
		f.t.Errorf("Expected no events after a failed command, got %d", n)
	}
}

// ThenErrorContains asserts that the error message contains a substring.
func (f *TestFixture[T]) ThenErrorContains(substring string) {
	f.t.Helper()

	if !f.executed {
		f.t.Fatal("bdd: ThenErrorContains() must be called after When() - no command was executed")
	}

	if f.result == nil {
		f.t.Fatal("Expected error but got success")
	}

	if !strings.Contains(f.result.Error(), substring) {
		f.t.Errorf("Expected error containing %q, got %q", substring, f.result.Error())
	}
}

// ThenNoEvents asserts that the command succeeded without producing events.
func (f *TestFixture[T]) ThenNoEvents() {
	f.t.Helper()

	if !f.executed {
		f.t.Fatal("bdd: ThenNoEvents() must be called after When() - no command was executed")
	}

	if f.result != nil {
		f.t.Fatalf("Expected success but got error: %v", f.result)
	}

	uncommitted := f.aggregate.UncommittedChanges()
	if len(uncommitted) > 0 {
		f.t.Errorf("Expected no events, got %d: %+v", len(uncommitted), uncommitted)
	}
}

// =============================================================================
// Command fixtures
// =============================================================================

type existingStream struct {
	aggregateID   string
	aggregateType string
	events        []ledger.Event
}

// CommandTestFixture provides BDD-style testing with command bus integration.
type CommandTestFixture struct {
	t        TB
	ctx      context.Context
	bus      *ledger.CommandBus
	store    ledger.EventStore
	existing []existingStream
	result   ledger.CommandResult
	err      error
	executed bool
}

// GivenCommand creates a new command test fixture with a command bus.
// store may be nil when no existing events are needed.
func GivenCommand(t TB, bus *ledger.CommandBus, store ledger.EventStore) *CommandTestFixture {
	t.Helper()
	return &CommandTestFixture{
		t:     t,
		ctx:   context.Background(),
		bus:   bus,
		store: store,
	}
}

// GivenService is GivenCommand for a ledger service and the store it was built on.
func GivenService(t TB, svc *ledger.Service, store ledger.EventStore) *CommandTestFixture {
	t.Helper()
	return GivenCommand(t, svc.Bus(), store)
}

// WithContext sets a custom context for the command execution.
func (f *CommandTestFixture) WithContext(ctx context.Context) *CommandTestFixture {
	f.ctx = ctx
	return f
}

// WithExistingEvents appends events to an aggregate before the command runs.
// Each call is one save, so calling it twice for an aggregate bumps its version twice.
func (f *CommandTestFixture) WithExistingEvents(aggregateID, aggregateType string, events ...ledger.Event) *CommandTestFixture {
	f.existing = append(f.existing, existingStream{
		aggregateID:   aggregateID,
		aggregateType: aggregateType,
		events:        events,
	})
	return f
}

// When stores any existing events and dispatches the command.
func (f *CommandTestFixture) When(cmd ledger.Command) *CommandTestFixture {
	f.t.Helper()

	if len(f.existing) > 0 && f.store == nil {
		f.t.Fatal("bdd: WithExistingEvents() needs a store")
	}

	versions := make(map[string]int64)
	for _, s := range f.existing {
		expected, ok := versions[s.aggregateID]
		if !ok {
			expected = adapters.NewAggregate
		}
		id, err := ledger.ParseID(s.aggregateID)
		if err != nil {
			f.t.Fatalf("Invalid aggregate id %q: %v", s.aggregateID, err)
		}
		if _, err := f.store.SaveEvents(f.ctx, id, s.aggregateType, s.events, expected); err != nil {
			f.t.Fatalf("Failed to store given events for %s: %v", s.aggregateID, err)
		}
		versions[s.aggregateID] = adapters.NextVersion(expected)
	}

	f.result, f.err = f.bus.Dispatch(f.ctx, cmd)
	f.executed = true
	return f
}

// Result returns the command result.
func (f *CommandTestFixture) Result() ledger.CommandResult {
	return f.result
}

// ThenSucceeds asserts the command succeeded.
func (f *CommandTestFixture) ThenSucceeds() *CommandTestFixture {
	f.t.Helper()

	if !f.executed {
		f.t.Fatal("bdd: ThenSucceeds() must be called after When() - no command was dispatched")
	}

	if f.err != nil {
		f.t.Fatalf("Expected success but got error: %v", f.err)
	}

	if !f.result.IsSuccess() {
		f.t.Fatalf("Expected success result but got error: %v", f.result.Error)
	}

	return f
}

// ThenDuplicate asserts the command was accepted as an already committed operation.
func (f *CommandTestFixture) ThenDuplicate() *CommandTestFixture {
	f.t.Helper()

	f.ThenSucceeds()
	if !f.result.Duplicate {
		f.t.Error("Expected a duplicate result, but the command changed the aggregate")
	}

	return f
}

// ThenFails asserts the command failed with the expected error.
func (f *CommandTestFixture) ThenFails(expectedErr error) {
	f.t.Helper()

	if !f.executed {
		f.t.Fatal("bdd: ThenFails() must be called after When() - no command was dispatched")
	}

	if f.err == nil && f.result.IsSuccess() {
		f.t.Fatal("Expected failure but got success")
	}

	errToCheck := f.err
	if errToCheck == nil {
		errToCheck = f.result.Error
	}

	if !errors.Is(errToCheck, expectedErr) {
		f.t.Errorf("Expected error %v, got %v", expectedErr, errToCheck)
	}
}

// ThenReturnsAggregateID asserts the result contains the expected aggregate ID.
func (f *CommandTestFixture) ThenReturnsAggregateID(expected string) *CommandTestFixture {
	f.t.Helper()

	if !f.executed {
		f.t.Fatal("bdd: ThenReturnsAggregateID() must be called after When() - no command was dispatched")
	}

	if f.result.AggregateID != expected {
		f.t.Errorf("Expected aggregate ID %q, got %q", expected, f.result.AggregateID)
	}

	return f
}

// ThenReturnsVersion asserts the result contains the expected version.
func (f *CommandTestFixture) ThenReturnsVersion(expected int64) *CommandTestFixture {
	f.t.Helper()

	if !f.executed {
		f.t.Fatal("bdd: ThenReturnsVersion() must be called after When() - no command was dispatched")
	}

	if f.result.Version != expected {
		f.t.Errorf("Expected version %d, got %d", expected, f.result.Version)
	}

	return f
}
