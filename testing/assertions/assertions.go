// Package assertions provides assertions over ledger events: kinds, payloads,
// operation ids, and readable diffs between expected and actual histories.
package assertions

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	ledger "github.com/AshkanYarmoradi/go-ledger"
)

// TB is an alias for testing.TB interface to allow mocking in tests
type TB = testing.TB

// Events unwraps the domain events of committed records, e.g. CommandResult.Events.
func Events(recorded []ledger.RecordedEvent) []ledger.Event {
	events := make([]ledger.Event, len(recorded))
	for i, r := range recorded {
		events[i] = r.Event
	}
	return events
}

// Kinds returns the kind of every event, in order.
func Kinds(events []ledger.Event) []string {
	kinds := make([]string, len(events))
	for i, e := range events {
		kinds[i] = kindOf(e)
	}
	return kinds
}

// AssertEventKinds checks that the events have the expected kinds in order.
func AssertEventKinds(t TB, events []ledger.Event, kinds ...string) {
	t.Helper()

	if len(events) != len(kinds) {
		t.Fatalf("Expected %d events, got %d", len(kinds), len(events))
	}

	for i, expected := range kinds {
		if actual := kindOf(events[i]); actual != expected {
			t.Errorf("Event %d: expected kind %s, got %s", i, expected, actual)
		}
	}
}

// AssertEventData checks that a specific event matches the expected data.
func AssertEventData[T ledger.Event](t TB, event ledger.Event, expected T) {
	t.Helper()

	actual, ok := event.(T)
	if !ok {
		t.Fatalf("Event is not of expected type %T, got %T", expected, event)
	}

	if !reflect.DeepEqual(actual, expected) {
		t.Errorf("Event data mismatch:\nExpected: %+v\nActual: %+v", expected, actual)
	}
}

// AssertEventCount checks the number of events.
func AssertEventCount(t TB, events []ledger.Event, expected int) {
	t.Helper()

	if len(events) != expected {
		t.Errorf("Expected %d events, got %d", expected, len(events))
	}
}

// AssertNoEvents checks that no events were produced.
func AssertNoEvents(t TB, events []ledger.Event) {
	t.Helper()

	if len(events) > 0 {
		t.Errorf("Expected no events, got %d: %+v", len(events), events)
	}
}

// AssertLastEvent checks the last event matches the expected data.
func AssertLastEvent[T ledger.Event](t TB, events []ledger.Event, expected T) {
	t.Helper()

	if len(events) == 0 {
		t.Fatal("Expected at least one event, got none")
	}

	AssertEventData(t, events[len(events)-1], expected)
}

// AssertContainsEvent checks that the events contain one equal to expected.
func AssertContainsEvent[T ledger.Event](t TB, events []ledger.Event, expected T) {
	t.Helper()

	if CountMatches(events, MatchEvent(expected)) == 0 {
		t.Errorf("Events do not contain expected event: %+v", expected)
	}
}

// AssertOperation checks that every event was produced by the given operation.
func AssertOperation(t TB, events []ledger.Event, operationID string) {
	t.Helper()

	for i, e := range events {
		if e.OperationID() != operationID {
			t.Errorf("Event %d: expected operation %q, got %q", i, operationID, e.OperationID())
		}
	}
}

// EventDiff represents a difference between expected and actual events.
type EventDiff struct {
	Index    int
	Expected ledger.Event
	Actual   ledger.Event
	Type     DiffType
}

// DiffType represents the type of difference.
type DiffType int

const (
	// DiffMissing indicates an expected event was not present.
	DiffMissing DiffType = iota
	// DiffExtra indicates an unexpected event was present.
	DiffExtra
	// DiffMismatch indicates event data did not match.
	DiffMismatch
)

// String returns a human-readable representation of the diff type.
func (d DiffType) String() string {
	switch d {
	case DiffMissing:
		return "missing"
	case DiffExtra:
		return "extra"
	case DiffMismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

// DiffEvents compares two histories position by position.
func DiffEvents(expected, actual []ledger.Event) []EventDiff {
	var diffs []EventDiff

	n := len(expected)
	if len(actual) > n {
		n = len(actual)
	}

	for i := 0; i < n; i++ {
		switch {
		case i >= len(expected):
			diffs = append(diffs, EventDiff{Index: i, Actual: actual[i], Type: DiffExtra})
		case i >= len(actual):
			diffs = append(diffs, EventDiff{Index: i, Expected: expected[i], Type: DiffMissing})
		case !reflect.DeepEqual(expected[i], actual[i]):
			diffs = append(diffs, EventDiff{Index: i, Expected: expected[i], Actual: actual[i], Type: DiffMismatch})
		}
	}

	return diffs
}

// FormatDiffs formats event diffs as a human-readable string.
func FormatDiffs(diffs []EventDiff) string {
	if len(diffs) == 0 {
		return "no differences"
	}

	var buf strings.Builder
	buf.WriteString("Event differences:\n")

	for _, diff := range diffs {
		fmt.Fprintf(&buf, "  Event %d (%s):\n", diff.Index, diff.Type)
		switch diff.Type {
		case DiffExtra:
			fmt.Fprintf(&buf, "    + %s %+v (unexpected)\n", kindOf(diff.Actual), diff.Actual)
		case DiffMissing:
			fmt.Fprintf(&buf, "    - %s %+v (missing)\n", kindOf(diff.Expected), diff.Expected)
		case DiffMismatch:
			fmt.Fprintf(&buf, "    - %s %+v\n", kindOf(diff.Expected), diff.Expected)
			fmt.Fprintf(&buf, "    + %s %+v\n", kindOf(diff.Actual), diff.Actual)
		}
	}

	return buf.String()
}

// AssertEventsEqual compares two histories and fails with a diff if they differ.
func AssertEventsEqual(t TB, expected, actual []ledger.Event) {
	t.Helper()

	if diffs := DiffEvents(expected, actual); len(diffs) > 0 {
		t.Error(FormatDiffs(diffs))
	}
}

func kindOf(e ledger.Event) string {
	if e == nil {
		return "<nil>"
	}
	return e.Kind()
}

// EventMatcher is a function that checks if an event matches certain criteria.
type EventMatcher func(event ledger.Event) bool

// MatchKind matches events of one kind.
func MatchKind(kind string) EventMatcher {
	return func(event ledger.Event) bool {
		return kindOf(event) == kind
	}
}

// MatchOperation matches events produced by one operation.
func MatchOperation(operationID string) EventMatcher {
	return func(event ledger.Event) bool {
		return event != nil && event.OperationID() == operationID
	}
}

// MatchEvent returns a matcher that checks for exact event equality.
func MatchEvent[T ledger.Event](expected T) EventMatcher {
	return func(event ledger.Event) bool {
		actual, ok := event.(T)
		return ok && reflect.DeepEqual(actual, expected)
	}
}

// AssertAnyMatch checks that at least one event matches the matcher.
func AssertAnyMatch(t TB, events []ledger.Event, matcher EventMatcher) {
	t.Helper()

	if CountMatches(events, matcher) == 0 {
		t.Error("No event matched the criteria")
	}
}

// AssertNoneMatch checks that no events match the matcher.
func AssertNoneMatch(t TB, events []ledger.Event, matcher EventMatcher) {
	t.Helper()

	for i, event := range events {
		if matcher(event) {
			t.Errorf("Event %d unexpectedly matched: %+v", i, event)
		}
	}
}

// CountMatches returns the number of events that match the matcher.
func CountMatches(events []ledger.Event, matcher EventMatcher) int {
	count := 0
	for _, event := range events {
		if matcher(event) {
			count++
		}
	}
	return count
}

// FilterEvents returns events that match the matcher.
func FilterEvents(events []ledger.Event, matcher EventMatcher) []ledger.Event {
	var result []ledger.Event
	for _, event := range events {
		if matcher(event) {
			result = append(result, event)
		}
	}
	return result
}
