package testutil

import (
	"fmt"
	"runtime"
	"testing"
)

// MockT stands in for *testing.T when a test checks that a ledger fixture
// (bdd scenarios, event assertions) reports a failure. Only the methods those
// fixtures call are implemented; anything else hits the nil embedded TB.
type MockT struct {
	testing.TB

	Failed_ bool
	Fatal_  bool

	// Message is the format string, or first argument, of the last report.
	Message string

	// Reports holds every report fully formatted, oldest first.
	Reports []string
}

// NewMockT creates a MockT with no reports.
func NewMockT() *MockT {
	return &MockT{}
}

func (m *MockT) report(fatal bool, message, formatted string) {
	m.Failed_ = true
	m.Fatal_ = m.Fatal_ || fatal
	m.Message = message
	m.Reports = append(m.Reports, formatted)
	if fatal {
		runtime.Goexit()
	}
}

func firstString(args []any) string {
	if len(args) > 0 {
		if s, ok := args[0].(string); ok {
			return s
		}
	}
	return ""
}

// Helper is a no-op.
func (m *MockT) Helper() {}

// Error records a failure and returns.
func (m *MockT) Error(args ...any) { m.report(false, firstString(args), fmt.Sprint(args...)) }

// Errorf records a failure and returns.
func (m *MockT) Errorf(format string, args ...any) {
	m.report(false, format, fmt.Sprintf(format, args...))
}

// Fatal records a failure and ends the calling goroutine.
func (m *MockT) Fatal(args ...any) { m.report(true, firstString(args), fmt.Sprint(args...)) }

// Fatalf records a failure and ends the calling goroutine.
func (m *MockT) Fatalf(format string, args ...any) {
	m.report(true, format, fmt.Sprintf(format, args...))
}

// Failed reports whether anything was recorded.
func (m *MockT) Failed() bool { return m.Failed_ }

// RunWithMockT runs fn on its own goroutine so Fatal can end it, and returns
// the MockT once fn has stopped.
func RunWithMockT(fn func(m *MockT)) *MockT {
	mt := NewMockT()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(mt)
	}()
	<-done
	return mt
}
