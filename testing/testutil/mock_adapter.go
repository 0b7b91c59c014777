package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AshkanYarmoradi/go-ledger/adapters"
)

// AppendCall records one call to MockAdapter.Append.
type AppendCall struct {
	AggregateID     string
	AggregateType   string
	Events          []adapters.EventRecord
	ExpectedVersion int64
}

// MockAdapter is a scriptable adapters.EventStoreAdapter.
// Each *Err field, when set, is returned by the matching method.
// Without errors, Append accepts anything and Load serves Streams.
type MockAdapter struct {
	AppendErr           error
	LoadErr             error
	GetAggregateInfoErr error
	InitializeErr       error
	PingErr             error
	CloseErr            error

	// Streams are served by Load, keyed by aggregate id.
	Streams map[string]*adapters.StreamRecord

	mu       sync.Mutex
	appends  []AppendCall
	position uint64
}

// NewMockAdapter creates a MockAdapter with no streams.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{Streams: make(map[string]*adapters.StreamRecord)}
}

// Append implements adapters.EventStoreAdapter.
func (m *MockAdapter) Append(ctx context.Context, aggregateID, aggregateType string, events []adapters.EventRecord, expectedVersion int64) ([]adapters.StoredEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.appends = append(m.appends, AppendCall{
		AggregateID:     aggregateID,
		AggregateType:   aggregateType,
		Events:          events,
		ExpectedVersion: expectedVersion,
	})
	if m.AppendErr != nil {
		return nil, m.AppendErr
	}

	stored := make([]adapters.StoredEvent, len(events))
	for i, e := range events {
		m.position++
		stored[i] = adapters.StoredEvent{
			ID:          fmt.Sprintf("event-%d", m.position),
			AggregateID: aggregateID,
			Kind:        e.Kind,
			Data:        e.Data,
			Position:    m.position,
			Timestamp:   time.Now(),
		}
	}
	return stored, nil
}

// Appends returns every Append call so far, including failed ones.
func (m *MockAdapter) Appends() []AppendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AppendCall, len(m.appends))
	copy(out, m.appends)
	return out
}

// Load implements adapters.EventStoreAdapter.
func (m *MockAdapter) Load(ctx context.Context, aggregateID string) (*adapters.StreamRecord, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	record, ok := m.Streams[aggregateID]
	if !ok {
		return nil, adapters.NewAggregateNotFoundError(aggregateID)
	}
	return record, nil
}

// GetAggregateInfo implements adapters.EventStoreAdapter.
func (m *MockAdapter) GetAggregateInfo(ctx context.Context, aggregateID string) (*adapters.AggregateInfo, error) {
	if m.GetAggregateInfoErr != nil {
		return nil, m.GetAggregateInfoErr
	}
	record, ok := m.Streams[aggregateID]
	if !ok {
		return nil, adapters.NewAggregateNotFoundError(aggregateID)
	}
	return &adapters.AggregateInfo{
		AggregateID:   record.AggregateID,
		AggregateType: record.AggregateType,
		Version:       record.Version,
		EventCount:    int64(len(record.Events)),
	}, nil
}

// Initialize implements adapters.EventStoreAdapter.
func (m *MockAdapter) Initialize(ctx context.Context) error {
	return m.InitializeErr
}

// Ping implements adapters.HealthChecker.
func (m *MockAdapter) Ping(ctx context.Context) error {
	return m.PingErr
}

// Close implements adapters.EventStoreAdapter.
func (m *MockAdapter) Close() error {
	return m.CloseErr
}

var (
	_ adapters.EventStoreAdapter = (*MockAdapter)(nil)
	_ adapters.HealthChecker     = (*MockAdapter)(nil)
)
