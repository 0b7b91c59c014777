package memory

import (
	"context"
	"sync"
	"time"

	"github.com/AshkanYarmoradi/go-ledger/adapters"
)

var _ adapters.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore keeps idempotency records in a map. Records are lost on
// restart, so a process using it only deduplicates redeliveries it saw itself.
type IdempotencyStore struct {
	mu      sync.RWMutex
	records map[string]adapters.IdempotencyRecord

	sweepInterval time.Duration
	stop          chan struct{}
	done          chan struct{}
	closeOnce     sync.Once
}

// IdempotencyStoreOption configures an IdempotencyStore.
type IdempotencyStoreOption func(*IdempotencyStore)

// WithSweepInterval starts a goroutine that drops expired records every
// interval. Zero (the default) disables it.
func WithSweepInterval(interval time.Duration) IdempotencyStoreOption {
	return func(s *IdempotencyStore) {
		s.sweepInterval = interval
	}
}

// NewIdempotencyStore creates an empty in-memory IdempotencyStore.
func NewIdempotencyStore(opts ...IdempotencyStoreOption) *IdempotencyStore {
	s := &IdempotencyStore{
		records: make(map[string]adapters.IdempotencyRecord),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.sweepInterval > 0 {
		go s.sweep()
	} else {
		close(s.done)
	}
	return s
}

func (s *IdempotencyStore) sweep() {
	defer close(s.done)
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.Cleanup(context.Background(), 0)
		case <-s.stop:
			return
		}
	}
}

// Get returns a copy of the record for key, or nil when it is missing or expired.
func (s *IdempotencyStore) Get(ctx context.Context, key string) (*adapters.IdempotencyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()

	if !ok || record.IsExpired() {
		return nil, nil
	}
	return &record, nil
}

// Store saves a copy of record under its key.
func (s *IdempotencyStore) Store(ctx context.Context, record *adapters.IdempotencyRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.records[record.Key] = *record
	s.mu.Unlock()
	return nil
}

// Delete removes the record for key.
func (s *IdempotencyStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}

// Cleanup removes records that expired more than olderThan ago.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-olderThan)

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for key, record := range s.records {
		if record.ExpiresAt.Before(cutoff) {
			delete(s.records, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of records held, expired ones included.
func (s *IdempotencyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close stops the sweep goroutine, if any. It is safe to call more than once.
func (s *IdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done
	})
	return nil
}
