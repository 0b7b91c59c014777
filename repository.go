package ledger

import (
	"context"
)

// AggregateFactory rebuilds an aggregate from its stream.
type AggregateFactory[T Aggregate] func(stream *EventStream) (T, error)

// Repository loads aggregates by replaying their streams and saves their
// uncommitted changes under optimistic concurrency. It never retries.
type Repository[T Aggregate] struct {
	store   EventStore
	factory AggregateFactory[T]
	logger  Logger
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*repositoryConfig)

type repositoryConfig struct {
	logger Logger
}

// WithRepositoryLogger sets the repository logger.
func WithRepositoryLogger(l Logger) RepositoryOption {
	return func(c *repositoryConfig) {
		c.logger = l
	}
}

// NewRepository creates a repository for one aggregate type.
func NewRepository[T Aggregate](store EventStore, factory AggregateFactory[T], opts ...RepositoryOption) *Repository[T] {
	cfg := repositoryConfig{logger: &noopLogger{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Repository[T]{
		store:   store,
		factory: factory,
		logger:  cfg.logger,
	}
}

// NewAccountRepository creates a repository for accounts.
func NewAccountRepository(store EventStore, opts ...RepositoryOption) *Repository[*Account] {
	return NewRepository[*Account](store, AccountFromStream, opts...)
}

// NewClientRepository creates a repository for clients.
func NewClientRepository(store EventStore, opts ...RepositoryOption) *Repository[*Client] {
	return NewRepository[*Client](store, ClientFromStream, opts...)
}

// GetByID loads the aggregate's stream and replays it.
// A missing aggregate fails with NotFoundError, unchanged.
func (r *Repository[T]) GetByID(ctx context.Context, id ID) (T, error) {
	var zero T

	stream, err := r.store.LoadStream(ctx, id)
	if err != nil {
		return zero, err
	}

	agg, err := r.factory(stream)
	if err != nil {
		return zero, err
	}
	return agg, nil
}

// Save appends the aggregate's uncommitted changes at its loaded version and,
// on success, marks them committed. ConcurrencyError is returned unchanged.
func (r *Repository[T]) Save(ctx context.Context, agg T) (T, error) {
	_, err := r.SaveAndCollect(ctx, agg)
	return agg, err
}

// SaveAndCollect is Save, returning the events that were committed.
// An aggregate without uncommitted changes is a no-op.
func (r *Repository[T]) SaveAndCollect(ctx context.Context, agg T) ([]RecordedEvent, error) {
	if isNilAggregate(agg) {
		return nil, ErrNilAggregate
	}

	changes := agg.UncommittedChanges()
	if len(changes) == 0 {
		return nil, nil
	}

	recorded, err := r.store.SaveEvents(ctx, agg.AggregateID(), agg.AggregateType(), changes, agg.Version())
	if err != nil {
		r.logger.Warn("Failed to save aggregate",
			"aggregateID", agg.AggregateID().String(),
			"aggregateType", agg.AggregateType(),
			"version", agg.Version(),
			"error", err)
		return nil, err
	}

	agg.MarkChangesAsCommitted()
	return recorded, nil
}

func isNilAggregate(agg Aggregate) bool {
	switch v := agg.(type) {
	case nil:
		return true
	case *Account:
		return v == nil
	case *Client:
		return v == nil
	default:
		return false
	}
}
