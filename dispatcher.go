package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// EventHandler reacts to one committed event.
type EventHandler func(ctx context.Context, event RecordedEvent) error

// Dispatcher republishes committed events to in-process subscribers.
//
// Subscribers for a kind run in subscription order, followed by the
// catch-all subscribers. Every subscriber is called even if an earlier one
// fails; the failures are returned joined.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
	all      []EventHandler
	logger   Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the dispatcher logger.
func WithDispatcherLogger(l Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[string][]EventHandler),
		logger:   &noopLogger{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Subscribe registers handler for one event kind.
func (d *Dispatcher) Subscribe(kind string, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = append(d.handlers[kind], handler)
}

// SubscribeAll registers handler for every event kind.
func (d *Dispatcher) SubscribeAll(handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.all = append(d.all, handler)
}

// HasSubscribers reports whether any handler would receive kind.
func (d *Dispatcher) HasSubscribers(kind string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[kind]) > 0 || len(d.all) > 0
}

// Dispatch hands events to their subscribers, in order.
func (d *Dispatcher) Dispatch(ctx context.Context, events ...RecordedEvent) error {
	var errs []error

	for _, event := range events {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		d.mu.RLock()
		handlers := make([]EventHandler, 0, len(d.handlers[event.Kind()])+len(d.all))
		handlers = append(handlers, d.handlers[event.Kind()]...)
		handlers = append(handlers, d.all...)
		d.mu.RUnlock()

		for _, handler := range handlers {
			if err := handler(ctx, event); err != nil {
				d.logger.Error("Event handler failed",
					"kind", event.Kind(),
					"aggregateID", event.AggregateID,
					"eventID", event.ID,
					"error", err)
				errs = append(errs, fmt.Errorf("ledger: handler for %s failed: %w", event.Kind(), err))
			}
		}
	}

	return errors.Join(errs...)
}
