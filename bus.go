package ledger

import (
	"context"
	"sync"
)

// CommandBus routes ledger commands to their handlers through a middleware
// pipeline. Close drains it: commands already running finish before Close
// returns, so the event store can be closed right after.
type CommandBus struct {
	mu         sync.RWMutex
	registry   *HandlerRegistry
	middleware []Middleware
	closed     bool
	inflight   sync.WaitGroup
}

// CommandBusOption configures a CommandBus.
type CommandBusOption func(*CommandBus)

// WithMiddleware adds middleware to the command bus.
func WithMiddleware(middleware ...Middleware) CommandBusOption {
	return func(b *CommandBus) {
		b.middleware = append(b.middleware, middleware...)
	}
}

// NewCommandBus creates an empty bus.
func NewCommandBus(opts ...CommandBusOption) *CommandBus {
	bus := &CommandBus{registry: NewHandlerRegistry()}
	for _, opt := range opts {
		opt(bus)
	}
	return bus
}

// Register adds a handler, replacing any handler for the same command type.
func (b *CommandBus) Register(handler CommandHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registry.Register(handler)
}

// Use appends middleware. The first middleware added runs outermost.
func (b *CommandBus) Use(middleware ...Middleware) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.middleware = append(b.middleware, middleware...)
}

// Dispatch runs cmd through the middleware and its handler.
func (b *CommandBus) Dispatch(ctx context.Context, cmd Command) (CommandResult, error) {
	if cmd == nil {
		return NewErrorResult(ErrNilCommand), ErrNilCommand
	}

	chain, err := b.acquire(cmd.CommandType())
	if err != nil {
		return NewErrorResult(err), err
	}
	defer b.inflight.Done()

	return chain(ctx, cmd)
}

// acquire builds the pipeline for cmdType and counts the dispatch as in
// flight. The caller must call inflight.Done when err is nil.
func (b *CommandBus) acquire(cmdType string) (MiddlewareFunc, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrCommandBusClosed
	}
	handler := b.registry.Get(cmdType)
	if handler == nil {
		return nil, NewHandlerNotFoundError(cmdType)
	}

	chain := MiddlewareFunc(handler.Handle)
	for i := len(b.middleware) - 1; i >= 0; i-- {
		chain = b.middleware[i](chain)
	}

	b.inflight.Add(1)
	return chain, nil
}

// HasHandler reports whether cmdType has a handler.
func (b *CommandBus) HasHandler(cmdType string) bool {
	return b.registry.Has(cmdType)
}

// CommandTypes returns the registered command types, sorted.
func (b *CommandBus) CommandTypes() []string {
	return b.registry.CommandTypes()
}

// MiddlewareCount returns the number of registered middleware.
func (b *CommandBus) MiddlewareCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.middleware)
}

// Close rejects new commands with ErrCommandBusClosed and waits for running
// ones. A handler that dispatches a follow-up command while the bus closes
// sees ErrCommandBusClosed for the follow-up.
func (b *CommandBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.inflight.Wait()
	return nil
}

// IsClosed reports whether Close has been called.
func (b *CommandBus) IsClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}
