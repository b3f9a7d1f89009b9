package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/shipping/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Dispatcher drains a broadcast subscription and hands every event to the
// handlers registered for its type. Handlers run sequentially on the
// dispatcher goroutine; a failing or panicking handler does not affect others.
type Dispatcher[E shared.DomainEvent] struct {
	source   shared.EventSource[E]
	registry *HandlerRegistry
	logger   *zap.Logger
	onLag    func(skipped uint64)

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	stream  shared.EventStream[E]
	wg      sync.WaitGroup
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*dispatcherOptions)

type dispatcherOptions struct {
	onLag func(uint64)
}

// WithLagObserver registers a callback invoked with the number of events a
// lagging dispatcher skipped
func WithLagObserver(fn func(skipped uint64)) DispatcherOption {
	return func(o *dispatcherOptions) {
		o.onLag = fn
	}
}

// NewDispatcher creates a dispatcher reading from source
func NewDispatcher[E shared.DomainEvent](source shared.EventSource[E], logger *zap.Logger, opts ...DispatcherOption) *Dispatcher[E] {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o dispatcherOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Dispatcher[E]{
		source:   source,
		registry: NewHandlerRegistry(),
		logger:   logger,
		onLag:    o.onLag,
	}
}

// Subscribe registers a handler for specific event types
func (d *Dispatcher[E]) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	// If handler specifies its own event types, use those
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	d.registry.Register(handler, eventTypes...)
	d.logger.Debug("handler subscribed",
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes a handler
func (d *Dispatcher[E]) Unsubscribe(handler shared.EventHandler) {
	d.registry.Unregister(handler)
	d.logger.Debug("handler unsubscribed")
}

// Start subscribes to the source and begins dispatching. Events published
// after Start returns are guaranteed to be seen.
func (d *Dispatcher[E]) Start(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return fmt.Errorf("event dispatcher already running")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stream := d.source.Subscribe()

	d.mu.Lock()
	d.cancel = cancel
	d.stream = stream
	d.mu.Unlock()

	d.wg.Add(1)
	go d.run(runCtx, stream)

	d.logger.Info("event dispatcher started")
	return nil
}

// Stop stops the dispatcher and waits for the in-flight event to finish,
// or for ctx to expire.
func (d *Dispatcher[E]) Stop(ctx context.Context) error {
	if !d.running.CompareAndSwap(true, false) {
		return nil
	}

	d.mu.Lock()
	cancel, stream := d.cancel, d.stream
	d.mu.Unlock()

	cancel()
	defer stream.Close()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("event dispatcher stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event dispatcher stop: %w", ctx.Err())
	}
}

// IsRunning reports whether the dispatcher is started
func (d *Dispatcher[E]) IsRunning() bool {
	return d.running.Load()
}

func (d *Dispatcher[E]) run(ctx context.Context, stream shared.EventStream[E]) {
	defer d.wg.Done()

	for {
		event, err := stream.Recv(ctx)
		if err != nil {
			var lag *shared.LagError
			if errors.As(err, &lag) {
				d.logger.Warn("event dispatcher lagged behind",
					zap.Uint64("skipped", lag.Skipped),
				)
				if d.onLag != nil {
					d.onLag(lag.Skipped)
				}
				continue
			}
			return
		}
		d.dispatch(ctx, event)
	}
}

func (d *Dispatcher[E]) dispatch(ctx context.Context, event E) {
	for _, handler := range d.registry.GetHandlers(event.EventType()) {
		if err := d.dispatchToHandler(ctx, handler, event); err != nil {
			// Log error but continue with other handlers
			d.logger.Error("handler failed to process event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Uint32("aggregate_id", event.AggregateID()),
				zap.Error(err),
			)
		}
	}
}

// dispatchToHandler safely dispatches an event to a handler
func (d *Dispatcher[E]) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event E) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	return handler.Handle(ctx, event)
}
