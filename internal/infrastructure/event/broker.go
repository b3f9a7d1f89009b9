package event

import (
	"context"
	"errors"
	"iter"
	"sync"

	"github.com/shipping/backend/internal/domain/shared"
)

// DefaultCapacity is the number of events retained for slow subscribers
const DefaultCapacity = 1024

var (
	// ErrBrokerClosed is returned by Recv once the broker has been closed and
	// the subscriber has drained every retained event.
	ErrBrokerClosed = errors.New("event broker closed")
	// ErrSubscriptionClosed is returned by Recv on a closed subscription
	ErrSubscriptionClosed = errors.New("subscription closed")
)

// Broker is a bounded broadcast channel. Every subscription owns a cursor into
// a shared ring buffer; publishers never wait for subscribers. A subscription
// that falls more than capacity events behind receives a *shared.LagError and
// is moved forward to the oldest retained event.
type Broker[E any] struct {
	mu          sync.Mutex
	buf         []E
	tail        uint64 // sequence number of the next published event
	subscribers int
	notify      chan struct{}
	closed      bool
	clone       func(E) E
}

// BrokerOption configures a Broker
type BrokerOption[E any] func(*Broker[E])

// WithCloneFunc sets the function used to copy an event for each delivery.
// Events implementing Clone() E are cloned automatically.
func WithCloneFunc[E any](fn func(E) E) BrokerOption[E] {
	return func(b *Broker[E]) {
		b.clone = fn
	}
}

// NewBroker creates a broker retaining up to capacity events.
// A non-positive capacity selects DefaultCapacity.
func NewBroker[E any](capacity int, opts ...BrokerOption[E]) *Broker[E] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	b := &Broker[E]{
		buf:    make([]E, capacity),
		notify: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.clone == nil {
		b.clone = func(e E) E {
			if c, ok := any(e).(interface{ Clone() E }); ok {
				return c.Clone()
			}
			return e
		}
	}
	return b
}

// Publish broadcasts event to every live subscription. It never blocks and
// never fails: without subscribers, or after Close, the event is discarded.
func (b *Broker[E]) Publish(event E) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.subscribers == 0 {
		return
	}
	b.buf[b.tail%uint64(len(b.buf))] = event
	b.tail++

	close(b.notify)
	b.notify = make(chan struct{})
}

// Subscribe registers a new cursor positioned after the latest published event
func (b *Broker[E]) Subscribe() shared.EventStream[E] {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers++
	return &Subscription[E]{broker: b, next: b.tail, done: make(chan struct{})}
}

// SubscriberCount returns the number of open subscriptions
func (b *Broker[E]) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subscribers
}

// Capacity returns the size of the ring buffer
func (b *Broker[E]) Capacity() int {
	return len(b.buf)
}

// Close stops accepting events and wakes every waiting subscriber.
// Subscribers still receive the events that were retained before Close.
func (b *Broker[E]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.notify)
}

// oldest returns the sequence number of the oldest retained event. Callers hold mu.
func (b *Broker[E]) oldest() uint64 {
	capacity := uint64(len(b.buf))
	if b.tail < capacity {
		return 0
	}
	return b.tail - capacity
}

// Subscription is one subscriber's cursor into a Broker
type Subscription[E any] struct {
	broker *Broker[E]
	next   uint64
	closed bool // guarded by broker.mu
	done   chan struct{}
}

// Recv returns the next event for this subscription, waiting until one is
// published, ctx is done, or the broker is closed.
func (s *Subscription[E]) Recv(ctx context.Context) (E, error) {
	var zero E
	b := s.broker

	for {
		b.mu.Lock()
		if s.closed {
			b.mu.Unlock()
			return zero, ErrSubscriptionClosed
		}
		if oldest := b.oldest(); s.next < oldest {
			skipped := oldest - s.next
			s.next = oldest
			b.mu.Unlock()
			return zero, &shared.LagError{Skipped: skipped}
		}
		if s.next < b.tail {
			event := b.buf[s.next%uint64(len(b.buf))]
			s.next++
			b.mu.Unlock()
			return b.clone(event), nil
		}
		if b.closed {
			b.mu.Unlock()
			return zero, ErrBrokerClosed
		}
		wait := b.notify
		b.mu.Unlock()

		select {
		case <-wait:
		case <-s.done:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// All returns the subscription as a lazy sequence. Lag errors are yielded
// with a zero event and iteration continues; the sequence ends when ctx is
// done, the subscription or broker is closed, or the consumer stops ranging.
func (s *Subscription[E]) All(ctx context.Context) iter.Seq2[E, error] {
	return func(yield func(E, error) bool) {
		for {
			event, err := s.Recv(ctx)
			if err != nil {
				var lag *shared.LagError
				if !errors.As(err, &lag) {
					return
				}
			}
			if !yield(event, err) {
				return
			}
		}
	}
}

// Close detaches the subscription from the broker. It is safe to call more than once.
func (s *Subscription[E]) Close() {
	b := s.broker
	b.mu.Lock()
	defer b.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	b.subscribers--
}

// Ensure Broker satisfies the event ports
var (
	_ shared.EventSink[int]   = (*Broker[int])(nil)
	_ shared.EventSource[int] = (*Broker[int])(nil)
	_ shared.EventStream[int] = (*Subscription[int])(nil)
)
