package shared

import (
	"context"
	"fmt"
	"iter"
)

// EventHandler handles domain events delivered by a dispatcher
type EventHandler interface {
	// Handle processes a single event
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes returns the event types this handler is interested in.
	// An empty slice subscribes the handler to every event.
	EventTypes() []string
}

// EventSink accepts events for broadcast. Publishing never blocks and never fails;
// events published while nobody listens are dropped.
type EventSink[E any] interface {
	Publish(event E)
}

// EventSource hands out independent subscriptions positioned at "now".
type EventSource[E any] interface {
	Subscribe() EventStream[E]
}

// EventStream is a single subscriber's view of a broadcast.
type EventStream[E any] interface {
	// Recv blocks until the next event arrives, the context is done or the
	// source is closed. A subscriber that fell behind receives a *LagError
	// once and continues from the oldest retained event.
	Recv(ctx context.Context) (E, error)
	// All yields events (or lag errors) until the context is done or the
	// source is closed.
	All(ctx context.Context) iter.Seq2[E, error]
	// Close releases the subscription. It is safe to call more than once.
	Close()
}

// LagError reports that a subscriber missed events because the broadcast
// buffer was overwritten before they were read.
type LagError struct {
	Skipped uint64
}

// Error implements the error interface
func (e *LagError) Error() string {
	return fmt.Sprintf("subscriber lagged behind: %d events skipped", e.Skipped)
}

// Code returns the stable error code for lag errors
func (e *LagError) Code() string {
	return CodeSubscriberLagged
}
