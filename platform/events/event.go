// Package events provides the in-process event bus infrastructure.
// Domain event definitions live in internal/events; this package only
// carries the transport-agnostic contracts.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is the interface all domain events must implement.
type Event interface {
	// EventName returns the unique name of the event, e.g. "lead.promoted".
	EventName() string
	// OccurredAt returns when the event happened.
	OccurredAt() time.Time
	// EventID returns the unique identifier of this event instance.
	EventID() uuid.UUID
}

// BaseEvent provides common fields for all events. Embed it in concrete
// event types and set the fields via NewBaseEvent.
type BaseEvent struct {
	ID        uuid.UUID
	Timestamp time.Time
}

// NewBaseEvent creates a BaseEvent with a fresh ID and the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{
		ID:        uuid.New(),
		Timestamp: time.Now().UTC(),
	}
}

// OccurredAt returns when the event happened.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// EventID returns the unique identifier of this event instance.
func (e BaseEvent) EventID() uuid.UUID {
	return e.ID
}

// Handler processes an event. Handlers must be safe for concurrent use.
type Handler func(ctx context.Context, event Event) error

// Bus publishes events to subscribed handlers.
type Bus interface {
	// Publish delivers the event to all subscribers asynchronously.
	// It never blocks the caller on handler execution.
	Publish(ctx context.Context, event Event)
	// PublishSync delivers the event to all subscribers and waits for
	// them to finish, returning the first handler error.
	PublishSync(ctx context.Context, event Event) error
	// Subscribe registers a handler for the given event name.
	Subscribe(eventName string, handler Handler)
}
