package shared

import "context"

// EventHandler consumes domain events delivered by the bus.
type EventHandler interface {
	// Handle processes one event. Returning an error marks the
	// delivery as failed; it does not stop delivery to other handlers.
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the event types the handler wants. An empty
	// slice subscribes it to everything.
	EventTypes() []string
}

// EventPublisher publishes domain events to subscribers.
type EventPublisher interface {
	// Publish delivers one or more domain events.
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber manages handler registrations.
type EventSubscriber interface {
	// Subscribe registers a handler for the given event types, or for
	// all events when none are given.
	Subscribe(handler EventHandler, eventTypes ...string)
	// Unsubscribe removes a handler from every type it is registered for.
	Unsubscribe(handler EventHandler)
}

// EventBus combines publishing and subscription with lifecycle control.
type EventBus interface {
	EventPublisher
	EventSubscriber
	// Start begins any background processing the bus needs.
	Start(ctx context.Context) error
	// Stop drains and shuts the bus down.
	Stop(ctx context.Context) error
}

// OutboxEventSaver saves domain events to the outbox table within a transaction.
// Repositories use it to implement the transactional outbox pattern: the event
// row commits or rolls back together with the aggregate row.
type OutboxEventSaver interface {
	// SaveEvents writes the events into the outbox using the caller's
	// transaction. The txProvider should be a *gorm.DB transaction.
	SaveEvents(ctx context.Context, txProvider interface{}, events ...DomainEvent) error
}
