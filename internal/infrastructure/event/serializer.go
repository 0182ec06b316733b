package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/corebank/backend/internal/domain/shared"
)

// EventSerializer converts domain events to and from their JSON wire form.
// Deserialization needs the concrete Go type, so every event type that can
// appear in the outbox must be registered first.
type EventSerializer struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

// NewEventSerializer creates an empty serializer.
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{
		types: make(map[string]reflect.Type),
	}
}

// Register maps an event type string to the concrete type of the given
// instance. The string must match the event's EventType().
func (s *EventSerializer) Register(eventType string, instance shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := reflect.TypeOf(instance)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	s.types[eventType] = t
}

// Serialize encodes a domain event as JSON.
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	return json.Marshal(event)
}

// Deserialize decodes JSON into a new instance of the registered type.
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	t, ok := s.types[eventType]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	ptr := reflect.New(t).Interface()
	if err := json.Unmarshal(data, ptr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	event, ok := ptr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("deserialized object does not implement DomainEvent")
	}

	return event, nil
}

// IsRegistered reports whether an event type has been registered.
func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.types[eventType]
	return ok
}

// RegisteredTypes returns all registered event type strings.
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.types))
	for t := range s.types {
		out = append(out, t)
	}
	return out
}
