package event

import (
	"context"
	"testing"

	"github.com/corebank/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

// recordingHandler is an EventHandler that remembers what it handled.
type recordingHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
}

func newRecordingHandler(eventTypes ...string) *recordingHandler {
	return &recordingHandler{
		eventTypes: eventTypes,
		handled:    make([]shared.DomainEvent, 0),
	}
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.handled = append(h.handled, event)
	return nil
}

func (h *recordingHandler) EventTypes() []string {
	return h.eventTypes
}

// assertHandlers checks that exactly the given handlers are registered
// for eventType, in order.
func assertHandlers(t *testing.T, registry *HandlerRegistry, eventType string, want ...shared.EventHandler) {
	t.Helper()
	got := registry.GetHandlers(eventType)
	assert.Len(t, got, len(want))
	for i := range want {
		if i < len(got) {
			assert.Equal(t, want[i], got[i])
		}
	}
}

func TestHandlerRegistry_RegisterSpecificTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newRecordingHandler("instance-opened", "instance-updated")

	registry.Register(handler, "instance-opened", "instance-updated")

	assertHandlers(t, registry, "instance-opened", handler)
	assertHandlers(t, registry, "instance-updated", handler)
	assertHandlers(t, registry, "instance-closed")
}

func TestHandlerRegistry_RegisterWildcard(t *testing.T) {
	registry := NewHandlerRegistry()
	// Registering without event types subscribes to everything.
	handler := newRecordingHandler()

	registry.Register(handler)

	assertHandlers(t, registry, "instance-opened", handler)
	assertHandlers(t, registry, "dividend-declared", handler)
}

func TestHandlerRegistry_WildcardAndSpecificCombine(t *testing.T) {
	registry := NewHandlerRegistry()
	specific := newRecordingHandler("instance-opened")
	wildcard := newRecordingHandler()

	registry.Register(specific, "instance-opened")
	registry.Register(wildcard)

	assert.Len(t, registry.GetHandlers("instance-opened"), 2)
	assertHandlers(t, registry, "interest-accrued", wildcard)
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	t.Run("specific handler", func(t *testing.T) {
		registry := NewHandlerRegistry()
		first := newRecordingHandler("instance-opened")
		second := newRecordingHandler("instance-opened")

		registry.Register(first, "instance-opened")
		registry.Register(second, "instance-opened")
		assert.Len(t, registry.GetHandlers("instance-opened"), 2)

		registry.Unregister(first)

		assertHandlers(t, registry, "instance-opened", second)
	})

	t.Run("wildcard handler", func(t *testing.T) {
		registry := NewHandlerRegistry()
		wildcard := newRecordingHandler()

		registry.Register(wildcard)
		assert.Len(t, registry.GetHandlers("interest-accrued"), 1)

		registry.Unregister(wildcard)

		assertHandlers(t, registry, "interest-accrued")
	})
}

func TestHandlerRegistry_GetAllHandlers(t *testing.T) {
	registry := NewHandlerRegistry()

	registry.Register(newRecordingHandler("instance-opened"), "instance-opened")
	registry.Register(newRecordingHandler("definition-created"), "definition-created")
	registry.Register(newRecordingHandler())

	assert.Len(t, registry.GetAllHandlers(), 3)
}

func TestHandlerRegistry_GetAllHandlers_DeduplicatesAcrossTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newRecordingHandler("instance-opened", "instance-updated")

	registry.Register(handler, "instance-opened", "instance-updated")

	assert.Len(t, registry.GetAllHandlers(), 1)
}
