package event

import (
	"github.com/corebank/backend/internal/domain/catalog"
	"github.com/corebank/backend/internal/domain/deposit"
)

// RegisterAllEvents teaches the serializer every event type the
// platform can raise. The outbox processor cannot deserialize stored
// payloads for types missing here.
func RegisterAllEvents(serializer *EventSerializer) {
	// Catalog domain - Product Definition events
	serializer.Register(catalog.EventTypeDefinitionPosted, &catalog.ProductDefinitionPostedEvent{})
	serializer.Register(catalog.EventTypeDefinitionUpdated, &catalog.ProductDefinitionUpdatedEvent{})
	serializer.Register(catalog.EventTypeDefinitionActivated, &catalog.ProductDefinitionActivatedEvent{})
	serializer.Register(catalog.EventTypeDefinitionDeactivated, &catalog.ProductDefinitionDeactivatedEvent{})
	serializer.Register(catalog.EventTypeDefinitionDeleted, &catalog.ProductDefinitionDeletedEvent{})
	serializer.Register(catalog.EventTypeDividendDistribution, &catalog.DividendDistributionRecordedEvent{})

	// Deposit domain - Product Instance events
	serializer.Register(deposit.EventTypeInstancePosted, &deposit.ProductInstancePostedEvent{})
	serializer.Register(deposit.EventTypeInstanceActivated, &deposit.ProductInstanceActivatedEvent{})
	serializer.Register(deposit.EventTypeInstanceClosed, &deposit.ProductInstanceClosedEvent{})
	serializer.Register(deposit.EventTypeInstanceUpdated, &deposit.ProductInstanceUpdatedEvent{})
	serializer.Register(deposit.EventTypeInstanceTransaction, &deposit.ProductInstanceTransactionEvent{})
	serializer.Register(deposit.EventTypeInterestAccrued, &deposit.InterestAccruedEvent{})
	serializer.Register(deposit.EventTypeInterestPayed, &deposit.InterestPayedEvent{})
}
