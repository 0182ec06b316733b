package event

import (
	"context"
	"fmt"

	"github.com/corebank/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher writes domain events into the outbox table inside the
// caller's database transaction, so an instance state change and the
// events it raised commit or roll back together.
type OutboxPublisher struct {
	serializer *EventSerializer
}

// NewOutboxPublisher builds a publisher over the given serializer.
func NewOutboxPublisher(serializer *EventSerializer) *OutboxPublisher {
	return &OutboxPublisher{
		serializer: serializer,
	}
}

// PublishWithTx serializes the events and saves them as outbox entries
// using the provided transaction.
func (p *OutboxPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, event := range events {
		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return err
		}

		entries = append(entries, shared.NewOutboxEntry(event.TenantID(), event, payload))
	}

	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}

// SaveEvents implements shared.OutboxEventSaver. The txProvider must be
// the *gorm.DB transaction the aggregate change is being written in.
func (p *OutboxPublisher) SaveEvents(ctx context.Context, txProvider interface{}, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, ok := txProvider.(*gorm.DB)
	if !ok {
		return fmt.Errorf("txProvider must be a *gorm.DB, got %T", txProvider)
	}

	return p.PublishWithTx(ctx, tx, events...)
}

var _ shared.OutboxEventSaver = (*OutboxPublisher)(nil)
