package shared

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of an outbox entry.
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
)

// OutboxEntry represents an event stored in the outbox for reliable delivery.
// Entries for the same aggregate are published in creation order, which gives
// the per-entity event ordering the command pipeline promises.
type OutboxEntry struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName maps the entry onto the outbox_events table.
func (OutboxEntry) TableName() string {
	return "outbox_events"
}

// NewOutboxEntry builds a pending entry carrying the serialized event.
func NewOutboxEntry(tenantID uuid.UUID, event DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now()
	return &OutboxEntry{
		ID:            uuid.New(),
		TenantID:      tenantID,
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		RetryCount:    0,
		MaxRetries:    DefaultMaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CanRetry reports whether a failed entry still has retry budget.
func (e *OutboxEntry) CanRetry() bool {
	return e.Status == OutboxStatusFailed && e.RetryCount < e.MaxRetries
}

// MarkProcessing claims the entry for delivery. Only pending and failed
// entries can be claimed.
func (e *OutboxEntry) MarkProcessing() error {
	if e.Status != OutboxStatusPending && e.Status != OutboxStatusFailed {
		return errors.New("can only mark pending or failed entries as processing")
	}
	e.Status = OutboxStatusProcessing
	e.UpdatedAt = time.Now()
	return nil
}

// MarkSent records a successful delivery.
func (e *OutboxEntry) MarkSent() {
	now := time.Now()
	e.Status = OutboxStatusSent
	e.ProcessedAt = &now
	e.UpdatedAt = now
}

// retryBackoff doubles per attempt: 1s, 2s, 4s, 8s, 16s.
func retryBackoff(retryCount int) time.Duration {
	return DefaultBaseBackoff * time.Duration(1<<uint(retryCount-1))
}

// MarkFailed records a delivery failure. The entry moves to DEAD once
// the retry budget is exhausted, otherwise it is scheduled for a
// backed-off retry.
func (e *OutboxEntry) MarkFailed(errMsg string) {
	e.RetryCount++
	e.LastError = errMsg
	e.UpdatedAt = time.Now()

	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		return
	}

	e.Status = OutboxStatusFailed
	nextRetry := time.Now().Add(retryBackoff(e.RetryCount))
	e.NextRetryAt = &nextRetry
}

// ResetForRetry requeues a dead letter entry with a fresh retry budget.
func (e *OutboxEntry) ResetForRetry() error {
	if e.Status != OutboxStatusDead {
		return errors.New("can only retry dead letter entries")
	}
	e.Status = OutboxStatusPending
	e.RetryCount = 0
	e.LastError = ""
	e.NextRetryAt = nil
	e.UpdatedAt = time.Now()
	return nil
}

// IsDead reports whether the entry is in dead letter status.
func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// OutboxRepository is the persistence port for outbox entries.
type OutboxRepository interface {
	// Save writes entries, normally inside the aggregate's transaction
	Save(ctx context.Context, entries ...*OutboxEntry) error
	// FindPending lists undelivered entries, oldest first, up to limit
	FindPending(ctx context.Context, limit int) ([]*OutboxEntry, error)
	// FindRetryable lists failed entries whose backoff has elapsed
	FindRetryable(ctx context.Context, before time.Time, limit int) ([]*OutboxEntry, error)
	// MarkProcessing claims entries so only one processor publishes them
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*OutboxEntry, error)
	// FindByID retrieves a single entry, nil when absent
	FindByID(ctx context.Context, id uuid.UUID) (*OutboxEntry, error)
	// FindDead pages through entries that exhausted their retries
	FindDead(ctx context.Context, page, pageSize int) ([]*OutboxEntry, int64, error)
	// Update persists an entry's changed delivery state
	Update(ctx context.Context, entry *OutboxEntry) error
	// DeleteOlderThan prunes sent entries past the retention cutoff
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	// CountByStatus tallies entries per delivery status
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
