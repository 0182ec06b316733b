package event

import (
	"context"
	"testing"
	"time"

	"github.com/corebank/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockOutboxRepoForService is an in-memory OutboxRepository for the
// service tests.
type mockOutboxRepoForService struct {
	entries map[uuid.UUID]*shared.OutboxEntry
}

func newMockOutboxRepoForService() *mockOutboxRepoForService {
	return &mockOutboxRepoForService{
		entries: make(map[uuid.UUID]*shared.OutboxEntry),
	}
}

// addEntry stores a minimal entry in the given status and returns it.
func (r *mockOutboxRepoForService) addEntry(status shared.OutboxStatus) *shared.OutboxEntry {
	entry := &shared.OutboxEntry{
		ID:     uuid.New(),
		Status: status,
	}
	r.entries[entry.ID] = entry
	return entry
}

// addDeadEntry stores a fully populated dead letter entry.
func (r *mockOutboxRepoForService) addDeadEntry() *shared.OutboxEntry {
	now := time.Now()
	entry := &shared.OutboxEntry{
		ID:            uuid.New(),
		TenantID:      uuid.New(),
		EventID:       uuid.New(),
		EventType:     "account-transaction",
		AggregateID:   uuid.New(),
		AggregateType: "ProductInstance",
		Status:        shared.OutboxStatusDead,
		RetryCount:    5,
		MaxRetries:    5,
		LastError:     "ledger unreachable",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.entries[entry.ID] = entry
	return entry
}

func (r *mockOutboxRepoForService) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	for _, e := range entries {
		r.entries[e.ID] = e
	}
	return nil
}

func (r *mockOutboxRepoForService) FindPending(ctx context.Context, limit int) ([]*shared.OutboxEntry, error) {
	var result []*shared.OutboxEntry
	for _, e := range r.entries {
		if e.Status == shared.OutboxStatusPending {
			result = append(result, e)
			if len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

func (r *mockOutboxRepoForService) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *mockOutboxRepoForService) FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	var result []*shared.OutboxEntry
	for _, e := range r.entries {
		if e.Status == shared.OutboxStatusDead {
			result = append(result, e)
		}
	}
	total := int64(len(result))

	start := (page - 1) * pageSize
	if start >= len(result) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

func (r *mockOutboxRepoForService) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	if e, ok := r.entries[id]; ok {
		return e, nil
	}
	return nil, nil
}

func (r *mockOutboxRepoForService) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *mockOutboxRepoForService) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	r.entries[entry.ID] = entry
	return nil
}

func (r *mockOutboxRepoForService) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (r *mockOutboxRepoForService) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range r.entries {
		counts[e.Status]++
	}
	return counts, nil
}

// outboxServiceFixture wires an OutboxService to the in-memory repo.
func outboxServiceFixture() (*OutboxService, *mockOutboxRepoForService) {
	repo := newMockOutboxRepoForService()
	return NewOutboxService(repo, zap.NewNop()), repo
}

func TestOutboxService_GetDeadLetterEntries(t *testing.T) {
	service, repo := outboxServiceFixture()

	for i := 0; i < 5; i++ {
		repo.addDeadEntry()
	}
	repo.addEntry(shared.OutboxStatusPending)

	result, err := service.GetDeadLetterEntries(context.Background(), OutboxFilter{Page: 1, PageSize: 10})

	require.NoError(t, err)
	assert.Equal(t, int64(5), result.Total)
	require.Len(t, result.Entries, 5)
	for _, entry := range result.Entries {
		assert.Equal(t, "DEAD", entry.Status)
	}
}

func TestOutboxService_RetryDeadEntry(t *testing.T) {
	service, repo := outboxServiceFixture()
	deadEntry := repo.addDeadEntry()

	result, err := service.RetryDeadEntry(context.Background(), deadEntry.ID)

	require.NoError(t, err)
	assert.Equal(t, "PENDING", result.Status)
	assert.Equal(t, 0, result.RetryCount)
	assert.Empty(t, result.LastError)
}

func TestOutboxService_RetryDeadEntry_NotFound(t *testing.T) {
	service, _ := outboxServiceFixture()

	_, err := service.RetryDeadEntry(context.Background(), uuid.New())

	assert.Error(t, err)
}

func TestOutboxService_RetryDeadEntry_NotDead(t *testing.T) {
	service, repo := outboxServiceFixture()
	entry := repo.addEntry(shared.OutboxStatusPending)

	_, err := service.RetryDeadEntry(context.Background(), entry.ID)

	assert.Error(t, err)
}

func TestOutboxService_GetStats(t *testing.T) {
	service, repo := outboxServiceFixture()

	for _, status := range []shared.OutboxStatus{
		shared.OutboxStatusPending,
		shared.OutboxStatusPending,
		shared.OutboxStatusProcessing,
		shared.OutboxStatusSent,
		shared.OutboxStatusSent,
		shared.OutboxStatusSent,
		shared.OutboxStatusFailed,
		shared.OutboxStatusDead,
	} {
		repo.addEntry(status)
	}

	stats, err := service.GetStats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(1), stats.Processing)
	assert.Equal(t, int64(3), stats.Sent)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Dead)
	assert.Equal(t, int64(8), stats.Total)
}

func TestOutboxService_RetryAllDeadEntries(t *testing.T) {
	service, repo := outboxServiceFixture()

	for i := 0; i < 3; i++ {
		repo.addDeadEntry()
	}
	pendingEntry := repo.addEntry(shared.OutboxStatusPending)

	count, err := service.RetryAllDeadEntries(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// Every dead entry was requeued with a fresh retry budget.
	for _, entry := range repo.entries {
		if entry.ID != pendingEntry.ID {
			assert.Equal(t, shared.OutboxStatusPending, entry.Status)
			assert.Equal(t, 0, entry.RetryCount)
		}
	}
}
