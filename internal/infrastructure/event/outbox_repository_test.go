package event

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/corebank/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// outboxRepoFixture wires a GormOutboxRepository to a sqlmock-backed DB.
func outboxRepoFixture(t *testing.T) (sqlmock.Sqlmock, shared.OutboxRepository) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return mock, NewGormOutboxRepository(db)
}

var outboxColumns = []string{
	"id", "tenant_id", "event_id", "event_type", "aggregate_id",
	"aggregate_type", "payload", "status", "retry_count", "max_retries",
	"last_error", "next_retry_at", "processed_at", "created_at", "updated_at",
}

func TestGormOutboxRepository_Save(t *testing.T) {
	mock, repo := outboxRepoFixture(t)

	tenantID := uuid.New()
	event := newTestEvent("account-transaction", tenantID)
	payload := []byte(`{"account_identifier":"SAV-1001","amount":"250.00"}`)
	entry := shared.NewOutboxEntry(tenantID, event, payload)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "outbox_events"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Save(context.Background(), entry)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_Save_Empty(t *testing.T) {
	mock, repo := outboxRepoFixture(t)

	// Saving nothing touches nothing.
	err := repo.Save(context.Background())

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_FindPending(t *testing.T) {
	mock, repo := outboxRepoFixture(t)

	entryID := uuid.New()
	now := time.Now()
	rows := sqlmock.NewRows(outboxColumns).AddRow(
		entryID, uuid.New(), uuid.New(), "account-transaction", uuid.New(),
		"ProductInstance", []byte(`{"account_identifier":"SAV-1001"}`), "PENDING", 0, 5,
		"", nil, nil, now, now,
	)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "outbox_events" WHERE status = $1 ORDER BY created_at ASC LIMIT $2`)).
		WithArgs(shared.OutboxStatusPending, 10).
		WillReturnRows(rows)

	entries, err := repo.FindPending(context.Background(), 10)

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entryID, entries[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_FindRetryable(t *testing.T) {
	mock, repo := outboxRepoFixture(t)

	before := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "outbox_events" WHERE status = $1 AND next_retry_at <= $2 ORDER BY next_retry_at ASC LIMIT $3`)).
		WithArgs(shared.OutboxStatusFailed, before, 10).
		WillReturnRows(sqlmock.NewRows(outboxColumns))

	entries, err := repo.FindRetryable(context.Background(), before, 10)

	require.NoError(t, err)
	assert.Len(t, entries, 0)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_Update(t *testing.T) {
	mock, repo := outboxRepoFixture(t)

	tenantID := uuid.New()
	event := newTestEvent("activate-product-instance", tenantID)
	entry := shared.NewOutboxEntry(tenantID, event, []byte(`{"account_identifier":"SAV-1001"}`))
	entry.MarkSent()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "outbox_events"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Update(context.Background(), entry)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_DeleteOlderThan(t *testing.T) {
	mock, repo := outboxRepoFixture(t)

	before := time.Now().Add(-7 * 24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "outbox_events" WHERE status = $1 AND processed_at < $2`)).
		WithArgs(shared.OutboxStatusSent, before).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	deleted, err := repo.DeleteOlderThan(context.Background(), before)

	require.NoError(t, err)
	assert.Equal(t, int64(5), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_WithTx(t *testing.T) {
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	repo := NewGormOutboxRepository(db)
	newRepo := repo.WithTx(db)

	assert.NotNil(t, newRepo)
	assert.NotSame(t, repo, newRepo)
}
