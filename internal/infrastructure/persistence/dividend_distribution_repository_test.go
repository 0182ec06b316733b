package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/corebank/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDividendRepository creates a GormDividendDistributionRepository with a mocked SQL connection
func newMockDividendRepository(t *testing.T) (*GormDividendDistributionRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormDividendDistributionRepository(gormDB), mock, mockDB
}

func TestGormDividendDistributionRepository_FindDue(t *testing.T) {
	t.Run("returns distributions due at or before the cutoff", func(t *testing.T) {
		repo, mock, mockDB := newMockDividendRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		definitionID := uuid.New()
		cutoff := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "definition_id", "due_date", "rate"}).
			AddRow(uuid.New(), tenantID, definitionID, cutoff.AddDate(0, 0, -1), decimal.NewFromInt(1))

		mock.ExpectQuery(`SELECT \* FROM "dividend_distributions" WHERE tenant_id = \$1 AND due_date <= \$2 ORDER BY due_date ASC`).
			WithArgs(tenantID, cutoff).
			WillReturnRows(rows)

		distributions, err := repo.FindDue(context.Background(), tenantID, cutoff)

		assert.NoError(t, err)
		require.Len(t, distributions, 1)
		assert.Equal(t, definitionID, distributions[0].DefinitionID)
		assert.True(t, distributions[0].Rate.Equal(decimal.NewFromInt(1)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns empty slice when nothing is due", func(t *testing.T) {
		repo, mock, mockDB := newMockDividendRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		cutoff := time.Now()

		mock.ExpectQuery(`SELECT \* FROM "dividend_distributions" WHERE tenant_id = \$1 AND due_date <= \$2 ORDER BY due_date ASC`).
			WithArgs(tenantID, cutoff).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "definition_id", "due_date", "rate"}))

		distributions, err := repo.FindDue(context.Background(), tenantID, cutoff)

		assert.NoError(t, err)
		assert.Empty(t, distributions)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDividendDistributionRepository_ListByDefinition(t *testing.T) {
	t.Run("orders by due date", func(t *testing.T) {
		repo, mock, mockDB := newMockDividendRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		definitionID := uuid.New()
		base := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "definition_id", "due_date", "rate"}).
			AddRow(uuid.New(), tenantID, definitionID, base, decimal.NewFromInt(1)).
			AddRow(uuid.New(), tenantID, definitionID, base.AddDate(0, 6, 0), decimal.NewFromInt(2))

		mock.ExpectQuery(`SELECT \* FROM "dividend_distributions" WHERE tenant_id = \$1 AND definition_id = \$2 ORDER BY due_date ASC`).
			WithArgs(tenantID, definitionID).
			WillReturnRows(rows)

		distributions, err := repo.ListByDefinition(context.Background(), tenantID, definitionID)

		assert.NoError(t, err)
		require.Len(t, distributions, 2)
		assert.True(t, distributions[0].DueDate.Before(distributions[1].DueDate))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDividendDistributionRepository_ExistsEqual(t *testing.T) {
	t.Run("matches on calendar day and rate", func(t *testing.T) {
		repo, mock, mockDB := newMockDividendRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		definitionID := uuid.New()
		distribution, err := catalog.NewDividendDistribution(tenantID, definitionID,
			time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC), decimal.NewFromInt(1))
		require.NoError(t, err)

		mock.ExpectQuery(`SELECT count\(\*\) FROM "dividend_distributions" WHERE tenant_id = \$1 AND definition_id = \$2 AND due_date >= \$3 AND due_date < \$4 AND rate = \$5`).
			WithArgs(tenantID, definitionID, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		exists, err := repo.ExistsEqual(context.Background(), tenantID, definitionID, distribution)

		assert.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns false for a new distribution", func(t *testing.T) {
		repo, mock, mockDB := newMockDividendRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		definitionID := uuid.New()
		distribution, err := catalog.NewDividendDistribution(tenantID, definitionID,
			time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), decimal.NewFromInt(2))
		require.NoError(t, err)

		mock.ExpectQuery(`SELECT count\(\*\) FROM "dividend_distributions" WHERE tenant_id = \$1 AND definition_id = \$2 AND due_date >= \$3 AND due_date < \$4 AND rate = \$5`).
			WithArgs(tenantID, definitionID, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		exists, err := repo.ExistsEqual(context.Background(), tenantID, definitionID, distribution)

		assert.NoError(t, err)
		assert.False(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
