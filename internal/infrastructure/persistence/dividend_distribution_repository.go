package persistence

import (
	"context"
	"time"

	"github.com/corebank/backend/internal/domain/catalog"
	"github.com/corebank/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDividendDistributionRepository implements DividendDistributionRepository using GORM
type GormDividendDistributionRepository struct {
	db *gorm.DB
}

// NewGormDividendDistributionRepository creates a new GormDividendDistributionRepository
func NewGormDividendDistributionRepository(db *gorm.DB) *GormDividendDistributionRepository {
	return &GormDividendDistributionRepository{db: db}
}

// Save persists a dividend distribution
func (r *GormDividendDistributionRepository) Save(ctx context.Context, distribution *catalog.DividendDistribution) error {
	model := models.DividendDistributionModelFromDomain(distribution)
	return r.db.WithContext(ctx).Save(model).Error
}

// ListByDefinition returns distributions of a definition ordered by due date
func (r *GormDividendDistributionRepository) ListByDefinition(ctx context.Context, tenantID, definitionID uuid.UUID) ([]catalog.DividendDistribution, error) {
	var distributionModels []models.DividendDistributionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND definition_id = ?", tenantID, definitionID).
		Order("due_date ASC").
		Find(&distributionModels).Error; err != nil {
		return nil, err
	}
	return toDomainDistributions(distributionModels), nil
}

// FindDue returns distributions due at or before the given time, across all
// definitions of a tenant
func (r *GormDividendDistributionRepository) FindDue(ctx context.Context, tenantID uuid.UUID, at time.Time) ([]catalog.DividendDistribution, error) {
	var distributionModels []models.DividendDistributionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND due_date <= ?", tenantID, at).
		Order("due_date ASC").
		Find(&distributionModels).Error; err != nil {
		return nil, err
	}
	return toDomainDistributions(distributionModels), nil
}

// ExistsEqual checks whether an equal (due-date, rate) distribution is
// already recorded for the definition. Due dates match on calendar day.
func (r *GormDividendDistributionRepository) ExistsEqual(ctx context.Context, tenantID, definitionID uuid.UUID, distribution *catalog.DividendDistribution) (bool, error) {
	year, month, day := distribution.DueDate.Date()
	dayStart := time.Date(year, month, day, 0, 0, 0, 0, distribution.DueDate.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.DividendDistributionModel{}).
		Where("tenant_id = ? AND definition_id = ? AND due_date >= ? AND due_date < ? AND rate = ?",
			tenantID, definitionID, dayStart, dayEnd, distribution.Rate).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func toDomainDistributions(distributionModels []models.DividendDistributionModel) []catalog.DividendDistribution {
	distributions := make([]catalog.DividendDistribution, len(distributionModels))
	for i, model := range distributionModels {
		distributions[i] = *model.ToDomain()
	}
	return distributions
}

// Ensure GormDividendDistributionRepository implements DividendDistributionRepository
var _ catalog.DividendDistributionRepository = (*GormDividendDistributionRepository)(nil)
