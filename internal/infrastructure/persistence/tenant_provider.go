package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTenantProvider enumerates tenants for batch scheduling using GORM.
// There is no tenant registry of its own; the set of tenants with deposit
// accounts is derived from the instances table.
type GormTenantProvider struct {
	db *gorm.DB
}

// NewGormTenantProvider creates a new GormTenantProvider
func NewGormTenantProvider(db *gorm.DB) *GormTenantProvider {
	return &GormTenantProvider{db: db}
}

// GetAllActiveTenantIDs returns the IDs of every tenant that has at least one
// product instance
func (p *GormTenantProvider) GetAllActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var tenantIDs []uuid.UUID
	if err := p.db.WithContext(ctx).
		Table("product_instances").
		Distinct("tenant_id").
		Pluck("tenant_id", &tenantIDs).Error; err != nil {
		return nil, err
	}
	return tenantIDs, nil
}
