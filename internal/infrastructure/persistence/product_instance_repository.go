package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corebank/backend/internal/domain/deposit"
	"github.com/corebank/backend/internal/domain/shared"
	"github.com/corebank/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProductInstanceRepository implements ProductInstanceRepository using GORM
type GormProductInstanceRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormProductInstanceRepository creates a new GormProductInstanceRepository
func NewGormProductInstanceRepository(db *gorm.DB) *GormProductInstanceRepository {
	return &GormProductInstanceRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormProductInstanceRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByID finds a product instance by ID for a tenant
func (r *GormProductInstanceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*deposit.ProductInstance, error) {
	var model models.ProductInstanceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByAccountIdentifier finds a product instance by its ledger account number
func (r *GormProductInstanceRepository) FindByAccountIdentifier(ctx context.Context, tenantID uuid.UUID, accountIdentifier string) (*deposit.ProductInstance, error) {
	var model models.ProductInstanceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND account_identifier = ?", tenantID, accountIdentifier).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound,
				fmt.Sprintf("Product instance %s not found", accountIdentifier))
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds product instances for a tenant with filtering
func (r *GormProductInstanceRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter deposit.ProductInstanceFilter) ([]deposit.ProductInstance, error) {
	var instanceModels []models.ProductInstanceModel

	query := r.db.WithContext(ctx).Model(&models.ProductInstanceModel{}).
		Where("tenant_id = ?", tenantID)
	query = r.applyFilter(query, filter)

	if err := query.Find(&instanceModels).Error; err != nil {
		return nil, err
	}
	return toDomainInstances(instanceModels), nil
}

// FindByCustomer returns the instances owned by a customer
func (r *GormProductInstanceRepository) FindByCustomer(ctx context.Context, tenantID, customerID uuid.UUID) ([]deposit.ProductInstance, error) {
	var instanceModels []models.ProductInstanceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).
		Order("opened_on DESC").
		Find(&instanceModels).Error; err != nil {
		return nil, err
	}
	return toDomainInstances(instanceModels), nil
}

// FindActiveByDefinition returns the ACTIVE instances of a definition
func (r *GormProductInstanceRepository) FindActiveByDefinition(ctx context.Context, tenantID, definitionID uuid.UUID) ([]deposit.ProductInstance, error) {
	var instanceModels []models.ProductInstanceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND definition_id = ? AND state = ?", tenantID, definitionID, deposit.InstanceStateActive).
		Order("account_identifier ASC").
		Find(&instanceModels).Error; err != nil {
		return nil, err
	}
	return toDomainInstances(instanceModels), nil
}

// CountByDefinition counts instances referencing a definition, in any state
func (r *GormProductInstanceRepository) CountByDefinition(ctx context.Context, tenantID, definitionID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ProductInstanceModel{}).
		Where("tenant_id = ? AND definition_id = ?", tenantID, definitionID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByAccountIdentifier checks whether an account identifier is taken
func (r *GormProductInstanceRepository) ExistsByAccountIdentifier(ctx context.Context, tenantID uuid.UUID, accountIdentifier string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ProductInstanceModel{}).
		Where("tenant_id = ? AND account_identifier = ?", tenantID, accountIdentifier).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a product instance and persists its pending
// domain events to the outbox in the same transaction
func (r *GormProductInstanceRepository) Save(ctx context.Context, instance *deposit.ProductInstance) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.ProductInstanceModelFromDomain(instance)
		if err := tx.Save(model).Error; err != nil {
			return err
		}

		if r.outboxSaver != nil {
			if events := instance.GetDomainEvents(); len(events) > 0 {
				if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
					return fmt.Errorf("failed to save events to outbox: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	instance.ClearDomainEvents()
	return nil
}

// SaveWithLock saves with optimistic locking. Domain mutators increment the
// aggregate version before saving, so the guard accepts any stored version
// strictly below the incoming one.
func (r *GormProductInstanceRepository) SaveWithLock(ctx context.Context, instance *deposit.ProductInstance) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		instance.UpdatedAt = time.Now()

		result := tx.Model(&models.ProductInstanceModel{}).
			Where("id = ? AND tenant_id = ? AND version < ?", instance.ID, instance.TenantID, instance.Version).
			Updates(map[string]interface{}{
				"alternative_account_num": instance.AlternativeAccountNum,
				"beneficiaries":           instance.Beneficiaries,
				"state":                   instance.State,
				"balance":                 instance.Balance,
				"pending_ledger_entries":  instance.PendingLedgerEntries,
				"last_transaction_date":   instance.LastTransactionDate,
				"last_accrued_at":         instance.LastAccruedAt,
				"version":                 instance.Version,
				"updated_at":              instance.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if r.outboxSaver != nil {
			if events := instance.GetDomainEvents(); len(events) > 0 {
				if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
					return fmt.Errorf("failed to save events to outbox: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	instance.ClearDomainEvents()
	return nil
}

// applyFilter applies filter options to the query
func (r *GormProductInstanceRepository) applyFilter(query *gorm.DB, filter deposit.ProductInstanceFilter) *gorm.DB {
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.DefinitionID != nil {
		query = query.Where("definition_id = ?", *filter.DefinitionID)
	}
	if filter.State != nil {
		query = query.Where("state = ?", *filter.State)
	}
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("account_identifier ILIKE ? OR alternative_account_num ILIKE ? OR definition_identifier ILIKE ?",
			searchPattern, searchPattern, searchPattern)
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	// Apply ordering with whitelist validation to prevent SQL injection
	sortField := ValidateSortField(filter.OrderBy, ProductInstanceSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	return query.Order(sortField + " " + sortOrder)
}

func toDomainInstances(instanceModels []models.ProductInstanceModel) []deposit.ProductInstance {
	instances := make([]deposit.ProductInstance, len(instanceModels))
	for i, model := range instanceModels {
		instances[i] = *model.ToDomain()
	}
	return instances
}

// Ensure GormProductInstanceRepository implements ProductInstanceRepository
var _ deposit.ProductInstanceRepository = (*GormProductInstanceRepository)(nil)
