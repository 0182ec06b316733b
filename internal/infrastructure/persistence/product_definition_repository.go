package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corebank/backend/internal/domain/catalog"
	"github.com/corebank/backend/internal/domain/shared"
	"github.com/corebank/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProductDefinitionRepository implements ProductDefinitionRepository using GORM
type GormProductDefinitionRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormProductDefinitionRepository creates a new GormProductDefinitionRepository
func NewGormProductDefinitionRepository(db *gorm.DB) *GormProductDefinitionRepository {
	return &GormProductDefinitionRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormProductDefinitionRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByID finds a product definition by ID for a tenant
func (r *GormProductDefinitionRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*catalog.ProductDefinition, error) {
	var model models.ProductDefinitionModel
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

// FindByIdentifier finds a product definition by its business identifier for a tenant
func (r *GormProductDefinitionRepository) FindByIdentifier(ctx context.Context, tenantID uuid.UUID, identifier string) (*catalog.ProductDefinition, error) {
	var model models.ProductDefinitionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND identifier = ?", tenantID, identifier).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound,
				fmt.Sprintf("Product definition %s not found", identifier))
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds product definitions for a tenant with filtering
func (r *GormProductDefinitionRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter catalog.ProductDefinitionFilter) ([]catalog.ProductDefinition, error) {
	var definitionModels []models.ProductDefinitionModel

	query := r.db.WithContext(ctx).Model(&models.ProductDefinitionModel{}).
		Where("tenant_id = ?", tenantID)
	query = r.applyFilter(query, filter)

	if err := query.Find(&definitionModels).Error; err != nil {
		return nil, err
	}
	definitions := make([]catalog.ProductDefinition, len(definitionModels))
	for i, model := range definitionModels {
		definitions[i] = *model.ToDomain()
	}
	return definitions, nil
}

// ExistsByIdentifier checks whether an identifier is already taken for a tenant
func (r *GormProductDefinitionRepository) ExistsByIdentifier(ctx context.Context, tenantID uuid.UUID, identifier string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ProductDefinitionModel{}).
		Where("tenant_id = ? AND identifier = ?", tenantID, identifier).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a product definition and persists its pending
// domain events to the outbox in the same transaction
func (r *GormProductDefinitionRepository) Save(ctx context.Context, definition *catalog.ProductDefinition) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.ProductDefinitionModelFromDomain(definition)
		if err := tx.Save(model).Error; err != nil {
			return err
		}

		if r.outboxSaver != nil {
			if events := definition.GetDomainEvents(); len(events) > 0 {
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
	definition.ClearDomainEvents()
	return nil
}

// SaveWithLock saves with optimistic locking. Domain mutators increment the
// aggregate version before saving, so the guard accepts any stored version
// strictly below the incoming one.
func (r *GormProductDefinitionRepository) SaveWithLock(ctx context.Context, definition *catalog.ProductDefinition) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		definition.UpdatedAt = time.Now()

		result := tx.Model(&models.ProductDefinitionModel{}).
			Where("id = ? AND tenant_id = ? AND version < ?", definition.ID, definition.TenantID, definition.Version).
			Updates(map[string]interface{}{
				"name":            definition.Name,
				"description":     definition.Description,
				"type":            definition.Type,
				"currency":        definition.Currency,
				"minimum_balance": definition.MinimumBalance,
				"interest_rate":   definition.InterestRate,
				"term":            definition.Term,
				"charges":         definition.Charges,
				"actions":         definition.Actions,
				"flexible":        definition.Flexible,
				"active":          definition.Active,
				"version":         definition.Version,
				"updated_at":      definition.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if r.outboxSaver != nil {
			if events := definition.GetDomainEvents(); len(events) > 0 {
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
	definition.ClearDomainEvents()
	return nil
}

// Delete removes a product definition and its command history for a tenant
func (r *GormProductDefinitionRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ? AND definition_id = ?", tenantID, id).
			Delete(&models.DefinitionCommandModel{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.ProductDefinitionModel{}, "tenant_id = ? AND id = ?", tenantID, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// AppendCommand appends an audit record to the definition's command history
func (r *GormProductDefinitionRepository) AppendCommand(ctx context.Context, command *catalog.DefinitionCommand) error {
	model := &models.DefinitionCommandModel{}
	model.FromDomain(command)
	return r.db.WithContext(ctx).Create(model).Error
}

// ListCommands returns the command history of a definition in submission order
func (r *GormProductDefinitionRepository) ListCommands(ctx context.Context, tenantID, definitionID uuid.UUID) ([]catalog.DefinitionCommand, error) {
	var commandModels []models.DefinitionCommandModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND definition_id = ?", tenantID, definitionID).
		Order("created_at ASC").
		Find(&commandModels).Error; err != nil {
		return nil, err
	}
	commands := make([]catalog.DefinitionCommand, len(commandModels))
	for i, model := range commandModels {
		commands[i] = *model.ToDomain()
	}
	return commands, nil
}

// applyFilter applies filter options to the query
func (r *GormProductDefinitionRepository) applyFilter(query *gorm.DB, filter catalog.ProductDefinitionFilter) *gorm.DB {
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("identifier ILIKE ? OR name ILIKE ?", searchPattern, searchPattern)
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	// Apply ordering with whitelist validation to prevent SQL injection
	sortField := ValidateSortField(filter.OrderBy, ProductDefinitionSortFields, "identifier")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	if sortField == "identifier" && filter.OrderBy == "" {
		sortOrder = "ASC"
	}
	return query.Order(sortField + " " + sortOrder)
}

// Ensure GormProductDefinitionRepository implements ProductDefinitionRepository
var _ catalog.ProductDefinitionRepository = (*GormProductDefinitionRepository)(nil)
