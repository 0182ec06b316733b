package catalog

import (
	"context"
	"time"

	"github.com/corebank/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductDefinitionFilter defines filtering options for definition queries
type ProductDefinitionFilter struct {
	shared.Filter
	Type   *ProductType // Filter by product type
	Active *bool        // Filter by activation state
}

// ProductDefinitionRepository defines the interface for definition persistence
type ProductDefinitionRepository interface {
	// FindByID finds a definition by ID for a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ProductDefinition, error)

	// FindByIdentifier finds a definition by its business identifier for a tenant
	FindByIdentifier(ctx context.Context, tenantID uuid.UUID, identifier string) (*ProductDefinition, error)

	// FindAll finds definitions for a tenant with filtering
	FindAll(ctx context.Context, tenantID uuid.UUID, filter ProductDefinitionFilter) ([]ProductDefinition, error)

	// ExistsByIdentifier checks whether an identifier is already taken for a tenant
	ExistsByIdentifier(ctx context.Context, tenantID uuid.UUID, identifier string) (bool, error)

	// Save creates or updates a definition together with its pending events
	Save(ctx context.Context, definition *ProductDefinition) error

	// SaveWithLock persists only when the stored version still matches
	SaveWithLock(ctx context.Context, definition *ProductDefinition) error

	// Delete removes a definition for a tenant
	Delete(ctx context.Context, tenantID, id uuid.UUID) error

	// AppendCommand appends an audit record to the definition's command history
	AppendCommand(ctx context.Context, command *DefinitionCommand) error

	// ListCommands returns the ordered command history of a definition
	ListCommands(ctx context.Context, tenantID, definitionID uuid.UUID) ([]DefinitionCommand, error)
}

// DividendDistributionRepository defines the interface for dividend
// distribution persistence
type DividendDistributionRepository interface {
	// Save persists a distribution
	Save(ctx context.Context, distribution *DividendDistribution) error

	// ListByDefinition returns distributions of a definition ordered by due date
	ListByDefinition(ctx context.Context, tenantID, definitionID uuid.UUID) ([]DividendDistribution, error)

	// FindDue returns distributions due at or before the given time, across
	// all definitions of a tenant
	FindDue(ctx context.Context, tenantID uuid.UUID, at time.Time) ([]DividendDistribution, error)

	// ExistsEqual checks whether an equal (due-date, rate) distribution is
	// already recorded for the definition
	ExistsEqual(ctx context.Context, tenantID, definitionID uuid.UUID, distribution *DividendDistribution) (bool, error)
}
