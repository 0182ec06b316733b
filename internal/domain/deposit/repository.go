package deposit

import (
	"context"

	"github.com/corebank/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductInstanceFilter defines filtering options for instance queries
type ProductInstanceFilter struct {
	shared.Filter
	CustomerID   *uuid.UUID     // Filter by owning customer
	DefinitionID *uuid.UUID     // Filter by referenced definition
	State        *InstanceState // Filter by lifecycle state
}

// ProductInstanceRepository defines the interface for instance persistence
type ProductInstanceRepository interface {
	// FindByID finds an instance by ID for a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ProductInstance, error)

	// FindByAccountIdentifier finds an instance by its ledger account number
	FindByAccountIdentifier(ctx context.Context, tenantID uuid.UUID, accountIdentifier string) (*ProductInstance, error)

	// FindAll finds instances for a tenant with filtering
	FindAll(ctx context.Context, tenantID uuid.UUID, filter ProductInstanceFilter) ([]ProductInstance, error)

	// FindByCustomer returns the instances owned by a customer
	FindByCustomer(ctx context.Context, tenantID, customerID uuid.UUID) ([]ProductInstance, error)

	// FindActiveByDefinition returns the ACTIVE instances of a definition,
	// used by dividend payout fan-out
	FindActiveByDefinition(ctx context.Context, tenantID, definitionID uuid.UUID) ([]ProductInstance, error)

	// CountByDefinition counts instances referencing a definition, in any state
	CountByDefinition(ctx context.Context, tenantID, definitionID uuid.UUID) (int64, error)

	// ExistsByAccountIdentifier checks whether an account identifier is taken
	ExistsByAccountIdentifier(ctx context.Context, tenantID uuid.UUID, accountIdentifier string) (bool, error)

	// Save creates or updates an instance together with its pending events
	Save(ctx context.Context, instance *ProductInstance) error

	// SaveWithLock persists only when the stored version still matches
	SaveWithLock(ctx context.Context, instance *ProductInstance) error
}
