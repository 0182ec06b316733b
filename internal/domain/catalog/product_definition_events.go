package catalog

import (
	"time"

	"github.com/corebank/backend/internal/domain/shared"
	"github.com/corebank/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names published on the bus. Consumers key on these strings.
const (
	EventTypeDefinitionPosted      = "post-product-definition"
	EventTypeDefinitionUpdated     = "put-product-definition"
	EventTypeDefinitionActivated   = "activate-product-definition"
	EventTypeDefinitionDeactivated = "deactivate-product-definition"
	EventTypeDefinitionDeleted     = "delete-product-definition"
	EventTypeDividendDistribution  = "dividend-distribution"
)

const aggregateTypeDefinition = "ProductDefinition"

// ProductDefinitionPostedEvent is raised when a new definition is created
type ProductDefinitionPostedEvent struct {
	shared.BaseDomainEvent
	DefinitionID uuid.UUID            `json:"definition_id"`
	Identifier   string               `json:"identifier"`
	ProductType  ProductType          `json:"product_type"`
	Currency     valueobject.Currency `json:"currency"`
	InterestRate decimal.Decimal      `json:"interest_rate"`
	Term         Term                 `json:"term"`
}

// NewProductDefinitionPostedEvent creates a new ProductDefinitionPostedEvent
func NewProductDefinitionPostedEvent(pd *ProductDefinition) *ProductDefinitionPostedEvent {
	return &ProductDefinitionPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDefinitionPosted, aggregateTypeDefinition, pd.ID, pd.TenantID),
		DefinitionID:    pd.ID,
		Identifier:      pd.Identifier,
		ProductType:     pd.Type,
		Currency:        pd.Currency,
		InterestRate:    pd.InterestRate,
		Term:            pd.Term,
	}
}

// ProductDefinitionUpdatedEvent is raised when a definition's details change
type ProductDefinitionUpdatedEvent struct {
	shared.BaseDomainEvent
	DefinitionID uuid.UUID            `json:"definition_id"`
	Identifier   string               `json:"identifier"`
	Currency     valueobject.Currency `json:"currency"`
	InterestRate decimal.Decimal      `json:"interest_rate"`
}

// NewProductDefinitionUpdatedEvent creates a new ProductDefinitionUpdatedEvent
func NewProductDefinitionUpdatedEvent(pd *ProductDefinition) *ProductDefinitionUpdatedEvent {
	return &ProductDefinitionUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDefinitionUpdated, aggregateTypeDefinition, pd.ID, pd.TenantID),
		DefinitionID:    pd.ID,
		Identifier:      pd.Identifier,
		Currency:        pd.Currency,
		InterestRate:    pd.InterestRate,
	}
}

// ProductDefinitionActivatedEvent is raised when a definition is activated
type ProductDefinitionActivatedEvent struct {
	shared.BaseDomainEvent
	DefinitionID uuid.UUID `json:"definition_id"`
	Identifier   string    `json:"identifier"`
	Comment      string    `json:"comment,omitempty"`
}

// NewProductDefinitionActivatedEvent creates a new ProductDefinitionActivatedEvent
func NewProductDefinitionActivatedEvent(pd *ProductDefinition, comment string) *ProductDefinitionActivatedEvent {
	return &ProductDefinitionActivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDefinitionActivated, aggregateTypeDefinition, pd.ID, pd.TenantID),
		DefinitionID:    pd.ID,
		Identifier:      pd.Identifier,
		Comment:         comment,
	}
}

// ProductDefinitionDeactivatedEvent is raised when a definition is deactivated
type ProductDefinitionDeactivatedEvent struct {
	shared.BaseDomainEvent
	DefinitionID uuid.UUID `json:"definition_id"`
	Identifier   string    `json:"identifier"`
	Comment      string    `json:"comment,omitempty"`
}

// NewProductDefinitionDeactivatedEvent creates a new ProductDefinitionDeactivatedEvent
func NewProductDefinitionDeactivatedEvent(pd *ProductDefinition, comment string) *ProductDefinitionDeactivatedEvent {
	return &ProductDefinitionDeactivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDefinitionDeactivated, aggregateTypeDefinition, pd.ID, pd.TenantID),
		DefinitionID:    pd.ID,
		Identifier:      pd.Identifier,
		Comment:         comment,
	}
}

// ProductDefinitionDeletedEvent is raised when a definition is deleted
type ProductDefinitionDeletedEvent struct {
	shared.BaseDomainEvent
	DefinitionID uuid.UUID `json:"definition_id"`
	Identifier   string    `json:"identifier"`
}

// NewProductDefinitionDeletedEvent creates a new ProductDefinitionDeletedEvent
func NewProductDefinitionDeletedEvent(pd *ProductDefinition) *ProductDefinitionDeletedEvent {
	return &ProductDefinitionDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDefinitionDeleted, aggregateTypeDefinition, pd.ID, pd.TenantID),
		DefinitionID:    pd.ID,
		Identifier:      pd.Identifier,
	}
}

// DividendDistributionRecordedEvent is raised when a dividend distribution
// is recorded against a definition
type DividendDistributionRecordedEvent struct {
	shared.BaseDomainEvent
	DefinitionID   uuid.UUID       `json:"definition_id"`
	DistributionID uuid.UUID       `json:"distribution_id"`
	DueDate        time.Time       `json:"due_date"`
	Rate           decimal.Decimal `json:"rate"`
}

// NewDividendDistributionRecordedEvent creates a new DividendDistributionRecordedEvent
func NewDividendDistributionRecordedEvent(pd *ProductDefinition, dd *DividendDistribution) *DividendDistributionRecordedEvent {
	return &DividendDistributionRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDividendDistribution, aggregateTypeDefinition, pd.ID, pd.TenantID),
		DefinitionID:    pd.ID,
		DistributionID:  dd.ID,
		DueDate:         dd.DueDate,
		Rate:            dd.Rate,
	}
}
