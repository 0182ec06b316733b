package models

import (
	"time"

	"github.com/corebank/backend/internal/domain/catalog"
	"github.com/corebank/backend/internal/domain/shared"
	"github.com/corebank/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductDefinitionModel is the persistence model for the ProductDefinition
// aggregate. Term, charges and actions are stored as JSONB documents.
type ProductDefinitionModel struct {
	TenantAggregateModel
	Identifier     string               `gorm:"type:varchar(32);not null;uniqueIndex:idx_definition_tenant_identifier,priority:2"`
	Name           string               `gorm:"type:varchar(200);not null"`
	Description    string               `gorm:"type:text"`
	Type           catalog.ProductType  `gorm:"type:varchar(30);not null"`
	Currency       valueobject.Currency `gorm:"type:varchar(3);not null"`
	MinimumBalance decimal.Decimal      `gorm:"type:decimal(20,4);not null;default:0"`
	InterestRate   decimal.Decimal      `gorm:"type:decimal(9,4);not null;default:0"`
	Term           catalog.Term         `gorm:"type:jsonb;not null"`
	Charges        catalog.Charges      `gorm:"type:jsonb;not null"`
	Actions        catalog.Actions      `gorm:"type:jsonb;not null"`
	Flexible       bool                 `gorm:"not null;default:false"`
	Active         bool                 `gorm:"not null;default:false;index"`
}

func (ProductDefinitionModel) TableName() string {
	return "product_definitions"
}

// ToDomain converts the persistence model to a domain ProductDefinition
func (m *ProductDefinitionModel) ToDomain() *catalog.ProductDefinition {
	return &catalog.ProductDefinition{
		TenantAggregateRoot: shared.TenantAggregateRoot{
			BaseAggregateRoot: shared.BaseAggregateRoot{
				BaseEntity: shared.BaseEntity{
					ID:        m.ID,
					CreatedAt: m.CreatedAt,
					UpdatedAt: m.UpdatedAt,
				},
				Version: m.Version,
			},
			TenantID:  m.TenantID,
			CreatedBy: m.CreatedBy,
		},
		Identifier:     m.Identifier,
		Name:           m.Name,
		Description:    m.Description,
		Type:           m.Type,
		Currency:       m.Currency,
		MinimumBalance: m.MinimumBalance,
		InterestRate:   m.InterestRate,
		Term:           m.Term,
		Charges:        m.Charges,
		Actions:        m.Actions,
		Flexible:       m.Flexible,
		Active:         m.Active,
	}
}

// FromDomain populates the persistence model from a domain ProductDefinition
func (m *ProductDefinitionModel) FromDomain(pd *catalog.ProductDefinition) {
	m.FromDomainTenantAggregateRoot(pd.TenantAggregateRoot)
	m.Identifier = pd.Identifier
	m.Name = pd.Name
	m.Description = pd.Description
	m.Type = pd.Type
	m.Currency = pd.Currency
	m.MinimumBalance = pd.MinimumBalance
	m.InterestRate = pd.InterestRate
	m.Term = pd.Term
	m.Charges = pd.Charges
	m.Actions = pd.Actions
	m.Flexible = pd.Flexible
	m.Active = pd.Active
}

// ProductDefinitionModelFromDomain creates a new persistence model from a domain ProductDefinition
func ProductDefinitionModelFromDomain(pd *catalog.ProductDefinition) *ProductDefinitionModel {
	m := &ProductDefinitionModel{}
	m.FromDomain(pd)
	return m
}

// DefinitionCommandModel is the persistence model for the append-only
// definition command audit log
type DefinitionCommandModel struct {
	ID           uuid.UUID                     `gorm:"type:uuid;primaryKey"`
	TenantID     uuid.UUID                     `gorm:"type:uuid;not null;index:idx_definition_command_tenant_definition,priority:1"`
	DefinitionID uuid.UUID                     `gorm:"type:uuid;not null;index:idx_definition_command_tenant_definition,priority:2"`
	Type         catalog.DefinitionCommandType `gorm:"type:varchar(20);not null"`
	Comment      string                        `gorm:"type:varchar(512)"`
	CreatedAt    time.Time                     `gorm:"not null"`
}

func (DefinitionCommandModel) TableName() string {
	return "definition_commands"
}

// ToDomain converts the persistence model to a domain DefinitionCommand
func (m *DefinitionCommandModel) ToDomain() *catalog.DefinitionCommand {
	return &catalog.DefinitionCommand{
		ID:           m.ID,
		TenantID:     m.TenantID,
		DefinitionID: m.DefinitionID,
		Type:         m.Type,
		Comment:      m.Comment,
		CreatedAt:    m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain DefinitionCommand
func (m *DefinitionCommandModel) FromDomain(c *catalog.DefinitionCommand) {
	m.ID = c.ID
	m.TenantID = c.TenantID
	m.DefinitionID = c.DefinitionID
	m.Type = c.Type
	m.Comment = c.Comment
	m.CreatedAt = c.CreatedAt
}

// DividendDistributionModel is the persistence model for dividend distributions
type DividendDistributionModel struct {
	BaseModel
	TenantID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_dividend_tenant_definition,priority:1"`
	DefinitionID uuid.UUID       `gorm:"type:uuid;not null;index:idx_dividend_tenant_definition,priority:2"`
	DueDate      time.Time       `gorm:"not null;index"`
	Rate         decimal.Decimal `gorm:"type:decimal(9,4);not null"`
}

func (DividendDistributionModel) TableName() string {
	return "dividend_distributions"
}

// ToDomain converts the persistence model to a domain DividendDistribution
func (m *DividendDistributionModel) ToDomain() *catalog.DividendDistribution {
	return &catalog.DividendDistribution{
		BaseEntity:   m.BaseModel.ToDomain(),
		TenantID:     m.TenantID,
		DefinitionID: m.DefinitionID,
		DueDate:      m.DueDate,
		Rate:         m.Rate,
	}
}

// FromDomain populates the persistence model from a domain DividendDistribution
func (m *DividendDistributionModel) FromDomain(d *catalog.DividendDistribution) {
	m.FromDomainBaseEntity(d.BaseEntity)
	m.TenantID = d.TenantID
	m.DefinitionID = d.DefinitionID
	m.DueDate = d.DueDate
	m.Rate = d.Rate
}

// DividendDistributionModelFromDomain creates a new persistence model from a domain DividendDistribution
func DividendDistributionModelFromDomain(d *catalog.DividendDistribution) *DividendDistributionModel {
	m := &DividendDistributionModel{}
	m.FromDomain(d)
	return m
}
