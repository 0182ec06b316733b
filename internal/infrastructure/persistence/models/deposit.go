package models

import (
	"time"

	"github.com/corebank/backend/internal/domain/deposit"
	"github.com/corebank/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductInstanceModel is the persistence model for the ProductInstance
// aggregate. The balance is the denormalized ledger balance cache.
type ProductInstanceModel struct {
	TenantAggregateModel
	CustomerID            uuid.UUID                    `gorm:"type:uuid;not null;index"`
	DefinitionID          uuid.UUID                    `gorm:"type:uuid;not null;index"`
	DefinitionIdentifier  string                       `gorm:"type:varchar(32);not null"`
	AccountIdentifier     string                       `gorm:"type:varchar(34);not null;uniqueIndex:idx_instance_tenant_account,priority:2"`
	AlternativeAccountNum string                       `gorm:"type:varchar(34);index"`
	Beneficiaries         deposit.Beneficiaries        `gorm:"type:jsonb;not null"`
	State                 deposit.InstanceState        `gorm:"type:varchar(20);not null;index"`
	Balance               decimal.Decimal              `gorm:"type:decimal(20,4);not null;default:0"`
	PendingLedgerEntries  deposit.PendingLedgerEntries `gorm:"type:jsonb;not null"`
	OpenedOn              time.Time                    `gorm:"not null"`
	LastTransactionDate   *time.Time
	LastAccruedAt         *time.Time
}

// TableName returns the table name for GORM
func (ProductInstanceModel) TableName() string {
	return "product_instances"
}

// ToDomain converts the persistence model to a domain ProductInstance
func (m *ProductInstanceModel) ToDomain() *deposit.ProductInstance {
	return &deposit.ProductInstance{
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
		CustomerID:            m.CustomerID,
		DefinitionID:          m.DefinitionID,
		DefinitionIdentifier:  m.DefinitionIdentifier,
		AccountIdentifier:     m.AccountIdentifier,
		AlternativeAccountNum: m.AlternativeAccountNum,
		Beneficiaries:         m.Beneficiaries,
		State:                 m.State,
		Balance:               m.Balance,
		PendingLedgerEntries:  m.PendingLedgerEntries,
		OpenedOn:              m.OpenedOn,
		LastTransactionDate:   m.LastTransactionDate,
		LastAccruedAt:         m.LastAccruedAt,
	}
}

// FromDomain populates the persistence model from a domain ProductInstance
func (m *ProductInstanceModel) FromDomain(pi *deposit.ProductInstance) {
	m.FromDomainTenantAggregateRoot(pi.TenantAggregateRoot)
	m.CustomerID = pi.CustomerID
	m.DefinitionID = pi.DefinitionID
	m.DefinitionIdentifier = pi.DefinitionIdentifier
	m.AccountIdentifier = pi.AccountIdentifier
	m.AlternativeAccountNum = pi.AlternativeAccountNum
	m.Beneficiaries = pi.Beneficiaries
	m.State = pi.State
	m.Balance = pi.Balance
	m.PendingLedgerEntries = pi.PendingLedgerEntries
	m.OpenedOn = pi.OpenedOn
	m.LastTransactionDate = pi.LastTransactionDate
	m.LastAccruedAt = pi.LastAccruedAt
}

// ProductInstanceModelFromDomain creates a new persistence model from a domain ProductInstance
func ProductInstanceModelFromDomain(pi *deposit.ProductInstance) *ProductInstanceModel {
	m := &ProductInstanceModel{}
	m.FromDomain(pi)
	return m
}
