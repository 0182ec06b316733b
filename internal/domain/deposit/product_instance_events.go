package deposit

import (
	"time"

	"github.com/corebank/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names published on the bus, one per successfully applied
// command. Consumers key on these strings.
const (
	EventTypeInstancePosted      = "post-product-instance"
	EventTypeInstanceActivated   = "activate-product-instance"
	EventTypeInstanceClosed      = "close-product-instance"
	EventTypeInstanceUpdated     = "put-product-instance"
	EventTypeInstanceTransaction = "account-transaction"
	EventTypeInterestAccrued     = "interest-accrued"
	EventTypeInterestPayed       = "interest-payed"
)

const aggregateTypeInstance = "ProductInstance"

// ProductInstancePostedEvent is raised when a new instance is created
type ProductInstancePostedEvent struct {
	shared.BaseDomainEvent
	InstanceID           uuid.UUID `json:"instance_id"`
	CustomerID           uuid.UUID `json:"customer_id"`
	DefinitionIdentifier string    `json:"definition_identifier"`
	AccountIdentifier    string    `json:"account_identifier"`
}

// NewProductInstancePostedEvent creates a new ProductInstancePostedEvent
func NewProductInstancePostedEvent(pi *ProductInstance) *ProductInstancePostedEvent {
	return &ProductInstancePostedEvent{
		BaseDomainEvent:      shared.NewBaseDomainEvent(EventTypeInstancePosted, aggregateTypeInstance, pi.ID, pi.TenantID),
		InstanceID:           pi.ID,
		CustomerID:           pi.CustomerID,
		DefinitionIdentifier: pi.DefinitionIdentifier,
		AccountIdentifier:    pi.AccountIdentifier,
	}
}

// ProductInstanceActivatedEvent is raised when an instance moves to ACTIVE
type ProductInstanceActivatedEvent struct {
	shared.BaseDomainEvent
	InstanceID        uuid.UUID `json:"instance_id"`
	CustomerID        uuid.UUID `json:"customer_id"`
	AccountIdentifier string    `json:"account_identifier"`
}

// NewProductInstanceActivatedEvent creates a new ProductInstanceActivatedEvent
func NewProductInstanceActivatedEvent(pi *ProductInstance) *ProductInstanceActivatedEvent {
	return &ProductInstanceActivatedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeInstanceActivated, aggregateTypeInstance, pi.ID, pi.TenantID),
		InstanceID:        pi.ID,
		CustomerID:        pi.CustomerID,
		AccountIdentifier: pi.AccountIdentifier,
	}
}

// ProductInstanceClosedEvent is raised when an instance reaches CLOSED
type ProductInstanceClosedEvent struct {
	shared.BaseDomainEvent
	InstanceID        uuid.UUID       `json:"instance_id"`
	AccountIdentifier string          `json:"account_identifier"`
	FinalBalance      decimal.Decimal `json:"final_balance"`
	Forced            bool            `json:"forced"`
}

// NewProductInstanceClosedEvent creates a new ProductInstanceClosedEvent
func NewProductInstanceClosedEvent(pi *ProductInstance, forced bool) *ProductInstanceClosedEvent {
	return &ProductInstanceClosedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeInstanceClosed, aggregateTypeInstance, pi.ID, pi.TenantID),
		InstanceID:        pi.ID,
		AccountIdentifier: pi.AccountIdentifier,
		FinalBalance:      pi.Balance,
		Forced:            forced,
	}
}

// ProductInstanceUpdatedEvent is raised when mutable metadata changes
type ProductInstanceUpdatedEvent struct {
	shared.BaseDomainEvent
	InstanceID        uuid.UUID     `json:"instance_id"`
	AccountIdentifier string        `json:"account_identifier"`
	Beneficiaries     Beneficiaries `json:"beneficiaries"`
}

// NewProductInstanceUpdatedEvent creates a new ProductInstanceUpdatedEvent
func NewProductInstanceUpdatedEvent(pi *ProductInstance) *ProductInstanceUpdatedEvent {
	return &ProductInstanceUpdatedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeInstanceUpdated, aggregateTypeInstance, pi.ID, pi.TenantID),
		InstanceID:        pi.ID,
		AccountIdentifier: pi.AccountIdentifier,
		Beneficiaries:     pi.Beneficiaries,
	}
}

// ProductInstanceTransactionEvent is raised when a deposit or withdrawal is
// applied against an instance
type ProductInstanceTransactionEvent struct {
	shared.BaseDomainEvent
	InstanceID        uuid.UUID       `json:"instance_id"`
	AccountIdentifier string          `json:"account_identifier"`
	ActionIdentifier  string          `json:"action_identifier"`
	Amount            decimal.Decimal `json:"amount"`
	Fee               decimal.Decimal `json:"fee"`
	NewBalance        decimal.Decimal `json:"new_balance"`
}

// NewProductInstanceTransactionEvent creates a new ProductInstanceTransactionEvent
func NewProductInstanceTransactionEvent(pi *ProductInstance, actionIdentifier string, amount, fee decimal.Decimal) *ProductInstanceTransactionEvent {
	return &ProductInstanceTransactionEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeInstanceTransaction, aggregateTypeInstance, pi.ID, pi.TenantID),
		InstanceID:        pi.ID,
		AccountIdentifier: pi.AccountIdentifier,
		ActionIdentifier:  actionIdentifier,
		Amount:            amount,
		Fee:               fee,
		NewBalance:        pi.Balance,
	}
}

// InterestAccruedEvent is raised when periodic interest is credited
type InterestAccruedEvent struct {
	shared.BaseDomainEvent
	InstanceID        uuid.UUID       `json:"instance_id"`
	AccountIdentifier string          `json:"account_identifier"`
	Amount            decimal.Decimal `json:"amount"`
	Rate              decimal.Decimal `json:"rate"`
	AccruedAt         time.Time       `json:"accrued_at"`
}

// NewInterestAccruedEvent creates a new InterestAccruedEvent
func NewInterestAccruedEvent(pi *ProductInstance, amount, rate decimal.Decimal, at time.Time) *InterestAccruedEvent {
	return &InterestAccruedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeInterestAccrued, aggregateTypeInstance, pi.ID, pi.TenantID),
		InstanceID:        pi.ID,
		AccountIdentifier: pi.AccountIdentifier,
		Amount:            amount,
		Rate:              rate,
		AccruedAt:         at,
	}
}

// InterestPayedEvent is raised when a dividend payout is credited
type InterestPayedEvent struct {
	shared.BaseDomainEvent
	InstanceID        uuid.UUID       `json:"instance_id"`
	AccountIdentifier string          `json:"account_identifier"`
	Amount            decimal.Decimal `json:"amount"`
	Rate              decimal.Decimal `json:"rate"`
	PayedAt           time.Time       `json:"payed_at"`
}

// NewInterestPayedEvent creates a new InterestPayedEvent
func NewInterestPayedEvent(pi *ProductInstance, amount, rate decimal.Decimal, at time.Time) *InterestPayedEvent {
	return &InterestPayedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeInterestPayed, aggregateTypeInstance, pi.ID, pi.TenantID),
		InstanceID:        pi.ID,
		AccountIdentifier: pi.AccountIdentifier,
		Amount:            amount,
		Rate:              rate,
		PayedAt:           at,
	}
}
