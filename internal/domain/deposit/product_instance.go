package deposit

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/corebank/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstanceState represents the lifecycle state of a product instance
type InstanceState string

const (
	InstanceStatePending InstanceState = "PENDING" // created, not yet funded
	InstanceStateActive  InstanceState = "ACTIVE"  // usable for transactions
	InstanceStateClosed  InstanceState = "CLOSED"  // terminal
)

// IsValid checks if the instance state is valid
func (s InstanceState) IsValid() bool {
	switch s {
	case InstanceStatePending, InstanceStateActive, InstanceStateClosed:
		return true
	}
	return false
}

// ParseInstanceState parses a transport string into an InstanceState
func ParseInstanceState(s string) (InstanceState, error) {
	state := InstanceState(strings.ToUpper(s))
	if !state.IsValid() {
		return "", shared.NewValidationError(fmt.Sprintf("Unknown instance state: %s", s))
	}
	return state, nil
}

// Command names accepted against an instance
const (
	CommandActivate = "ACTIVATE"
	CommandClose    = "CLOSE"
)

// Well-known ledger entry keys for the lifecycle commands. Financial
// commands use their idempotency-derived command key instead.
const (
	LedgerEntryActivate = "lifecycle:activate"
	LedgerEntryClose    = "lifecycle:close"
)

const maxAccountIdentifierLength = 34

// Beneficiaries is a list of beneficiary names attached to an instance,
// stored as JSONB
type Beneficiaries []string

// Value implements driver.Valuer for JSONB storage
func (b Beneficiaries) Value() (driver.Value, error) {
	if b == nil {
		return "[]", nil
	}
	return json.Marshal(b)
}

// Scan implements sql.Scanner for JSONB retrieval
func (b *Beneficiaries) Scan(value interface{}) error {
	if value == nil {
		*b = Beneficiaries{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, b)
	case string:
		return json.Unmarshal([]byte(v), b)
	default:
		return fmt.Errorf("cannot scan %T into Beneficiaries", value)
	}
}

// PendingLedgerEntries lists the command keys whose journal legs have not
// yet reached the ledger. Each command owes its own posting, so a failed
// leg for one command survives the success of any later command on the
// same instance. Stored as JSONB.
type PendingLedgerEntries []string

// Value implements driver.Valuer for JSONB storage
func (p PendingLedgerEntries) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB retrieval
func (p *PendingLedgerEntries) Scan(value interface{}) error {
	if value == nil {
		*p = PendingLedgerEntries{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("cannot scan %T into PendingLedgerEntries", value)
	}
}

// ProductInstance is a customer's concrete account opened against a product
// definition. The balance field is a denormalized cache of the ledger
// balance; the ledger remains the source of record.
type ProductInstance struct {
	shared.TenantAggregateRoot
	CustomerID            uuid.UUID            `json:"customer_id" gorm:"type:uuid;not null;index"`
	DefinitionID          uuid.UUID            `json:"definition_id" gorm:"type:uuid;not null;index"`
	DefinitionIdentifier  string               `json:"definition_identifier" gorm:"size:32;not null"`
	AccountIdentifier     string               `json:"account_identifier" gorm:"size:34;not null;uniqueIndex:idx_instance_account"`
	AlternativeAccountNum string               `json:"alternative_account_number,omitempty" gorm:"size:34"`
	Beneficiaries         Beneficiaries        `json:"beneficiaries" gorm:"type:jsonb"`
	State                 InstanceState        `json:"state" gorm:"size:20;not null;index"`
	Balance               decimal.Decimal      `json:"balance" gorm:"type:decimal(20,4);not null"`
	PendingLedgerEntries  PendingLedgerEntries `json:"pending_ledger_entries,omitempty" gorm:"type:jsonb"`
	OpenedOn              time.Time            `json:"opened_on" gorm:"not null"`
	LastTransactionDate   *time.Time           `json:"last_transaction_date,omitempty"`
	LastAccruedAt         *time.Time           `json:"last_accrued_at,omitempty"`
}

// NewProductInstance creates a new instance in PENDING state
func NewProductInstance(tenantID, customerID, definitionID uuid.UUID, definitionIdentifier, accountIdentifier, alternativeAccountNum string, beneficiaries Beneficiaries) (*ProductInstance, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewValidationError("Product instance must reference a customer")
	}
	if definitionID == uuid.Nil {
		return nil, shared.NewValidationError("Product instance must reference a product definition")
	}
	if strings.TrimSpace(accountIdentifier) == "" {
		return nil, shared.NewValidationError("Account identifier cannot be empty")
	}
	if len(accountIdentifier) > maxAccountIdentifierLength {
		return nil, shared.NewValidationError(fmt.Sprintf("Account identifier cannot exceed %d characters", maxAccountIdentifierLength))
	}
	if len(alternativeAccountNum) > maxAccountIdentifierLength {
		return nil, shared.NewValidationError(fmt.Sprintf("Alternative account number cannot exceed %d characters", maxAccountIdentifierLength))
	}
	if beneficiaries == nil {
		beneficiaries = Beneficiaries{}
	}

	instance := &ProductInstance{
		TenantAggregateRoot:   shared.NewTenantAggregateRoot(tenantID),
		CustomerID:            customerID,
		DefinitionID:          definitionID,
		DefinitionIdentifier:  definitionIdentifier,
		AccountIdentifier:     accountIdentifier,
		AlternativeAccountNum: alternativeAccountNum,
		Beneficiaries:         beneficiaries,
		State:                 InstanceStatePending,
		Balance:               decimal.Zero,
		OpenedOn:              time.Now(),
	}
	instance.AddDomainEvent(NewProductInstancePostedEvent(instance))
	return instance, nil
}

// Activate moves a PENDING instance to ACTIVE. The referenced definition
// must itself be active.
func (p *ProductInstance) Activate(definitionActive bool) error {
	if p.State != InstanceStatePending {
		return shared.NewInvalidStateTransitionError(CommandActivate, string(p.State))
	}
	if !definitionActive {
		return shared.NewValidationError(fmt.Sprintf("Product definition %s is not active", p.DefinitionIdentifier))
	}
	p.State = InstanceStateActive
	p.IncrementVersion()
	p.AddDomainEvent(NewProductInstanceActivatedEvent(p))
	return nil
}

// Close moves an ACTIVE instance to CLOSED. The balance must match the
// definition's minimum unless force is set.
func (p *ProductInstance) Close(minimumBalance decimal.Decimal, force bool) error {
	if p.State != InstanceStateActive {
		return shared.NewInvalidStateTransitionError(CommandClose, string(p.State))
	}
	if !force && !p.Balance.Equal(minimumBalance) {
		return shared.NewDomainError(shared.CodeConflict,
			fmt.Sprintf("Cannot close instance %s: balance %s does not match minimum %s", p.AccountIdentifier, p.Balance, minimumBalance))
	}
	p.State = InstanceStateClosed
	p.IncrementVersion()
	p.AddDomainEvent(NewProductInstanceClosedEvent(p, force))
	return nil
}

// ApplyTransaction adjusts the cached balance for a deposit (positive) or
// withdrawal (negative) amount. The resulting balance may not fall below
// the definition's minimum.
func (p *ProductInstance) ApplyTransaction(actionIdentifier string, amount, fee, minimumBalance decimal.Decimal, at time.Time) error {
	if p.State != InstanceStateActive {
		return shared.NewInvalidStateTransitionError(actionIdentifier, string(p.State))
	}
	if amount.IsZero() {
		return shared.NewValidationError("Transaction amount cannot be zero")
	}
	if fee.IsNegative() {
		return shared.NewValidationError("Transaction fee cannot be negative")
	}
	newBalance := p.Balance.Add(amount).Sub(fee)
	if newBalance.LessThan(minimumBalance) {
		return shared.NewDomainError(shared.CodeInsufficientBalance,
			fmt.Sprintf("Transaction would bring balance below minimum %s", minimumBalance))
	}
	p.Balance = newBalance
	p.LastTransactionDate = &at
	p.IncrementVersion()
	p.AddDomainEvent(NewProductInstanceTransactionEvent(p, actionIdentifier, amount, fee))
	return nil
}

// AccrueInterest credits computed interest to the cached balance
func (p *ProductInstance) AccrueInterest(amount, rate decimal.Decimal, at time.Time) error {
	if p.State != InstanceStateActive {
		return shared.NewInvalidStateTransitionError("INTEREST_ACCRUAL", string(p.State))
	}
	if amount.IsNegative() {
		return shared.NewValidationError("Accrued interest cannot be negative")
	}
	p.Balance = p.Balance.Add(amount)
	p.LastTransactionDate = &at
	p.LastAccruedAt = &at
	p.IncrementVersion()
	p.AddDomainEvent(NewInterestAccruedEvent(p, amount, rate, at))
	return nil
}

// PayDividend credits a dividend payout to the cached balance
func (p *ProductInstance) PayDividend(amount, rate decimal.Decimal, at time.Time) error {
	if p.State != InstanceStateActive {
		return shared.NewInvalidStateTransitionError("DIVIDEND_PAYOUT", string(p.State))
	}
	if amount.IsNegative() {
		return shared.NewValidationError("Dividend payout cannot be negative")
	}
	p.Balance = p.Balance.Add(amount)
	p.LastTransactionDate = &at
	p.IncrementVersion()
	p.AddDomainEvent(NewInterestPayedEvent(p, amount, rate, at))
	return nil
}

// UpdateMetadata changes the instance's mutable fields. Legal in any state.
func (p *ProductInstance) UpdateMetadata(beneficiaries Beneficiaries, alternativeAccountNum string) error {
	if len(alternativeAccountNum) > maxAccountIdentifierLength {
		return shared.NewValidationError(fmt.Sprintf("Alternative account number cannot exceed %d characters", maxAccountIdentifierLength))
	}
	if beneficiaries == nil {
		beneficiaries = Beneficiaries{}
	}
	p.Beneficiaries = beneficiaries
	p.AlternativeAccountNum = alternativeAccountNum
	p.IncrementVersion()
	p.AddDomainEvent(NewProductInstanceUpdatedEvent(p))
	return nil
}

// MarkLedgerEntryOwed records that the named command committed locally but
// its journal leg has not reached the ledger yet. The key is persisted with
// the aggregate, so a retry after a crash or a store failure can tell a
// locally applied command from a fresh one.
func (p *ProductInstance) MarkLedgerEntryOwed(key string) {
	if p.OwesLedgerEntry(key) {
		return
	}
	p.PendingLedgerEntries = append(p.PendingLedgerEntries, key)
	p.IncrementVersion()
}

// SettleLedgerEntry records that the named command's journal leg reached
// the ledger
func (p *ProductInstance) SettleLedgerEntry(key string) {
	for i, k := range p.PendingLedgerEntries {
		if k == key {
			p.PendingLedgerEntries = append(p.PendingLedgerEntries[:i], p.PendingLedgerEntries[i+1:]...)
			p.IncrementVersion()
			return
		}
	}
}

// OwesLedgerEntry reports whether the named command still owes its journal leg
func (p *ProductInstance) OwesLedgerEntry(key string) bool {
	for _, k := range p.PendingLedgerEntries {
		if k == key {
			return true
		}
	}
	return false
}

// OwesLedgerEntries reports whether any journal leg is still outstanding
func (p *ProductInstance) OwesLedgerEntries() bool {
	return len(p.PendingLedgerEntries) > 0
}

// IsActive checks if the instance accepts transactions
func (p *ProductInstance) IsActive() bool {
	return p.State == InstanceStateActive
}

// IsClosed checks if the instance has reached its terminal state
func (p *ProductInstance) IsClosed() bool {
	return p.State == InstanceStateClosed
}
