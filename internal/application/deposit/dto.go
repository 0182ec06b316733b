package deposit

import (
	"time"

	"github.com/corebank/backend/internal/domain/deposit"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateInstanceRequest represents a request to open a product instance
type CreateInstanceRequest struct {
	CustomerID            uuid.UUID `json:"customer_id" binding:"required"`
	DefinitionIdentifier  string    `json:"definition_identifier" binding:"required,max=32"`
	AccountIdentifier     string    `json:"account_identifier" binding:"required,max=34"`
	AlternativeAccountNum string    `json:"alternative_account_number" binding:"max=34"`
	Beneficiaries         []string  `json:"beneficiaries"`
}

// UpdateInstanceRequest carries the mutable fields of an instance
type UpdateInstanceRequest struct {
	Beneficiaries         []string `json:"beneficiaries"`
	AlternativeAccountNum string   `json:"alternative_account_number" binding:"max=34"`
}

// InstanceCommandRequest represents a named lifecycle command against an
// instance, submitted through the generic command endpoint
type InstanceCommandRequest struct {
	Command        string `json:"command" binding:"required,oneof=ACTIVATE CLOSE"`
	Comment        string `json:"comment" binding:"max=512"`
	Force          bool   `json:"force"`
	IdempotencyKey string `json:"idempotency_key" binding:"max=128"`
}

// TransactionRequest represents a deposit or withdrawal against an instance
type TransactionRequest struct {
	ActionIdentifier string          `json:"action_identifier" binding:"required"`
	Amount           decimal.Decimal `json:"amount" binding:"required"`
	Message          string          `json:"message" binding:"max=256"`
	IdempotencyKey   string          `json:"idempotency_key" binding:"max=128"`
}

// InstanceResponse represents a product instance in API responses
type InstanceResponse struct {
	ID                    uuid.UUID       `json:"id"`
	CustomerID            uuid.UUID       `json:"customer_id"`
	DefinitionIdentifier  string          `json:"definition_identifier"`
	AccountIdentifier     string          `json:"account_identifier"`
	AlternativeAccountNum string          `json:"alternative_account_number,omitempty"`
	Beneficiaries         []string        `json:"beneficiaries"`
	State                 string          `json:"state"`
	Balance               decimal.Decimal `json:"balance"`
	LedgerSyncPending     bool            `json:"ledger_sync_pending"`
	OpenedOn              time.Time       `json:"opened_on"`
	LastTransactionDate   *time.Time      `json:"last_transaction_date,omitempty"`
	Version               int             `json:"version"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// TransactionTypeResponse names one transaction type available to a customer
type TransactionTypeResponse struct {
	AccountIdentifier string `json:"account_identifier"`
	ActionIdentifier  string `json:"action_identifier"`
	Name              string `json:"name,omitempty"`
	TransactionType   string `json:"transaction_type"`
}

// ToInstanceResponse converts a domain instance to a response DTO
func ToInstanceResponse(pi *deposit.ProductInstance) InstanceResponse {
	return InstanceResponse{
		ID:                    pi.ID,
		CustomerID:            pi.CustomerID,
		DefinitionIdentifier:  pi.DefinitionIdentifier,
		AccountIdentifier:     pi.AccountIdentifier,
		AlternativeAccountNum: pi.AlternativeAccountNum,
		Beneficiaries:         pi.Beneficiaries,
		State:                 string(pi.State),
		Balance:               pi.Balance,
		LedgerSyncPending:     pi.OwesLedgerEntries(),
		OpenedOn:              pi.OpenedOn,
		LastTransactionDate:   pi.LastTransactionDate,
		Version:               pi.Version,
		CreatedAt:             pi.CreatedAt,
		UpdatedAt:             pi.UpdatedAt,
	}
}
