package catalog

import (
	"time"

	"github.com/corebank/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TermRequest carries the interest term of a definition
type TermRequest struct {
	Period          int    `json:"period" binding:"required,gt=0"`
	TimeUnit        string `json:"time_unit" binding:"required"`
	InterestPayable string `json:"interest_payable" binding:"required"`
}

// ChargeRequest carries one charge attached to an action
type ChargeRequest struct {
	Identifier       string          `json:"identifier" binding:"required"`
	Name             string          `json:"name"`
	ActionIdentifier string          `json:"action_identifier" binding:"required"`
	Proportional     bool            `json:"proportional"`
	Amount           decimal.Decimal `json:"amount"`
}

// ActionRequest carries one permitted action of a definition
type ActionRequest struct {
	Identifier      string `json:"identifier" binding:"required"`
	Name            string `json:"name"`
	TransactionType string `json:"transaction_type" binding:"required"`
}

// CreateDefinitionRequest represents a request to create a product definition
type CreateDefinitionRequest struct {
	Identifier     string          `json:"identifier" binding:"required,max=32"`
	Name           string          `json:"name" binding:"required,max=256"`
	Description    string          `json:"description"`
	Type           string          `json:"type" binding:"required"`
	Currency       string          `json:"currency" binding:"required,len=3"`
	MinimumBalance decimal.Decimal `json:"minimum_balance"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	Term           TermRequest     `json:"term" binding:"required"`
	Charges        []ChargeRequest `json:"charges"`
	Actions        []ActionRequest `json:"actions"`
	Flexible       bool            `json:"flexible"`
}

// UpdateDefinitionRequest represents a request to update a product definition
type UpdateDefinitionRequest struct {
	Name           string          `json:"name" binding:"required,max=256"`
	Description    string          `json:"description"`
	Type           string          `json:"type" binding:"required"`
	Currency       string          `json:"currency" binding:"required,len=3"`
	MinimumBalance decimal.Decimal `json:"minimum_balance"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	Term           TermRequest     `json:"term" binding:"required"`
	Charges        []ChargeRequest `json:"charges"`
	Actions        []ActionRequest `json:"actions"`
	Flexible       bool            `json:"flexible"`
}

// DefinitionCommandRequest represents an activation or deactivation command
type DefinitionCommandRequest struct {
	Command string `json:"command" binding:"required,oneof=ACTIVATE DEACTIVATE"`
	Comment string `json:"comment" binding:"max=512"`
}

// DividendDistributionRequest represents a dividend distribution submission
type DividendDistributionRequest struct {
	DueDate time.Time       `json:"due_date" binding:"required"`
	Rate    decimal.Decimal `json:"rate" binding:"required"`
}

// DefinitionResponse represents a product definition in API responses
type DefinitionResponse struct {
	ID             uuid.UUID       `json:"id"`
	Identifier     string          `json:"identifier"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	Type           string          `json:"type"`
	Currency       string          `json:"currency"`
	MinimumBalance decimal.Decimal `json:"minimum_balance"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	Term           TermResponse    `json:"term"`
	Charges        []ChargeRequest `json:"charges"`
	Actions        []ActionRequest `json:"actions"`
	Flexible       bool            `json:"flexible"`
	Active         bool            `json:"active"`
	State          string          `json:"state"`
	Version        int             `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TermResponse mirrors TermRequest in responses
type TermResponse struct {
	Period          int    `json:"period"`
	TimeUnit        string `json:"time_unit"`
	InterestPayable string `json:"interest_payable"`
}

// DefinitionCommandResponse represents one audit record of the command history
type DefinitionCommandResponse struct {
	ID        uuid.UUID `json:"id"`
	Command   string    `json:"command"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DividendDistributionResponse represents a recorded distribution
type DividendDistributionResponse struct {
	ID        uuid.UUID       `json:"id"`
	DueDate   time.Time       `json:"due_date"`
	Rate      decimal.Decimal `json:"rate"`
	CreatedAt time.Time       `json:"created_at"`
}

// ToDefinitionResponse converts a domain definition to a response DTO
func ToDefinitionResponse(pd *catalog.ProductDefinition) DefinitionResponse {
	charges := make([]ChargeRequest, 0, len(pd.Charges))
	for _, c := range pd.Charges {
		charges = append(charges, ChargeRequest{
			Identifier:       c.Identifier,
			Name:             c.Name,
			ActionIdentifier: c.ActionIdentifier,
			Proportional:     c.Method == catalog.ChargeMethodProportional,
			Amount:           c.Amount,
		})
	}
	actions := make([]ActionRequest, 0, len(pd.Actions))
	for _, a := range pd.Actions {
		actions = append(actions, ActionRequest{
			Identifier:      a.Identifier,
			Name:            a.Name,
			TransactionType: a.TransactionType,
		})
	}
	return DefinitionResponse{
		ID:             pd.ID,
		Identifier:     pd.Identifier,
		Name:           pd.Name,
		Description:    pd.Description,
		Type:           string(pd.Type),
		Currency:       string(pd.Currency),
		MinimumBalance: pd.MinimumBalance,
		InterestRate:   pd.InterestRate,
		Term: TermResponse{
			Period:          pd.Term.Period,
			TimeUnit:        string(pd.Term.Unit),
			InterestPayable: string(pd.Term.InterestPayable),
		},
		Charges:   charges,
		Actions:   actions,
		Flexible:  pd.Flexible,
		Active:    pd.Active,
		State:     string(pd.State()),
		Version:   pd.Version,
		CreatedAt: pd.CreatedAt,
		UpdatedAt: pd.UpdatedAt,
	}
}

// ToDefinitionCommandResponse converts an audit record to a response DTO
func ToDefinitionCommandResponse(cmd *catalog.DefinitionCommand) DefinitionCommandResponse {
	return DefinitionCommandResponse{
		ID:        cmd.ID,
		Command:   string(cmd.Type),
		Comment:   cmd.Comment,
		CreatedAt: cmd.CreatedAt,
	}
}

// ToDividendDistributionResponse converts a distribution to a response DTO
func ToDividendDistributionResponse(dd *catalog.DividendDistribution) DividendDistributionResponse {
	return DividendDistributionResponse{
		ID:        dd.ID,
		DueDate:   dd.DueDate,
		Rate:      dd.Rate,
		CreatedAt: dd.CreatedAt,
	}
}
