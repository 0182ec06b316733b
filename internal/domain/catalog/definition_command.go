package catalog

import (
	"time"

	"github.com/google/uuid"
)

// DefinitionCommandType is the type of an audited definition command
type DefinitionCommandType string

const (
	DefinitionCommandActivate   DefinitionCommandType = "ACTIVATE"
	DefinitionCommandDeactivate DefinitionCommandType = "DEACTIVATE"
)

// IsValid checks if the command type is valid
func (t DefinitionCommandType) IsValid() bool {
	return t == DefinitionCommandActivate || t == DefinitionCommandDeactivate
}

// DefinitionCommand is an append-only audit record of a command applied to a
// product definition. Records are never mutated once written; the history of
// a definition is the ordered sequence of its commands.
type DefinitionCommand struct {
	ID           uuid.UUID             `json:"id"`
	TenantID     uuid.UUID             `json:"tenant_id"`
	DefinitionID uuid.UUID             `json:"definition_id"`
	Type         DefinitionCommandType `json:"type"`
	Comment      string                `json:"comment"`
	CreatedAt    time.Time             `json:"created_at"`
}

// NewDefinitionCommand creates a new audit record
func NewDefinitionCommand(tenantID, definitionID uuid.UUID, commandType DefinitionCommandType, comment string) *DefinitionCommand {
	return &DefinitionCommand{
		ID:           uuid.New(),
		TenantID:     tenantID,
		DefinitionID: definitionID,
		Type:         commandType,
		Comment:      comment,
		CreatedAt:    time.Now(),
	}
}
