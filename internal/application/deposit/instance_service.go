package deposit

import (
	"context"
	"fmt"

	"github.com/corebank/backend/internal/domain/catalog"
	"github.com/corebank/backend/internal/domain/deposit"
	"github.com/corebank/backend/internal/domain/shared"
	"github.com/corebank/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// InstanceService handles product instance registry operations: opening,
// reading and updating accounts. Lifecycle commands and transactions go
// through the CommandProcessor.
type InstanceService struct {
	instanceRepo   deposit.ProductInstanceRepository
	definitionRepo catalog.ProductDefinitionRepository
}

// NewInstanceService creates a new InstanceService
func NewInstanceService(
	instanceRepo deposit.ProductInstanceRepository,
	definitionRepo catalog.ProductDefinitionRepository,
) *InstanceService {
	return &InstanceService{
		instanceRepo:   instanceRepo,
		definitionRepo: definitionRepo,
	}
}

// Create opens a new instance in PENDING state against an active or inactive
// definition. Activation is a separate command.
func (s *InstanceService) Create(ctx context.Context, tenantID uuid.UUID, req CreateInstanceRequest) (*InstanceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "instance", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrCustomerID, req.CustomerID.String(),
		telemetry.SpanAttrAccountIdentifier, req.AccountIdentifier,
	)

	definition, err := s.definitionRepo.FindByIdentifier(ctx, tenantID, req.DefinitionIdentifier)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	taken, err := s.instanceRepo.ExistsByAccountIdentifier(ctx, tenantID, req.AccountIdentifier)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if taken {
		err := shared.NewDomainError(shared.CodeAlreadyExists,
			fmt.Sprintf("Account identifier %s is already in use", req.AccountIdentifier))
		telemetry.RecordError(span, err)
		return nil, err
	}

	instance, err := deposit.NewProductInstance(
		tenantID,
		req.CustomerID,
		definition.ID,
		definition.Identifier,
		req.AccountIdentifier,
		req.AlternativeAccountNum,
		deposit.Beneficiaries(req.Beneficiaries),
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.instanceRepo.Save(ctx, instance); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	response := ToInstanceResponse(instance)
	return &response, nil
}

// Get retrieves an instance by its ledger account identifier
func (s *InstanceService) Get(ctx context.Context, tenantID uuid.UUID, accountIdentifier string) (*InstanceResponse, error) {
	instance, err := s.instanceRepo.FindByAccountIdentifier(ctx, tenantID, accountIdentifier)
	if err != nil {
		return nil, err
	}
	response := ToInstanceResponse(instance)
	return &response, nil
}

// Update changes the mutable fields of an instance (beneficiaries and the
// alternative account number); the lifecycle state is untouched
func (s *InstanceService) Update(ctx context.Context, tenantID uuid.UUID, accountIdentifier string, req UpdateInstanceRequest) (*InstanceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "instance", "update")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrAccountIdentifier, accountIdentifier,
	)

	instance, err := s.instanceRepo.FindByAccountIdentifier(ctx, tenantID, accountIdentifier)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := instance.UpdateMetadata(deposit.Beneficiaries(req.Beneficiaries), req.AlternativeAccountNum); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.instanceRepo.SaveWithLock(ctx, instance); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	response := ToInstanceResponse(instance)
	return &response, nil
}

// ListByCustomer returns the instances owned by a customer
func (s *InstanceService) ListByCustomer(ctx context.Context, tenantID, customerID uuid.UUID) ([]InstanceResponse, error) {
	instances, err := s.instanceRepo.FindByCustomer(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	responses := make([]InstanceResponse, 0, len(instances))
	for i := range instances {
		responses = append(responses, ToInstanceResponse(&instances[i]))
	}
	return responses, nil
}

// TransactionTypes lists the transaction types available to a customer: the
// permitted actions of the definitions behind the customer's ACTIVE instances
func (s *InstanceService) TransactionTypes(ctx context.Context, tenantID, customerID uuid.UUID) ([]TransactionTypeResponse, error) {
	instances, err := s.instanceRepo.FindByCustomer(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}

	var types []TransactionTypeResponse
	definitions := make(map[uuid.UUID]*catalog.ProductDefinition)
	for i := range instances {
		instance := &instances[i]
		if !instance.IsActive() {
			continue
		}
		definition, ok := definitions[instance.DefinitionID]
		if !ok {
			definition, err = s.definitionRepo.FindByID(ctx, tenantID, instance.DefinitionID)
			if err != nil {
				return nil, err
			}
			definitions[instance.DefinitionID] = definition
		}
		for _, action := range definition.Actions {
			types = append(types, TransactionTypeResponse{
				AccountIdentifier: instance.AccountIdentifier,
				ActionIdentifier:  action.Identifier,
				Name:              action.Name,
				TransactionType:   action.TransactionType,
			})
		}
	}
	return types, nil
}
