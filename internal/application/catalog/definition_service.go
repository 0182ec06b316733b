package catalog

import (
	"context"
	"fmt"

	"github.com/corebank/backend/internal/domain/catalog"
	"github.com/corebank/backend/internal/domain/deposit"
	"github.com/corebank/backend/internal/domain/shared"
	"github.com/corebank/backend/internal/domain/shared/valueobject"
	"github.com/corebank/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// DefinitionService handles product definition business operations
type DefinitionService struct {
	definitionRepo catalog.ProductDefinitionRepository
	dividendRepo   catalog.DividendDistributionRepository
	instanceRepo   deposit.ProductInstanceRepository
}

// NewDefinitionService creates a new DefinitionService
func NewDefinitionService(
	definitionRepo catalog.ProductDefinitionRepository,
	dividendRepo catalog.DividendDistributionRepository,
	instanceRepo deposit.ProductInstanceRepository,
) *DefinitionService {
	return &DefinitionService{
		definitionRepo: definitionRepo,
		dividendRepo:   dividendRepo,
		instanceRepo:   instanceRepo,
	}
}

// Create creates a new product definition, inactive by default
func (s *DefinitionService) Create(ctx context.Context, tenantID uuid.UUID, req CreateDefinitionRequest) (*DefinitionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "definition", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrDefinitionID, req.Identifier,
	)

	exists, err := s.definitionRepo.ExistsByIdentifier(ctx, tenantID, req.Identifier)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if exists {
		err := shared.NewDomainError(shared.CodeAlreadyExists,
			fmt.Sprintf("Product definition %s already exists", req.Identifier))
		telemetry.RecordError(span, err)
		return nil, err
	}

	term, err := termFromRequest(req.Term)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	pd, err := catalog.NewProductDefinition(
		tenantID,
		req.Identifier,
		req.Name,
		catalog.ProductType(req.Type),
		valueobject.Currency(req.Currency),
		req.MinimumBalance,
		req.InterestRate,
		term,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	pd.Description = req.Description
	pd.Flexible = req.Flexible

	if err := pd.SetActions(actionsFromRequest(req.Actions)); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := pd.SetCharges(chargesFromRequest(req.Charges)); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.definitionRepo.Save(ctx, pd); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	response := ToDefinitionResponse(pd)
	return &response, nil
}

// Get retrieves a definition by its business identifier
func (s *DefinitionService) Get(ctx context.Context, tenantID uuid.UUID, identifier string) (*DefinitionResponse, error) {
	pd, err := s.definitionRepo.FindByIdentifier(ctx, tenantID, identifier)
	if err != nil {
		return nil, err
	}
	response := ToDefinitionResponse(pd)
	return &response, nil
}

// List retrieves definitions for a tenant with filtering
func (s *DefinitionService) List(ctx context.Context, tenantID uuid.UUID, filter catalog.ProductDefinitionFilter) ([]DefinitionResponse, error) {
	definitions, err := s.definitionRepo.FindAll(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	responses := make([]DefinitionResponse, 0, len(definitions))
	for i := range definitions {
		responses = append(responses, ToDefinitionResponse(&definitions[i]))
	}
	return responses, nil
}

// Update applies an update to a definition. Currency and term are immutable
// once any instance references the definition; the product type never changes.
func (s *DefinitionService) Update(ctx context.Context, tenantID uuid.UUID, identifier string, req UpdateDefinitionRequest) (*DefinitionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "definition", "update")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrDefinitionID, identifier,
	)

	pd, err := s.definitionRepo.FindByIdentifier(ctx, tenantID, identifier)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	instanceCount, err := s.instanceRepo.CountByDefinition(ctx, tenantID, pd.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	term, err := termFromRequest(req.Term)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := pd.UpdateDetails(
		req.Name,
		req.Description,
		catalog.ProductType(req.Type),
		valueobject.Currency(req.Currency),
		req.MinimumBalance,
		req.InterestRate,
		term,
		req.Flexible,
		instanceCount > 0,
	); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := pd.SetActions(actionsFromRequest(req.Actions)); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := pd.SetCharges(chargesFromRequest(req.Charges)); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.definitionRepo.SaveWithLock(ctx, pd); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	response := ToDefinitionResponse(pd)
	return &response, nil
}

// Delete removes a definition. Fails with CONFLICT while instances reference it.
func (s *DefinitionService) Delete(ctx context.Context, tenantID uuid.UUID, identifier string) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "definition", "delete")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrDefinitionID, identifier,
	)

	pd, err := s.definitionRepo.FindByIdentifier(ctx, tenantID, identifier)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	instanceCount, err := s.instanceRepo.CountByDefinition(ctx, tenantID, pd.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if instanceCount > 0 {
		err := shared.NewDomainError(shared.CodeConflict,
			fmt.Sprintf("Product definition %s has %d instances and cannot be deleted", identifier, instanceCount))
		telemetry.RecordError(span, err)
		return err
	}

	pd.AddDomainEvent(catalog.NewProductDefinitionDeletedEvent(pd))
	if err := s.definitionRepo.Delete(ctx, tenantID, pd.ID); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

// ApplyCommand applies an ACTIVATE or DEACTIVATE command to a definition and
// appends the command to its audit history
func (s *DefinitionService) ApplyCommand(ctx context.Context, tenantID uuid.UUID, identifier string, req DefinitionCommandRequest) (*DefinitionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "definition", "apply_command")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrDefinitionID, identifier,
		telemetry.SpanAttrCommand, req.Command,
	)

	pd, err := s.definitionRepo.FindByIdentifier(ctx, tenantID, identifier)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var cmd *catalog.DefinitionCommand
	switch catalog.DefinitionCommandType(req.Command) {
	case catalog.DefinitionCommandActivate:
		cmd, err = pd.Activate(req.Comment)
	case catalog.DefinitionCommandDeactivate:
		cmd, err = pd.Deactivate(req.Comment)
	default:
		err = shared.NewValidationError(fmt.Sprintf("Unknown definition command %q", req.Command))
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.definitionRepo.SaveWithLock(ctx, pd); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.definitionRepo.AppendCommand(ctx, cmd); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	response := ToDefinitionResponse(pd)
	return &response, nil
}

// ListCommands returns the ordered audit history of a definition
func (s *DefinitionService) ListCommands(ctx context.Context, tenantID uuid.UUID, identifier string) ([]DefinitionCommandResponse, error) {
	pd, err := s.definitionRepo.FindByIdentifier(ctx, tenantID, identifier)
	if err != nil {
		return nil, err
	}
	commands, err := s.definitionRepo.ListCommands(ctx, tenantID, pd.ID)
	if err != nil {
		return nil, err
	}
	responses := make([]DefinitionCommandResponse, 0, len(commands))
	for i := range commands {
		responses = append(responses, ToDefinitionCommandResponse(&commands[i]))
	}
	return responses, nil
}

// RecordDividendDistribution records a distribution against a definition.
// Re-submitting an identical (due-date, rate) pair is a no-op, not an error.
func (s *DefinitionService) RecordDividendDistribution(ctx context.Context, tenantID uuid.UUID, identifier string, req DividendDistributionRequest) (*DividendDistributionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "definition", "record_dividend_distribution")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrDefinitionID, identifier,
	)

	pd, err := s.definitionRepo.FindByIdentifier(ctx, tenantID, identifier)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	dd, err := catalog.NewDividendDistribution(tenantID, pd.ID, req.DueDate, req.Rate)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	exists, err := s.dividendRepo.ExistsEqual(ctx, tenantID, pd.ID, dd)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if exists {
		telemetry.AddEvent(span, "dividend_distribution_duplicate")
		response := ToDividendDistributionResponse(dd)
		return &response, nil
	}

	pd.AddDomainEvent(catalog.NewDividendDistributionRecordedEvent(pd, dd))
	if err := s.dividendRepo.Save(ctx, dd); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.definitionRepo.Save(ctx, pd); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	response := ToDividendDistributionResponse(dd)
	return &response, nil
}

// ListDividendDistributions returns the distributions of a definition ordered
// by due date
func (s *DefinitionService) ListDividendDistributions(ctx context.Context, tenantID uuid.UUID, identifier string) ([]DividendDistributionResponse, error) {
	pd, err := s.definitionRepo.FindByIdentifier(ctx, tenantID, identifier)
	if err != nil {
		return nil, err
	}
	distributions, err := s.dividendRepo.ListByDefinition(ctx, tenantID, pd.ID)
	if err != nil {
		return nil, err
	}
	responses := make([]DividendDistributionResponse, 0, len(distributions))
	for i := range distributions {
		responses = append(responses, ToDividendDistributionResponse(&distributions[i]))
	}
	return responses, nil
}

func termFromRequest(req TermRequest) (catalog.Term, error) {
	unit, err := catalog.ParseTimeUnit(req.TimeUnit)
	if err != nil {
		return catalog.Term{}, err
	}
	payable, err := catalog.ParseInterestPayable(req.InterestPayable)
	if err != nil {
		return catalog.Term{}, err
	}
	return catalog.Term{Period: req.Period, Unit: unit, InterestPayable: payable}, nil
}

func chargesFromRequest(reqs []ChargeRequest) catalog.Charges {
	charges := make(catalog.Charges, 0, len(reqs))
	for _, r := range reqs {
		method := catalog.ChargeMethodFixed
		if r.Proportional {
			method = catalog.ChargeMethodProportional
		}
		charges = append(charges, catalog.Charge{
			Identifier:       r.Identifier,
			Name:             r.Name,
			ActionIdentifier: r.ActionIdentifier,
			Method:           method,
			Amount:           r.Amount,
		})
	}
	return charges
}

func actionsFromRequest(reqs []ActionRequest) catalog.Actions {
	actions := make(catalog.Actions, 0, len(reqs))
	for _, r := range reqs {
		actions = append(actions, catalog.Action{
			Identifier:      r.Identifier,
			Name:            r.Name,
			TransactionType: r.TransactionType,
		})
	}
	return actions
}
