package deposit

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/corebank/backend/internal/domain/catalog"
	"github.com/corebank/backend/internal/domain/deposit"
	"github.com/corebank/backend/internal/domain/shared"
	"github.com/corebank/backend/internal/infrastructure/logger"
	"github.com/corebank/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AccountingBridge is the capability the processor needs from the accounting
// layer. Ledger calls carry bounded timeouts inside the bridge.
type AccountingBridge interface {
	OpenLedgerAccount(ctx context.Context, instance *deposit.ProductInstance, definition *catalog.ProductDefinition) error
	CloseLedgerAccount(ctx context.Context, accountIdentifier string) error
	PostInstanceTransaction(ctx context.Context, instance *deposit.ProductInstance, transactionType string, amount, fee decimal.Decimal, transactionID, message string) error
	PostInterestEntry(ctx context.Context, instance *deposit.ProductInstance, transactionType string, amount decimal.Decimal, transactionID, message string) error
}

// Ledger transaction types for scheduler-originated postings
const (
	transactionTypeInterest = "INTR"
	transactionTypeDividend = "DIVI"
)

const lockStripes = 64

// keyedMutex serializes work per identifier using striped locks. Commands
// against different entities proceed in parallel; two commands hashing to the
// same stripe serialize, which is acceptable contention at this granularity.
type keyedMutex struct {
	stripes [lockStripes]sync.Mutex
}

func (k *keyedMutex) lock(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	m := &k.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m
}

// CommandProcessor is the orchestration core: it validates an incoming
// command against current state, applies the state transition, invokes the
// accounting bridge, and leaves exactly one domain event per applied command
// in the outbox.
//
// Ledger posting and local persistence follow a local-first strategy: the
// state transition is committed together with its event and an owed ledger
// entry keyed by the command, then the ledger is posted with a bounded
// timeout. If the post fails the command returns an upstream error while
// its owed entry stays on the instance, and resubmitting the same command
// (same idempotency key) retries only that ledger leg. Tracking owed legs
// per command key means a later command on the same instance can succeed
// without settling an earlier command's debt. The journal transaction
// identifier equals the command key, so the ledger can deduplicate double
// posts.
type CommandProcessor struct {
	instanceRepo   deposit.ProductInstanceRepository
	definitionRepo catalog.ProductDefinitionRepository
	bridge         AccountingBridge
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	logger         *zap.Logger
	locks          keyedMutex
}

// NewCommandProcessor creates a new CommandProcessor
func NewCommandProcessor(
	instanceRepo deposit.ProductInstanceRepository,
	definitionRepo catalog.ProductDefinitionRepository,
	bridge AccountingBridge,
	idempotency shared.IdempotencyStore,
	idempotencyConfig shared.IdempotencyConfig,
	logger *zap.Logger,
) *CommandProcessor {
	ttl := idempotencyConfig.TTL
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyConfig().TTL
	}
	return &CommandProcessor{
		instanceRepo:   instanceRepo,
		definitionRepo: definitionRepo,
		bridge:         bridge,
		idempotency:    idempotency,
		idempotencyTTL: ttl,
		logger:         logger,
	}
}

// ProcessCommand applies a named lifecycle command (ACTIVATE, CLOSE) to an
// instance. Re-submitting an already-applied command is a no-op success.
func (p *CommandProcessor) ProcessCommand(ctx context.Context, tenantID uuid.UUID, accountIdentifier string, req InstanceCommandRequest) (*InstanceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "command_processor", "process_command")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrAccountIdentifier, accountIdentifier,
		telemetry.SpanAttrCommand, req.Command,
	)
	ctx, _ = logger.WithAccount(ctx, p.logger, accountIdentifier)

	mu := p.locks.lock(lockKey(tenantID, accountIdentifier))
	defer mu.Unlock()

	instance, err := p.instanceRepo.FindByAccountIdentifier(ctx, tenantID, accountIdentifier)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	definition, err := p.definitionRepo.FindByID(ctx, tenantID, instance.DefinitionID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	switch req.Command {
	case deposit.CommandActivate:
		err = p.activate(ctx, instance, definition)
	case deposit.CommandClose:
		err = p.close(ctx, instance, definition, req.Force)
	default:
		err = shared.NewValidationError(fmt.Sprintf("Unknown instance command %q", req.Command))
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	response := ToInstanceResponse(instance)
	return &response, nil
}

// activate moves a PENDING instance to ACTIVE and creates its ledger
// account. An instance already ACTIVE with a settled ledger is a no-op;
// ACTIVE with the activation leg still owed means a previous attempt
// committed locally but never reached the ledger, so only that leg is
// retried. Any other state is rejected before the ledger is touched.
func (p *CommandProcessor) activate(ctx context.Context, instance *deposit.ProductInstance, definition *catalog.ProductDefinition) error {
	switch instance.State {
	case deposit.InstanceStateActive:
		if !instance.OwesLedgerEntry(deposit.LedgerEntryActivate) {
			return nil
		}
	case deposit.InstanceStatePending:
		if err := instance.Activate(definition.Active); err != nil {
			return err
		}
		instance.MarkLedgerEntryOwed(deposit.LedgerEntryActivate)
		if err := p.instanceRepo.SaveWithLock(ctx, instance); err != nil {
			return err
		}
	default:
		return shared.NewInvalidStateTransitionError(deposit.CommandActivate, string(instance.State))
	}

	if err := p.bridge.OpenLedgerAccount(ctx, instance, definition); err != nil {
		if !shared.HasCode(err, shared.CodeAlreadyExists) {
			p.logger.Warn("ledger account creation deferred",
				zap.String("account", instance.AccountIdentifier),
				zap.Error(err))
			return err
		}
	}

	instance.SettleLedgerEntry(deposit.LedgerEntryActivate)
	return p.instanceRepo.SaveWithLock(ctx, instance)
}

// close moves an ACTIVE instance to CLOSED and closes its ledger account.
// CLOSED with the close leg still owed retries only the ledger leg; any
// other non-ACTIVE state is rejected before the ledger is touched.
func (p *CommandProcessor) close(ctx context.Context, instance *deposit.ProductInstance, definition *catalog.ProductDefinition, force bool) error {
	switch instance.State {
	case deposit.InstanceStateClosed:
		if !instance.OwesLedgerEntry(deposit.LedgerEntryClose) {
			return shared.NewInvalidStateTransitionError(deposit.CommandClose, string(instance.State))
		}
	case deposit.InstanceStateActive:
		if err := instance.Close(definition.MinimumBalance, force); err != nil {
			return err
		}
		instance.MarkLedgerEntryOwed(deposit.LedgerEntryClose)
		if err := p.instanceRepo.SaveWithLock(ctx, instance); err != nil {
			return err
		}
	default:
		return shared.NewInvalidStateTransitionError(deposit.CommandClose, string(instance.State))
	}

	if err := p.bridge.CloseLedgerAccount(ctx, instance.AccountIdentifier); err != nil {
		p.logger.Warn("ledger account close deferred",
			zap.String("account", instance.AccountIdentifier),
			zap.Error(err))
		return err
	}

	instance.SettleLedgerEntry(deposit.LedgerEntryClose)
	return p.instanceRepo.SaveWithLock(ctx, instance)
}

// ProcessTransaction applies a deposit or withdrawal to an ACTIVE instance:
// validates the action against the definition, computes charges, commits the
// balance change locally and posts the balancing journal entry. A replayed
// command key results in exactly one local application and one journal entry.
func (p *CommandProcessor) ProcessTransaction(ctx context.Context, tenantID uuid.UUID, accountIdentifier string, req TransactionRequest) (*InstanceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "command_processor", "process_transaction")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrAccountIdentifier, accountIdentifier,
		telemetry.SpanAttrCommand, req.ActionIdentifier,
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	mu := p.locks.lock(lockKey(tenantID, accountIdentifier))
	defer mu.Unlock()

	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	commandKey := commandKey(tenantID, accountIdentifier, "transaction", key)

	instance, err := p.instanceRepo.FindByAccountIdentifier(ctx, tenantID, accountIdentifier)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	definition, err := p.definitionRepo.FindByID(ctx, tenantID, instance.DefinitionID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	action, ok := definition.ActionByIdentifier(req.ActionIdentifier)
	if !ok {
		err := shared.NewValidationError(
			fmt.Sprintf("Action %s is not permitted by definition %s", req.ActionIdentifier, definition.Identifier))
		telemetry.RecordError(span, err)
		return nil, err
	}

	fee := definition.TotalFee(req.ActionIdentifier, req.Amount)

	applied, err := p.idempotency.IsProcessed(ctx, commandKey)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if applied && !instance.OwesLedgerEntry(commandKey) {
		// Fully applied before; replay is a no-op.
		telemetry.AddEvent(span, "command_replayed")
		response := ToInstanceResponse(instance)
		return &response, nil
	}

	if !instance.OwesLedgerEntry(commandKey) {
		if err := instance.ApplyTransaction(req.ActionIdentifier, req.Amount, fee, definition.MinimumBalance, time.Now()); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		instance.MarkLedgerEntryOwed(commandKey)
		if err := p.instanceRepo.SaveWithLock(ctx, instance); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}
	if !applied {
		// The owed entry is already persisted with the aggregate, so a
		// retry after a store failure resumes here instead of applying
		// the balance change a second time.
		if _, err := p.idempotency.MarkProcessed(ctx, commandKey, p.idempotencyTTL); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}
	if err := p.postAndSettle(ctx, instance, action.TransactionType, req.Amount, fee, key, req.Message, commandKey); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	response := ToInstanceResponse(instance)
	return &response, nil
}

func (p *CommandProcessor) postAndSettle(ctx context.Context, instance *deposit.ProductInstance, transactionType string, amount, fee decimal.Decimal, transactionID, message, commandKey string) error {
	if err := p.bridge.PostInstanceTransaction(ctx, instance, transactionType, amount, fee, transactionID, message); err != nil {
		p.logger.Warn("journal entry deferred",
			zap.String("account", instance.AccountIdentifier),
			zap.String("transaction_id", transactionID),
			zap.Error(err))
		return err
	}
	instance.SettleLedgerEntry(commandKey)
	return p.instanceRepo.SaveWithLock(ctx, instance)
}

// ProcessInterestAccrual credits computed interest to an instance. The
// scheduler derives the key from the accrual period, so a re-triggered batch
// after restart produces exactly one journal entry per instance and period.
func (p *CommandProcessor) ProcessInterestAccrual(ctx context.Context, tenantID uuid.UUID, accountIdentifier string, amount, rate decimal.Decimal, period string) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "command_processor", "process_interest_accrual")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrAccountIdentifier, accountIdentifier,
		telemetry.SpanAttrAmount, amount.String(),
	)

	mu := p.locks.lock(lockKey(tenantID, accountIdentifier))
	defer mu.Unlock()

	commandKey := commandKey(tenantID, accountIdentifier, "interest-accrued", period)
	return p.creditInstance(ctx, tenantID, accountIdentifier, commandKey, transactionTypeInterest, amount, rate,
		fmt.Sprintf("Interest accrual %s", period),
		func(instance *deposit.ProductInstance, at time.Time) error {
			return instance.AccrueInterest(amount, rate, at)
		})
}

// ProcessDividendPayout credits a dividend distribution payout to an
// instance, keyed by the distribution so each instance is paid once
func (p *CommandProcessor) ProcessDividendPayout(ctx context.Context, tenantID uuid.UUID, accountIdentifier string, distributionID uuid.UUID, amount, rate decimal.Decimal) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "command_processor", "process_dividend_payout")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrAccountIdentifier, accountIdentifier,
		telemetry.SpanAttrAmount, amount.String(),
	)

	mu := p.locks.lock(lockKey(tenantID, accountIdentifier))
	defer mu.Unlock()

	commandKey := commandKey(tenantID, accountIdentifier, "dividend-payout", distributionID.String())
	return p.creditInstance(ctx, tenantID, accountIdentifier, commandKey, transactionTypeDividend, amount, rate,
		fmt.Sprintf("Dividend distribution %s", distributionID),
		func(instance *deposit.ProductInstance, at time.Time) error {
			return instance.PayDividend(amount, rate, at)
		})
}

// creditInstance is the shared pipeline for scheduler-originated credits
func (p *CommandProcessor) creditInstance(
	ctx context.Context,
	tenantID uuid.UUID,
	accountIdentifier string,
	commandKey string,
	transactionType string,
	amount, rate decimal.Decimal,
	message string,
	apply func(instance *deposit.ProductInstance, at time.Time) error,
) error {
	instance, err := p.instanceRepo.FindByAccountIdentifier(ctx, tenantID, accountIdentifier)
	if err != nil {
		return err
	}

	applied, err := p.idempotency.IsProcessed(ctx, commandKey)
	if err != nil {
		return err
	}
	if applied && !instance.OwesLedgerEntry(commandKey) {
		return nil
	}

	if !instance.OwesLedgerEntry(commandKey) {
		if err := apply(instance, time.Now()); err != nil {
			return err
		}
		instance.MarkLedgerEntryOwed(commandKey)
		if err := p.instanceRepo.SaveWithLock(ctx, instance); err != nil {
			return err
		}
	}
	if !applied {
		if _, err := p.idempotency.MarkProcessed(ctx, commandKey, p.idempotencyTTL); err != nil {
			return err
		}
	}

	if err := p.bridge.PostInterestEntry(ctx, instance, transactionType, amount, commandKey, message); err != nil {
		p.logger.Warn("interest journal entry deferred",
			zap.String("account", instance.AccountIdentifier),
			zap.Error(err))
		return err
	}

	instance.SettleLedgerEntry(commandKey)
	return p.instanceRepo.SaveWithLock(ctx, instance)
}

func lockKey(tenantID uuid.UUID, accountIdentifier string) string {
	return tenantID.String() + ":" + accountIdentifier
}

func commandKey(tenantID uuid.UUID, accountIdentifier, commandType, discriminator string) string {
	return fmt.Sprintf("cmd:%s:%s:%s:%s", tenantID, accountIdentifier, commandType, discriminator)
}
