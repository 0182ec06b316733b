package accrual

import (
	"context"
	"time"

	"github.com/corebank/backend/internal/domain/catalog"
	"github.com/corebank/backend/internal/domain/deposit"
	"github.com/corebank/backend/internal/domain/scheduling"
	"github.com/corebank/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CommandSubmitter is the slice of the command processor the accrual batch
// uses. Scheduled credits go through the same pipeline as customer commands,
// with no privileged shortcut around state validation or the ledger.
type CommandSubmitter interface {
	ProcessInterestAccrual(ctx context.Context, tenantID uuid.UUID, accountIdentifier string, amount, rate decimal.Decimal, period string) error
	ProcessDividendPayout(ctx context.Context, tenantID uuid.UUID, accountIdentifier string, distributionID uuid.UUID, amount, rate decimal.Decimal) error
}

// Config holds accrual batch configuration
type Config struct {
	// OwnerApp identifies this service to the beat publisher
	OwnerApp string

	// BeatIdentifier names the daily beat this service subscribes to
	BeatIdentifier string

	// AlignmentHour is the hour of day (UTC) the daily batch runs at
	AlignmentHour int
}

// DefaultConfig returns the default accrual configuration
func DefaultConfig() Config {
	return Config{
		OwnerApp:       "deposits-backend",
		BeatIdentifier: "daily-accrual",
		AlignmentHour:  0,
	}
}

// RunReport summarizes one batch run. Failures are per-instance and do not
// abort the batch; failed instances are picked up again on the next run.
type RunReport struct {
	Processed int
	Failed    int
}

// Service drives the scheduled interest accrual and dividend distribution
// batches over all tenants' active instances
type Service struct {
	instanceRepo   deposit.ProductInstanceRepository
	definitionRepo catalog.ProductDefinitionRepository
	dividendRepo   catalog.DividendDistributionRepository
	submitter      CommandSubmitter
	beats          scheduling.BeatClient
	config         Config
	logger         *zap.Logger
}

// NewService creates a new accrual Service
func NewService(
	instanceRepo deposit.ProductInstanceRepository,
	definitionRepo catalog.ProductDefinitionRepository,
	dividendRepo catalog.DividendDistributionRepository,
	submitter CommandSubmitter,
	beats scheduling.BeatClient,
	config Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		instanceRepo:   instanceRepo,
		definitionRepo: definitionRepo,
		dividendRepo:   dividendRepo,
		submitter:      submitter,
		beats:          beats,
		config:         config,
		logger:         logger,
	}
}

// RegisterBeat announces the daily accrual beat to the scheduler. Registration
// is idempotent and a failure only delays the external trigger, so it is
// logged rather than propagated.
func (s *Service) RegisterBeat(ctx context.Context) {
	beat := scheduling.Beat{
		OwnerApp:      s.config.OwnerApp,
		Identifier:    s.config.BeatIdentifier,
		AlignmentHour: s.config.AlignmentHour,
	}
	if err := s.beats.EnsureBeat(ctx, beat); err != nil {
		s.logger.Warn("beat registration failed",
			zap.String("beat", beat.Identifier),
			zap.Error(err))
	}
}

// RunInterestAccrual accrues one day of interest on every ACTIVE instance
// whose definition carries an interest-payable term. Each instance is an
// independent unit of work; one failure does not block the rest of the batch,
// and the period-derived command key makes a re-triggered batch safe.
func (s *Service) RunInterestAccrual(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (RunReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "accrual", "run_interest_accrual")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrTenantID, tenantID.String())

	var report RunReport

	state := deposit.InstanceStateActive
	instances, err := s.instanceRepo.FindAll(ctx, tenantID, deposit.ProductInstanceFilter{State: &state})
	if err != nil {
		telemetry.RecordError(span, err)
		return report, err
	}

	period := asOf.UTC().Format("2006-01-02")
	definitions := make(map[uuid.UUID]*catalog.ProductDefinition)

	for i := range instances {
		instance := &instances[i]

		definition, ok := definitions[instance.DefinitionID]
		if !ok {
			definition, err = s.definitionRepo.FindByID(ctx, tenantID, instance.DefinitionID)
			if err != nil {
				s.logger.Error("definition lookup failed during accrual",
					zap.String("definition_id", instance.DefinitionID.String()),
					zap.Error(err))
				report.Failed++
				continue
			}
			definitions[instance.DefinitionID] = definition
		}

		if !definition.HasInterestPayableTerm() || !definition.InterestRate.IsPositive() {
			continue
		}

		amount := DailyInterest(instance.Balance, definition.InterestRate)
		if !amount.IsPositive() {
			continue
		}

		if err := s.submitter.ProcessInterestAccrual(ctx, tenantID, instance.AccountIdentifier, amount, definition.InterestRate, period); err != nil {
			s.logger.Error("interest accrual failed",
				zap.String("account", instance.AccountIdentifier),
				zap.String("period", period),
				zap.Error(err))
			report.Failed++
			continue
		}
		report.Processed++
	}

	s.logger.Info("interest accrual batch finished",
		zap.String("period", period),
		zap.Int("processed", report.Processed),
		zap.Int("failed", report.Failed))
	return report, nil
}

// RunDividendDistributions pays out every distribution due by asOf across the
// ACTIVE instances of its definition. The distribution-derived command key
// guarantees each instance is paid once per distribution.
func (s *Service) RunDividendDistributions(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (RunReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "accrual", "run_dividend_distributions")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrTenantID, tenantID.String())

	var report RunReport

	due, err := s.dividendRepo.FindDue(ctx, tenantID, asOf)
	if err != nil {
		telemetry.RecordError(span, err)
		return report, err
	}

	for i := range due {
		distribution := &due[i]

		instances, err := s.instanceRepo.FindActiveByDefinition(ctx, tenantID, distribution.DefinitionID)
		if err != nil {
			s.logger.Error("instance fan-out failed during dividend distribution",
				zap.String("distribution_id", distribution.ID.String()),
				zap.Error(err))
			report.Failed++
			continue
		}

		for j := range instances {
			instance := &instances[j]

			amount := DividendAmount(instance.Balance, distribution.Rate)
			if !amount.IsPositive() {
				continue
			}

			if err := s.submitter.ProcessDividendPayout(ctx, tenantID, instance.AccountIdentifier, distribution.ID, amount, distribution.Rate); err != nil {
				s.logger.Error("dividend payout failed",
					zap.String("account", instance.AccountIdentifier),
					zap.String("distribution_id", distribution.ID.String()),
					zap.Error(err))
				report.Failed++
				continue
			}
			report.Processed++
		}
	}

	s.logger.Info("dividend distribution batch finished",
		zap.Int("processed", report.Processed),
		zap.Int("failed", report.Failed))
	return report, nil
}

var (
	hundred     = decimal.NewFromInt(100)
	daysPerYear = decimal.NewFromInt(int64(catalog.TimeUnitYears.ApproximateDays()))
)

// DailyInterest computes one calendar day of interest on a balance at an
// annual percentage rate, on a 365-day basis, rounded to 4 decimal places
func DailyInterest(balance, annualRate decimal.Decimal) decimal.Decimal {
	if !balance.IsPositive() {
		return decimal.Zero
	}
	return balance.Mul(annualRate).Div(hundred).Div(daysPerYear).Round(4)
}

// DividendAmount computes a one-time dividend payout on a balance at a
// percentage rate, rounded to 4 decimal places
func DividendAmount(balance, rate decimal.Decimal) decimal.Decimal {
	if !balance.IsPositive() {
		return decimal.Zero
	}
	return balance.Mul(rate).Div(hundred).Round(4)
}
