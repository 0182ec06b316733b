package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/corebank/backend/internal/application/accrual"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TenantProvider provides the tenants the daily batch runs for
type TenantProvider interface {
	GetAllActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// AccrualRunner is the slice of the accrual service the trigger drives
type AccrualRunner interface {
	RunInterestAccrual(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (accrual.RunReport, error)
	RunDividendDistributions(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (accrual.RunReport, error)
}

// AccrualTriggerConfig holds configuration for the daily accrual trigger
type AccrualTriggerConfig struct {
	// AlignmentHour is the hour of day (local time) the batch runs at
	AlignmentHour int

	// CheckInterval is how often to check whether the alignment hour was reached
	CheckInterval time.Duration
}

// DefaultAccrualTriggerConfig returns default trigger configuration
func DefaultAccrualTriggerConfig() AccrualTriggerConfig {
	return AccrualTriggerConfig{
		AlignmentHour: 0,
		CheckInterval: time.Minute,
	}
}

// AccrualTrigger fires the interest accrual and dividend distribution batches
// once per day at the configured alignment hour. It is the local fallback for
// the external scheduler's beat: both paths converge on the same service, and
// the accrual commands themselves are idempotent, so a double fire is harmless.
type AccrualTrigger struct {
	config         AccrualTriggerConfig
	runner         AccrualRunner
	tenantProvider TenantProvider
	logger         *zap.Logger

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string // Track which date we last ran for

	now func() time.Time
}

// NewAccrualTrigger creates a new accrual trigger
func NewAccrualTrigger(
	config AccrualTriggerConfig,
	runner AccrualRunner,
	tenantProvider TenantProvider,
	logger *zap.Logger,
) *AccrualTrigger {
	return &AccrualTrigger{
		config:         config,
		runner:         runner,
		tenantProvider: tenantProvider,
		logger:         logger,
		now:            time.Now,
	}
}

// Start starts the trigger loop
func (t *AccrualTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Accrual trigger started",
		zap.Int("alignment_hour", t.config.AlignmentHour),
		zap.Duration("check_interval", t.config.CheckInterval),
	)

	return nil
}

// Stop stops the trigger loop
func (t *AccrualTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Accrual trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop checks periodically whether the alignment hour was reached
func (t *AccrualTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger fires the batch once the alignment hour is reached, at most
// once per calendar day
func (t *AccrualTrigger) checkAndTrigger(ctx context.Context) {
	now := t.now()
	currentDate := now.Format("2006-01-02")

	t.mu.Lock()
	alreadyRan := t.lastRunDate == currentDate
	t.mu.Unlock()
	if alreadyRan {
		return
	}

	// Any tick at or after the alignment hour fires; checking the exact
	// minute would skip the day when a tick is missed
	if now.Hour() < t.config.AlignmentHour {
		return
	}

	t.mu.Lock()
	t.lastRunDate = currentDate
	t.mu.Unlock()

	t.logger.Info("Triggering daily accrual batch", zap.Time("as_of", now))
	t.runBatch(ctx, now)
}

// runBatch runs interest accrual and dividend distributions for every tenant.
// Tenant failures are logged and do not stop the batch.
func (t *AccrualTrigger) runBatch(ctx context.Context, asOf time.Time) {
	tenantIDs, err := t.tenantProvider.GetAllActiveTenantIDs(ctx)
	if err != nil {
		t.logger.Error("Failed to enumerate tenants for accrual batch", zap.Error(err))
		return
	}

	t.logger.Info("Running accrual batch",
		zap.Int("tenant_count", len(tenantIDs)),
	)

	for _, tenantID := range tenantIDs {
		interestReport, err := t.runner.RunInterestAccrual(ctx, tenantID, asOf)
		if err != nil {
			t.logger.Error("Interest accrual run failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		}

		dividendReport, err := t.runner.RunDividendDistributions(ctx, tenantID, asOf)
		if err != nil {
			t.logger.Error("Dividend distribution run failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		}

		t.logger.Info("Accrual batch tenant done",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("interest_processed", interestReport.Processed),
			zap.Int("interest_failed", interestReport.Failed),
			zap.Int("dividends_processed", dividendReport.Processed),
			zap.Int("dividends_failed", dividendReport.Failed),
		)
	}
}

// TriggerManualRun fires the batch for a single tenant outside the schedule
func (t *AccrualTrigger) TriggerManualRun(ctx context.Context, tenantID uuid.UUID, asOf time.Time) error {
	if _, err := t.runner.RunInterestAccrual(ctx, tenantID, asOf); err != nil {
		return err
	}
	_, err := t.runner.RunDividendDistributions(ctx, tenantID, asOf)
	return err
}
