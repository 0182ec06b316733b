package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/corebank/backend/internal/application/accrual"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubTenantProvider struct {
	tenantIDs []uuid.UUID
	err       error
}

func (s *stubTenantProvider) GetAllActiveTenantIDs(_ context.Context) ([]uuid.UUID, error) {
	return s.tenantIDs, s.err
}

type recordingRunner struct {
	mu            sync.Mutex
	interestRuns  []uuid.UUID
	dividendRuns  []uuid.UUID
	interestErr   error
	dividendErr   error
	interestCalls int
}

func (r *recordingRunner) RunInterestAccrual(_ context.Context, tenantID uuid.UUID, _ time.Time) (accrual.RunReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interestCalls++
	r.interestRuns = append(r.interestRuns, tenantID)
	return accrual.RunReport{Processed: 1}, r.interestErr
}

func (r *recordingRunner) RunDividendDistributions(_ context.Context, tenantID uuid.UUID, _ time.Time) (accrual.RunReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dividendRuns = append(r.dividendRuns, tenantID)
	return accrual.RunReport{}, r.dividendErr
}

func newTestTrigger(runner AccrualRunner, provider TenantProvider, alignmentHour int) *AccrualTrigger {
	cfg := DefaultAccrualTriggerConfig()
	cfg.AlignmentHour = alignmentHour
	return NewAccrualTrigger(cfg, runner, provider, zap.NewNop())
}

func TestDefaultAccrualTriggerConfig(t *testing.T) {
	cfg := DefaultAccrualTriggerConfig()

	assert.Equal(t, 0, cfg.AlignmentHour)
	assert.Equal(t, time.Minute, cfg.CheckInterval)
}

func TestAccrualTrigger_FiresOncePerDay(t *testing.T) {
	tenantID := uuid.New()
	runner := &recordingRunner{}
	provider := &stubTenantProvider{tenantIDs: []uuid.UUID{tenantID}}
	trigger := newTestTrigger(runner, provider, 2)

	now := time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)
	trigger.now = func() time.Time { return now }

	// First tick at the alignment hour fires the batch
	trigger.checkAndTrigger(context.Background())
	assert.Equal(t, 1, runner.interestCalls)

	// Subsequent ticks on the same day do not fire again
	now = now.Add(time.Minute)
	trigger.checkAndTrigger(context.Background())
	now = now.Add(3 * time.Hour)
	trigger.checkAndTrigger(context.Background())
	assert.Equal(t, 1, runner.interestCalls)

	// Next day fires again
	now = now.Add(24 * time.Hour)
	trigger.checkAndTrigger(context.Background())
	assert.Equal(t, 2, runner.interestCalls)
}

func TestAccrualTrigger_WaitsForAlignmentHour(t *testing.T) {
	runner := &recordingRunner{}
	provider := &stubTenantProvider{tenantIDs: []uuid.UUID{uuid.New()}}
	trigger := newTestTrigger(runner, provider, 3)

	now := time.Date(2026, 3, 10, 1, 30, 0, 0, time.UTC)
	trigger.now = func() time.Time { return now }

	trigger.checkAndTrigger(context.Background())
	assert.Equal(t, 0, runner.interestCalls)

	// A tick after the alignment hour still fires, even when the exact
	// hour was missed
	now = time.Date(2026, 3, 10, 5, 17, 0, 0, time.UTC)
	trigger.checkAndTrigger(context.Background())
	assert.Equal(t, 1, runner.interestCalls)
}

func TestAccrualTrigger_TenantFailureDoesNotStopBatch(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()
	runner := &recordingRunner{interestErr: errors.New("ledger unavailable")}
	provider := &stubTenantProvider{tenantIDs: []uuid.UUID{tenantA, tenantB}}
	trigger := newTestTrigger(runner, provider, 0)

	trigger.runBatch(context.Background(), time.Now())

	assert.Equal(t, []uuid.UUID{tenantA, tenantB}, runner.interestRuns)
	assert.Equal(t, []uuid.UUID{tenantA, tenantB}, runner.dividendRuns)
}

func TestAccrualTrigger_TenantEnumerationFailure(t *testing.T) {
	runner := &recordingRunner{}
	provider := &stubTenantProvider{err: errors.New("db down")}
	trigger := newTestTrigger(runner, provider, 0)

	trigger.runBatch(context.Background(), time.Now())

	assert.Equal(t, 0, runner.interestCalls)
}

func TestAccrualTrigger_StartStop(t *testing.T) {
	runner := &recordingRunner{}
	provider := &stubTenantProvider{}
	trigger := newTestTrigger(runner, provider, 0)
	trigger.config.CheckInterval = 10 * time.Millisecond

	require.NoError(t, trigger.Start(context.Background()))

	// Second start is a no-op
	require.NoError(t, trigger.Start(context.Background()))

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, trigger.Stop(stopCtx))

	// Second stop is a no-op
	require.NoError(t, trigger.Stop(stopCtx))
}

func TestAccrualTrigger_TriggerManualRun(t *testing.T) {
	tenantID := uuid.New()
	runner := &recordingRunner{}
	trigger := newTestTrigger(runner, &stubTenantProvider{}, 0)

	err := trigger.TriggerManualRun(context.Background(), tenantID, time.Now())

	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{tenantID}, runner.interestRuns)
	assert.Equal(t, []uuid.UUID{tenantID}, runner.dividendRuns)
}
