package accounting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corebank/backend/internal/domain/catalog"
	"github.com/corebank/backend/internal/domain/deposit"
	"github.com/corebank/backend/internal/domain/ledger"
	"github.com/corebank/backend/internal/domain/shared"
	"github.com/corebank/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config holds the ledger wiring of the bridge: which ledger instance
// accounts live in and which internal accounts absorb the balancing legs.
type Config struct {
	EquityLedgerIdentifier    string
	ClearingAccountIdentifier string
	FeeIncomeAccount          string
	InterestExpenseAccount    string
	CallTimeout               time.Duration
	FallbackScanPageSize      int
}

// DefaultConfig returns the default bridge configuration
func DefaultConfig() Config {
	return Config{
		CallTimeout:          10 * time.Second,
		FallbackScanPageSize: 200,
	}
}

// Bridge translates instance lifecycle and financial events into ledger
// operations. It owns no persistent state; the ledger remains the system of
// record for balances, and double-entry balance is enforced there.
type Bridge struct {
	client ledger.Client
	config Config
	logger *zap.Logger
}

// NewBridge creates a new accounting bridge
func NewBridge(client ledger.Client, config Config, logger *zap.Logger) *Bridge {
	if config.CallTimeout <= 0 {
		config.CallTimeout = 10 * time.Second
	}
	if config.FallbackScanPageSize <= 0 {
		config.FallbackScanPageSize = 200
	}
	return &Bridge{
		client: client,
		config: config,
		logger: logger,
	}
}

// OpenLedgerAccount resolves the product's equity ledger and creates the
// instance's account in it, tagged with the customer as holder. A missing
// ledger is a configuration error surfaced to the caller, not retried.
func (b *Bridge) OpenLedgerAccount(ctx context.Context, instance *deposit.ProductInstance, definition *catalog.ProductDefinition) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "accounting", "open_ledger_account")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAccountIdentifier, instance.AccountIdentifier,
		telemetry.SpanAttrDefinitionID, definition.Identifier,
	)

	callCtx, cancel := context.WithTimeout(ctx, b.config.CallTimeout)
	defer cancel()

	if _, err := b.client.FindLedger(callCtx, b.config.EquityLedgerIdentifier); err != nil {
		if errors.Is(err, ledger.ErrLedgerNotFound) {
			b.logger.Error("configured equity ledger not found",
				zap.String("ledger", b.config.EquityLedgerIdentifier))
			telemetry.RecordError(span, err)
			return err
		}
		telemetry.RecordError(span, err)
		return b.mapUpstreamError(err)
	}

	spec := ledger.AccountSpec{
		Identifier:            instance.AccountIdentifier,
		Name:                  definition.Name,
		LedgerIdentifier:      b.config.EquityLedgerIdentifier,
		HolderIdentifier:      instance.CustomerID.String(),
		AlternativeAccountNum: instance.AlternativeAccountNum,
		OpeningBalance:        decimal.Zero,
	}
	if err := b.client.CreateAccount(callCtx, spec); err != nil {
		telemetry.RecordError(span, err)
		return b.mapUpstreamError(err)
	}
	return nil
}

// CloseLedgerAccount marks the instance's ledger account closed
func (b *Bridge) CloseLedgerAccount(ctx context.Context, accountIdentifier string) error {
	callCtx, cancel := context.WithTimeout(ctx, b.config.CallTimeout)
	defer cancel()

	closed := "CLOSED"
	if err := b.client.ModifyAccount(callCtx, accountIdentifier, ledger.AccountPatch{State: &closed}); err != nil {
		return b.mapUpstreamError(err)
	}
	return nil
}

// ResolveAccount looks up an account by its primary identifier. On a miss it
// falls back to scanning the first page of the equity ledger's accounts for a
// matching alternative account number before failing with NOT_FOUND. The
// fallback exists because alternative account numbers are not independently
// indexed by the ledger; matches beyond the first page are missed.
func (b *Bridge) ResolveAccount(ctx context.Context, identifier string) (*ledger.Account, error) {
	callCtx, cancel := context.WithTimeout(ctx, b.config.CallTimeout)
	defer cancel()

	account, err := b.client.FindAccount(callCtx, identifier)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ledger.ErrAccountNotFound) {
		return nil, b.mapUpstreamError(err)
	}

	page, err := b.client.ListAccounts(callCtx, b.config.EquityLedgerIdentifier, 0, b.config.FallbackScanPageSize)
	if err != nil {
		return nil, b.mapUpstreamError(err)
	}
	for i := range page.Accounts {
		candidate := &page.Accounts[i]
		if candidate.AlternativeAccountNum == identifier {
			return candidate, nil
		}
		for _, ref := range candidate.ReferenceAccountNumbers {
			if ref == identifier {
				return candidate, nil
			}
		}
	}
	return nil, shared.NewDomainError(shared.CodeNotFound,
		fmt.Sprintf("Ledger account %s not found", identifier))
}

// PostJournalEntry forwards a balanced debit/credit entry. The ledger
// enforces double-entry balance; the bridge does not.
func (b *Bridge) PostJournalEntry(ctx context.Context, entry ledger.JournalEntry) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "accounting", "post_journal_entry")
	defer span.End()
	telemetry.SetAttributes(span, "transaction_identifier", entry.TransactionIdentifier)

	callCtx, cancel := context.WithTimeout(ctx, b.config.CallTimeout)
	defer cancel()

	if err := b.client.PostJournalEntry(callCtx, entry); err != nil {
		telemetry.RecordError(span, err)
		return b.mapUpstreamError(err)
	}
	return nil
}

// PostInstanceTransaction builds and posts the journal entry for a deposit
// (positive amount) or withdrawal (negative amount) against an instance,
// routing any fee to the fee income account. The transaction identifier
// doubles as the idempotency key for safe re-posting.
func (b *Bridge) PostInstanceTransaction(ctx context.Context, instance *deposit.ProductInstance, transactionType string, amount, fee decimal.Decimal, transactionID, message string) error {
	entry := ledger.JournalEntry{
		TransactionIdentifier: transactionID,
		TransactionType:       transactionType,
		TransactionDate:       time.Now(),
		Message:               message,
	}

	if amount.IsPositive() {
		entry.Debtors = []ledger.Posting{
			{AccountIdentifier: b.config.ClearingAccountIdentifier, Amount: amount},
		}
		entry.Creditors = []ledger.Posting{
			{AccountIdentifier: instance.AccountIdentifier, Amount: amount.Sub(fee)},
		}
		if fee.IsPositive() {
			entry.Creditors = append(entry.Creditors,
				ledger.Posting{AccountIdentifier: b.config.FeeIncomeAccount, Amount: fee})
		}
	} else {
		withdrawal := amount.Abs()
		entry.Debtors = []ledger.Posting{
			{AccountIdentifier: instance.AccountIdentifier, Amount: withdrawal.Add(fee)},
		}
		entry.Creditors = []ledger.Posting{
			{AccountIdentifier: b.config.ClearingAccountIdentifier, Amount: withdrawal},
		}
		if fee.IsPositive() {
			entry.Creditors = append(entry.Creditors,
				ledger.Posting{AccountIdentifier: b.config.FeeIncomeAccount, Amount: fee})
		}
	}

	return b.PostJournalEntry(ctx, entry)
}

// PostInterestEntry posts an interest accrual or dividend payout credit to
// the instance, debiting the interest expense account
func (b *Bridge) PostInterestEntry(ctx context.Context, instance *deposit.ProductInstance, transactionType string, amount decimal.Decimal, transactionID, message string) error {
	entry := ledger.JournalEntry{
		TransactionIdentifier: transactionID,
		TransactionType:       transactionType,
		TransactionDate:       time.Now(),
		Message:               message,
		Debtors: []ledger.Posting{
			{AccountIdentifier: b.config.InterestExpenseAccount, Amount: amount},
		},
		Creditors: []ledger.Posting{
			{AccountIdentifier: instance.AccountIdentifier, Amount: amount},
		},
	}
	return b.PostJournalEntry(ctx, entry)
}

// FetchEntries is a read-only passthrough for statement queries
func (b *Bridge) FetchEntries(ctx context.Context, accountIdentifier string, filter ledger.EntryFilter) ([]ledger.AccountEntry, error) {
	callCtx, cancel := context.WithTimeout(ctx, b.config.CallTimeout)
	defer cancel()

	entries, err := b.client.FetchAccountEntries(callCtx, accountIdentifier, filter)
	if err != nil {
		return nil, b.mapUpstreamError(err)
	}
	return entries, nil
}

// mapUpstreamError folds transport failures into the module's error taxonomy.
// Domain errors from the ledger collaborator pass through unchanged.
func (b *Bridge) mapUpstreamError(err error) error {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return shared.NewDomainError(shared.CodeUpstreamTimeout,
			"Ledger did not respond in time")
	}
	return shared.NewDomainError(shared.CodeUpstreamUnavailable,
		fmt.Sprintf("Ledger call failed: %v", err))
}
