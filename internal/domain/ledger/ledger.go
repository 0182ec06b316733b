package ledger

import (
	"context"
	"time"

	"github.com/corebank/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Collaborator-level sentinels. The accounting bridge maps these onto the
// module's error taxonomy before they reach a caller.
var (
	ErrLedgerNotFound  = shared.NewDomainError(shared.CodeNotFound, "Ledger not found")
	ErrAccountNotFound = shared.NewDomainError(shared.CodeNotFound, "Ledger account not found")
)

// Ledger is a top-level ledger (e.g. the equity ledger a product posts into)
type Ledger struct {
	Identifier  string `json:"identifier"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
}

// Account is a ledger account as the external service represents it
type Account struct {
	Identifier              string          `json:"identifier"`
	Name                    string          `json:"name"`
	LedgerIdentifier        string          `json:"ledger_identifier"`
	HolderIdentifier        string          `json:"holder_identifier,omitempty"`
	AlternativeAccountNum   string          `json:"alternative_account_number,omitempty"`
	Balance                 decimal.Decimal `json:"balance"`
	State                   string          `json:"state,omitempty"`
	ReferenceAccountNumbers []string        `json:"reference_account_numbers,omitempty"`
}

// AccountSpec describes an account to be created in the ledger
type AccountSpec struct {
	Identifier            string          `json:"identifier"`
	Name                  string          `json:"name"`
	LedgerIdentifier      string          `json:"ledger_identifier"`
	HolderIdentifier      string          `json:"holder_identifier,omitempty"`
	AlternativeAccountNum string          `json:"alternative_account_number,omitempty"`
	OpeningBalance        decimal.Decimal `json:"opening_balance"`
}

// AccountPatch carries the mutable fields of an existing account
type AccountPatch struct {
	Name                  *string `json:"name,omitempty"`
	AlternativeAccountNum *string `json:"alternative_account_number,omitempty"`
	State                 *string `json:"state,omitempty"`
}

// Posting is one debit or credit leg of a journal entry
type Posting struct {
	AccountIdentifier string          `json:"account_identifier"`
	Amount            decimal.Decimal `json:"amount"`
}

// JournalEntry is a balanced double-entry posting. The ledger enforces that
// debtors and creditors balance; callers only construct the legs.
type JournalEntry struct {
	TransactionIdentifier string    `json:"transaction_identifier"`
	TransactionType       string    `json:"transaction_type"`
	TransactionDate       time.Time `json:"transaction_date"`
	Message               string    `json:"message,omitempty"`
	Debtors               []Posting `json:"debtors"`
	Creditors             []Posting `json:"creditors"`
}

// AccountEntry is a single movement on an account, as returned by statement
// queries
type AccountEntry struct {
	TransactionDate time.Time       `json:"transaction_date"`
	Type            string          `json:"type"`
	Message         string          `json:"message,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Balance         decimal.Decimal `json:"balance"`
}

// EntryFilter bounds a statement query
type EntryFilter struct {
	From      *time.Time
	To        *time.Time
	Ascending bool
}

// AccountPage is one page of an account listing
type AccountPage struct {
	Accounts      []Account `json:"accounts"`
	TotalElements int64     `json:"total_elements"`
	TotalPages    int       `json:"total_pages"`
}

// Client is the capability interface onto the external ledger service.
// Implementations carry their own transport concerns; callers rely on the
// passed context for cancellation and deadlines.
type Client interface {
	// FindLedger fetches a ledger by identifier, failing with
	// ErrLedgerNotFound when absent
	FindLedger(ctx context.Context, identifier string) (*Ledger, error)

	// CreateAccount creates an account in the ledger
	CreateAccount(ctx context.Context, spec AccountSpec) error

	// FindAccount fetches an account by its primary identifier, failing
	// with ErrAccountNotFound when absent
	FindAccount(ctx context.Context, identifier string) (*Account, error)

	// ListAccounts returns one page of accounts for a ledger
	ListAccounts(ctx context.Context, ledgerIdentifier string, page, size int) (*AccountPage, error)

	// ModifyAccount applies a patch to an existing account
	ModifyAccount(ctx context.Context, identifier string, patch AccountPatch) error

	// FetchAccountEntries returns the movements on an account within the
	// filter's date range
	FetchAccountEntries(ctx context.Context, identifier string, filter EntryFilter) ([]AccountEntry, error)

	// PostJournalEntry forwards a balanced entry for posting
	PostJournalEntry(ctx context.Context, entry JournalEntry) error
}
