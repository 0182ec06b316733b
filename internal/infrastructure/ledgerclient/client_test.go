package ledgerclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/corebank/backend/internal/domain/ledger"
	"github.com/corebank/backend/internal/domain/scheduling"
	"github.com/corebank/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/corebank/backend/internal/infrastructure/config"
)

func newTestClient(serverURL string, timeout time.Duration) *HTTPLedgerClient {
	return NewHTTPLedgerClient(config.LedgerConfig{
		BaseURL:     serverURL,
		CallTimeout: timeout,
	}, zap.NewNop())
}

func TestHTTPLedgerClient_FindLedger(t *testing.T) {
	t.Run("returns the ledger", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/ledgers/9100", r.URL.Path)
			json.NewEncoder(w).Encode(ledger.Ledger{Identifier: "9100", Name: "Customer Deposits"})
		}))
		defer server.Close()

		client := newTestClient(server.URL, time.Second)
		result, err := client.FindLedger(context.Background(), "9100")

		require.NoError(t, err)
		assert.Equal(t, "9100", result.Identifier)
		assert.Equal(t, "Customer Deposits", result.Name)
	})

	t.Run("maps 404 to ledger not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := newTestClient(server.URL, time.Second)
		_, err := client.FindLedger(context.Background(), "9999")

		assert.ErrorIs(t, err, ledger.ErrLedgerNotFound)
	})
}

func TestHTTPLedgerClient_CreateAccount(t *testing.T) {
	t.Run("posts the account spec", func(t *testing.T) {
		var received ledger.AccountSpec
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/accounts", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := newTestClient(server.URL, time.Second)
		err := client.CreateAccount(context.Background(), ledger.AccountSpec{
			Identifier:       "ACC-0001",
			Name:             "Basic Savings",
			LedgerIdentifier: "9100",
			OpeningBalance:   decimal.Zero,
		})

		require.NoError(t, err)
		assert.Equal(t, "ACC-0001", received.Identifier)
		assert.Equal(t, "9100", received.LedgerIdentifier)
	})

	t.Run("maps 409 to already exists", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
		}))
		defer server.Close()

		client := newTestClient(server.URL, time.Second)
		err := client.CreateAccount(context.Background(), ledger.AccountSpec{Identifier: "ACC-0001"})

		assert.True(t, shared.HasCode(err, shared.CodeAlreadyExists))
	})
}

func TestHTTPLedgerClient_PostJournalEntry(t *testing.T) {
	t.Run("posts a balanced entry", func(t *testing.T) {
		var received ledger.JournalEntry
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/journal/entries", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := newTestClient(server.URL, time.Second)
		err := client.PostJournalEntry(context.Background(), ledger.JournalEntry{
			TransactionIdentifier: "cmd:tx-1",
			TransactionType:       "CDPT",
			Debtors:               []ledger.Posting{{AccountIdentifier: "7210", Amount: decimal.NewFromInt(100)}},
			Creditors:             []ledger.Posting{{AccountIdentifier: "ACC-0001", Amount: decimal.NewFromInt(100)}},
		})

		require.NoError(t, err)
		assert.Equal(t, "cmd:tx-1", received.TransactionIdentifier)
		require.Len(t, received.Debtors, 1)
		require.Len(t, received.Creditors, 1)
		assert.True(t, received.Debtors[0].Amount.Equal(received.Creditors[0].Amount))
	})

	t.Run("maps validation rejections with the upstream message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"message": "entry does not balance"})
		}))
		defer server.Close()

		client := newTestClient(server.URL, time.Second)
		err := client.PostJournalEntry(context.Background(), ledger.JournalEntry{})

		assert.True(t, shared.HasCode(err, shared.CodeValidation))
		assert.Contains(t, err.Error(), "entry does not balance")
	})

	t.Run("maps timeouts to upstream timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		client := newTestClient(server.URL, 20*time.Millisecond)
		err := client.PostJournalEntry(context.Background(), ledger.JournalEntry{})

		assert.True(t, shared.HasCode(err, shared.CodeUpstreamTimeout))
	})

	t.Run("maps connection failures to upstream unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // closed before any request

		client := newTestClient(server.URL, time.Second)
		err := client.PostJournalEntry(context.Background(), ledger.JournalEntry{})

		assert.True(t, shared.HasCode(err, shared.CodeUpstreamUnavailable))
	})
}

func TestHTTPLedgerClient_ListAccounts(t *testing.T) {
	t.Run("passes paging parameters", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/ledgers/9100/accounts", r.URL.Path)
			assert.Equal(t, "2", r.URL.Query().Get("page"))
			assert.Equal(t, "50", r.URL.Query().Get("size"))
			json.NewEncoder(w).Encode(ledger.AccountPage{
				Accounts:      []ledger.Account{{Identifier: "ACC-0001", LedgerIdentifier: "9100"}},
				TotalElements: 51,
				TotalPages:    2,
			})
		}))
		defer server.Close()

		client := newTestClient(server.URL, time.Second)
		page, err := client.ListAccounts(context.Background(), "9100", 2, 50)

		require.NoError(t, err)
		assert.Equal(t, int64(51), page.TotalElements)
		require.Len(t, page.Accounts, 1)
		assert.Equal(t, "ACC-0001", page.Accounts[0].Identifier)
	})
}

func TestHTTPLedgerClient_FetchAccountEntries(t *testing.T) {
	t.Run("bounds the query by date range", func(t *testing.T) {
		from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/accounts/ACC-0001/entries", r.URL.Path)
			assert.Equal(t, from.Format(time.RFC3339), r.URL.Query().Get("date_range_start"))
			assert.Equal(t, to.Format(time.RFC3339), r.URL.Query().Get("date_range_end"))
			assert.Equal(t, "ASC", r.URL.Query().Get("direction"))
			json.NewEncoder(w).Encode([]ledger.AccountEntry{
				{Type: "CDPT", Amount: decimal.NewFromInt(100), Balance: decimal.NewFromInt(100)},
			})
		}))
		defer server.Close()

		client := newTestClient(server.URL, time.Second)
		entries, err := client.FetchAccountEntries(context.Background(), "ACC-0001", ledger.EntryFilter{
			From:      &from,
			To:        &to,
			Ascending: true,
		})

		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "CDPT", entries[0].Type)
	})
}

func TestHTTPBeatClient_EnsureBeat(t *testing.T) {
	t.Run("registers the beat", func(t *testing.T) {
		var received scheduling.Beat
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/apps/deposits-backend/beats", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := NewHTTPBeatClient(server.URL, server.Client(), zap.NewNop())
		err := client.EnsureBeat(context.Background(), scheduling.Beat{
			OwnerApp:      "deposits-backend",
			Identifier:    "daily-accrual",
			AlignmentHour: 0,
		})

		require.NoError(t, err)
		assert.Equal(t, "daily-accrual", received.Identifier)
	})

	t.Run("treats an existing beat as success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
		}))
		defer server.Close()

		client := NewHTTPBeatClient(server.URL, server.Client(), zap.NewNop())
		err := client.EnsureBeat(context.Background(), scheduling.Beat{
			OwnerApp:   "deposits-backend",
			Identifier: "daily-accrual",
		})

		assert.NoError(t, err)
	})
}
