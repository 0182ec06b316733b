package ledgerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/corebank/backend/internal/domain/ledger"
	"github.com/corebank/backend/internal/domain/shared"
	"github.com/corebank/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// maxResponseSize is the maximum allowed response size from the ledger (10MB)
const maxResponseSize = 10 * 1024 * 1024

// HTTPLedgerClient implements ledger.Client against the external
// double-entry ledger's REST API
type HTTPLedgerClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPLedgerClient creates a ledger client from configuration
func NewHTTPLedgerClient(cfg config.LedgerConfig, logger *zap.Logger) *HTTPLedgerClient {
	return &HTTPLedgerClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.CallTimeout,
		},
		logger: logger,
	}
}

// errorBody is the ledger's error response shape
type errorBody struct {
	Message string `json:"message"`
}

// FindLedger fetches a ledger by identifier
func (c *HTTPLedgerClient) FindLedger(ctx context.Context, identifier string) (*ledger.Ledger, error) {
	var result ledger.Ledger
	err := c.getJSON(ctx, "/ledgers/"+url.PathEscape(identifier), ledger.ErrLedgerNotFound, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateAccount creates an account in the ledger
func (c *HTTPLedgerClient) CreateAccount(ctx context.Context, spec ledger.AccountSpec) error {
	return c.send(ctx, http.MethodPost, "/accounts", spec, nil)
}

// FindAccount fetches an account by its primary identifier
func (c *HTTPLedgerClient) FindAccount(ctx context.Context, identifier string) (*ledger.Account, error) {
	var result ledger.Account
	err := c.getJSON(ctx, "/accounts/"+url.PathEscape(identifier), ledger.ErrAccountNotFound, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListAccounts returns one page of accounts for a ledger
func (c *HTTPLedgerClient) ListAccounts(ctx context.Context, ledgerIdentifier string, page, size int) (*ledger.AccountPage, error) {
	path := "/ledgers/" + url.PathEscape(ledgerIdentifier) + "/accounts" +
		"?page=" + strconv.Itoa(page) + "&size=" + strconv.Itoa(size)
	var result ledger.AccountPage
	if err := c.getJSON(ctx, path, ledger.ErrLedgerNotFound, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ModifyAccount applies a patch to an existing account
func (c *HTTPLedgerClient) ModifyAccount(ctx context.Context, identifier string, patch ledger.AccountPatch) error {
	return c.send(ctx, http.MethodPut, "/accounts/"+url.PathEscape(identifier), patch, ledger.ErrAccountNotFound)
}

// FetchAccountEntries returns the movements on an account within the filter's
// date range
func (c *HTTPLedgerClient) FetchAccountEntries(ctx context.Context, identifier string, filter ledger.EntryFilter) ([]ledger.AccountEntry, error) {
	query := url.Values{}
	if filter.From != nil {
		query.Set("date_range_start", filter.From.UTC().Format(time.RFC3339))
	}
	if filter.To != nil {
		query.Set("date_range_end", filter.To.UTC().Format(time.RFC3339))
	}
	if filter.Ascending {
		query.Set("direction", "ASC")
	} else {
		query.Set("direction", "DESC")
	}

	path := "/accounts/" + url.PathEscape(identifier) + "/entries?" + query.Encode()
	var result []ledger.AccountEntry
	if err := c.getJSON(ctx, path, ledger.ErrAccountNotFound, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// PostJournalEntry forwards a balanced entry for posting
func (c *HTTPLedgerClient) PostJournalEntry(ctx context.Context, entry ledger.JournalEntry) error {
	return c.send(ctx, http.MethodPost, "/journal/entries", entry, nil)
}

// getJSON performs a GET and decodes the response body into out
func (c *HTTPLedgerClient) getJSON(ctx context.Context, path string, notFound error, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return notFound
	}
	if resp.StatusCode >= 400 {
		return c.statusError(resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return shared.ErrUpstreamUnavailable
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding ledger response: %w", err)
	}
	return nil
}

// send performs a JSON-body request that carries no meaningful response body
func (c *HTTPLedgerClient) send(ctx context.Context, method, path string, payload interface{}, notFound error) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.classifyTransportError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound && notFound != nil:
		return notFound
	case resp.StatusCode == http.StatusConflict:
		return shared.ErrAlreadyExists
	default:
		return c.statusError(resp)
	}
}

// classifyTransportError maps transport failures onto the upstream error codes
func (c *HTTPLedgerClient) classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		c.logger.Warn("Ledger call timed out", zap.Error(err))
		return shared.ErrUpstreamTimeout
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	c.logger.Warn("Ledger unreachable", zap.Error(err))
	return shared.ErrUpstreamUnavailable
}

// statusError maps non-2xx responses onto domain errors
func (c *HTTPLedgerClient) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	var parsed errorBody
	_ = json.Unmarshal(body, &parsed)

	if resp.StatusCode == http.StatusBadRequest {
		if parsed.Message != "" {
			return shared.NewValidationError(parsed.Message)
		}
		return shared.ErrValidation
	}

	c.logger.Warn("Ledger returned error status",
		zap.Int("status", resp.StatusCode),
		zap.String("message", parsed.Message))
	return shared.ErrUpstreamUnavailable
}

// Ensure HTTPLedgerClient implements ledger.Client
var _ ledger.Client = (*HTTPLedgerClient)(nil)
