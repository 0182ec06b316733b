package ledgerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/corebank/backend/internal/domain/scheduling"
	"github.com/corebank/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// HTTPBeatClient registers recurring beats with the external scheduler over
// its REST API
type HTTPBeatClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPBeatClient creates a beat client for the scheduler at baseURL,
// sharing the ledger stack's timeout settings
func NewHTTPBeatClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *HTTPBeatClient {
	return &HTTPBeatClient{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// EnsureBeat registers the beat if it is not already known. A conflict from
// the scheduler means the beat exists and is treated as success.
func (c *HTTPBeatClient) EnsureBeat(ctx context.Context, beat scheduling.Beat) error {
	body, err := json.Marshal(beat)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/apps/"+beat.OwnerApp+"/beats", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return shared.ErrUpstreamUnavailable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusConflict:
		c.logger.Debug("Beat already registered", zap.String("identifier", beat.Identifier))
		return nil
	default:
		c.logger.Warn("Beat registration rejected",
			zap.String("identifier", beat.Identifier),
			zap.Int("status", resp.StatusCode))
		return shared.ErrUpstreamUnavailable
	}
}

// Ensure HTTPBeatClient implements scheduling.BeatClient
var _ scheduling.BeatClient = (*HTTPBeatClient)(nil)
