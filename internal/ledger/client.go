// Package ledger is the HTTP client for the belt ledger backend. All calls
// carry the configured Basic credentials.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/vanshika/beltledger/internal/config"
	"github.com/vanshika/beltledger/internal/logging"
	"github.com/vanshika/beltledger/internal/metrics"
)

// ErrMissingBaseURL indicates the backend location is not configured.
var ErrMissingBaseURL = errors.New("ledger base URL is required")

// UpstreamError is a non-2xx answer from the backend, kept with its body.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("ledger %s: HTTP %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("ledger %s: HTTP %d: %s", e.Endpoint, e.StatusCode, body)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream) && upstream.StatusCode == http.StatusNotFound
}

// Client talks to the ledger backend.
type Client struct {
	http    *resty.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New builds a Client from configuration. m may be nil.
func New(cfg config.LedgerConfig, logger *slog.Logger, m *metrics.Metrics) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "ledger")

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetLogger(logging.RestyAdapter(logger))
	if cfg.Username != "" || cfg.Password != "" {
		httpClient.SetBasicAuth(cfg.Username, cfg.Password)
	}
	if cfg.Timeout > 0 {
		httpClient.SetTimeout(cfg.Timeout)
	}

	return &Client{http: httpClient, logger: logger, metrics: m}, nil
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx)
}

// check records the call and turns transport failures and non-2xx answers into errors.
func (c *Client) check(endpoint string, resp *resty.Response, err error) error {
	if err != nil {
		c.metrics.ObserveUpstream(endpoint, 0)
		return fmt.Errorf("ledger %s: %w", endpoint, err)
	}
	c.metrics.ObserveUpstream(endpoint, resp.StatusCode())
	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		c.logger.Debug("ledger request failed", "endpoint", endpoint, "status", resp.StatusCode())
		return &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}
