// Package webhook delivers workflow-trigger payloads to an n8n instance
// over HTTP.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/imthebreezy247/gmail-mcp/internal/logging"
)

// EnvBaseURL names the environment variable carrying the n8n webhook base
// URL. Validation is deferred to first use so serving mail tools never
// depends on webhook configuration.
const EnvBaseURL = "N8N_WEBHOOK_BASE_URL"

const defaultTimeout = 30 * time.Second

// Client posts workflow triggers to a configured base URL.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Config assembles a webhook client.
type Config struct {
	// BaseURL is the n8n instance root the workflow paths append to.
	// May be empty; Trigger then fails with a configuration error.
	BaseURL string

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// New creates a webhook client. An empty base URL is accepted here and
// rejected on the first Trigger call.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    httpClient,
		logger:  logger,
	}
}

// Result reports a delivered trigger.
type Result struct {
	URL        string `json:"url"`
	StatusCode int    `json:"statusCode"`
}

// Trigger POSTs the payload as JSON to the workflow path under the base
// URL. Non-2xx responses are errors; the response body is read only to
// drain the connection.
func (c *Client) Trigger(ctx context.Context, path string, payload map[string]any) (*Result, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("webhook base URL is not configured (set %s)", EnvBaseURL)
	}
	if path == "" {
		return nil, fmt.Errorf("workflow path is required")
	}
	if _, err := url.ParseRequestURI(c.baseURL); err != nil {
		return nil, fmt.Errorf("invalid webhook base URL %q: %w", c.baseURL, err)
	}

	target := strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("webhook rejected",
			logging.Operation("workflow_trigger"),
			logging.Status(logging.StatusError))
		return nil, fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}

	c.logger.Info("workflow triggered",
		logging.Operation("workflow_trigger"),
		logging.Status(logging.StatusSuccess))

	return &Result{URL: target, StatusCode: resp.StatusCode}, nil
}
