package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/imthebreezy247/gmail-mcp/internal/auth"
	"github.com/imthebreezy247/gmail-mcp/internal/gateway"
	"github.com/imthebreezy247/gmail-mcp/internal/instrumentation"
	"github.com/imthebreezy247/gmail-mcp/internal/logging"
	"github.com/imthebreezy247/gmail-mcp/internal/webhook"
)

// DefaultAccount names the mailbox used when a tool call does not select
// one explicitly.
const DefaultAccount = "default"

// Config assembles a ServerContext.
type Config struct {
	// CredentialsFile is the OAuth client-secret JSON from the Google
	// Cloud Console. Required; its absence is fatal at startup.
	CredentialsFile string

	// TokenDir holds the per-account token files.
	TokenDir string

	// ReadOnly blocks every tool that mutates the mailbox.
	ReadOnly bool

	// MaxConcurrent bounds parallel tool executions; <= 0 uses the default.
	MaxConcurrent int64

	// RateLimit and Burst pace gateway API calls; zero values use the
	// gateway defaults.
	RateLimit rate.Limit
	Burst     int

	// WebhookBaseURL is the n8n base URL; empty disables workflow tools
	// until configured.
	WebhookBaseURL string

	Logger   *slog.Logger
	Provider *instrumentation.Provider
}

// ServerContext holds the shared state of a running MCP server: one
// gateway client per account, created lazily and cached.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg       Config
	oauthConf *oauth2.Config
	logger    *slog.Logger
	provider  *instrumentation.Provider
	pool      *Pool
	webhook   *webhook.Client

	mu       sync.RWMutex
	clients  map[string]*gateway.Client
	shutdown bool
}

// NewServerContext loads the OAuth client configuration and prepares the
// shared runtime state. Gateway clients are not created yet; each account
// gets one on first use.
func NewServerContext(ctx context.Context, cfg Config) (*ServerContext, error) {
	oauthConf, err := auth.LoadClientConfig(cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	provider := cfg.Provider
	if provider == nil {
		provider, err = instrumentation.NewProvider(ctx, instrumentation.Config{Enabled: false})
		if err != nil {
			return nil, fmt.Errorf("failed to create no-op instrumentation provider: %w", err)
		}
	}

	if cfg.TokenDir == "" {
		cfg.TokenDir = "."
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:       shutdownCtx,
		cancel:    cancel,
		cfg:       cfg,
		oauthConf: oauthConf,
		logger:    logger,
		provider:  provider,
		pool:      NewPool(cfg.MaxConcurrent),
		webhook: webhook.New(webhook.Config{
			BaseURL: cfg.WebhookBaseURL,
			Logger:  logger,
		}),
		clients: make(map[string]*gateway.Client),
	}, nil
}

// Context returns the server lifetime context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Metrics returns the metrics recorder.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.provider.Metrics()
}

// Provider returns the instrumentation provider.
func (sc *ServerContext) Provider() *instrumentation.Provider {
	return sc.provider
}

// Pool returns the tool worker pool.
func (sc *ServerContext) Pool() *Pool {
	return sc.pool
}

// WebhookClient returns the workflow webhook client.
func (sc *ServerContext) WebhookClient() *webhook.Client {
	return sc.webhook
}

// ReadOnly reports whether mutating tools are blocked.
func (sc *ServerContext) ReadOnly() bool {
	return sc.cfg.ReadOnly
}

// TokenPath returns the token file for an account. The default account
// keeps the historical bare name so existing sessions survive upgrades.
func (sc *ServerContext) TokenPath(account string) string {
	if account == "" || account == DefaultAccount {
		return filepath.Join(sc.cfg.TokenDir, "token.json")
	}
	return filepath.Join(sc.cfg.TokenDir, fmt.Sprintf("token_%s.json", account))
}

// HasToken reports whether a stored credential exists for the account.
func (sc *ServerContext) HasToken(account string) bool {
	_, err := os.Stat(sc.TokenPath(account))
	return err == nil
}

// Gateway returns the gateway client for the default account.
func (sc *ServerContext) Gateway() (*gateway.Client, error) {
	return sc.GatewayForAccount(DefaultAccount)
}

// GatewayForAccount returns the gateway client for an account, creating
// and caching it on first use. Creation succeeds even without a stored
// credential; operations then fail with the auth-required kind until a
// grant runs.
func (sc *ServerContext) GatewayForAccount(account string) (*gateway.Client, error) {
	if account == "" {
		account = DefaultAccount
	}

	sc.mu.RLock()
	client, ok := sc.clients[account]
	shutdown := sc.shutdown
	sc.mu.RUnlock()
	if ok {
		return client, nil
	}
	if shutdown {
		return nil, fmt.Errorf("server is shutting down")
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if client, ok := sc.clients[account]; ok {
		return client, nil
	}

	mgr := auth.NewManager(sc.oauthConf, auth.NewFileStore(sc.TokenPath(account)), nil, sc.logger)
	mgr.SetMetrics(sc.provider.Metrics())
	client, err := gateway.New(sc.ctx, gateway.Config{
		Auth:      mgr,
		Account:   account,
		Logger:    sc.logger,
		RateLimit: sc.cfg.RateLimit,
		Burst:     sc.cfg.Burst,
		Metrics:   sc.provider.Metrics(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway for account %s: %w", account, err)
	}

	sc.clients[account] = client
	sc.logger.Debug("gateway client created",
		logging.Account(account))
	return client, nil
}

// IsShutdown reports whether Shutdown has been called.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context and marks the registry closed.
func (sc *ServerContext) Shutdown() {
	sc.mu.Lock()
	sc.shutdown = true
	sc.mu.Unlock()
	sc.cancel()
}
