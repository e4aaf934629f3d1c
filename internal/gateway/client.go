package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/imthebreezy247/gmail-mcp/internal/auth"
	"github.com/imthebreezy247/gmail-mcp/internal/instrumentation"
	"github.com/imthebreezy247/gmail-mcp/internal/logging"
)

const (
	// userID addresses the authenticated mailbox in every API call.
	userID = "me"

	// defaultRateLimit paces outgoing API calls. Gmail's per-user quota is
	// 250 units/s; staying well under it leaves headroom for bursty tools.
	defaultRateLimit = rate.Limit(10)
	defaultBurst     = 5
)

// Config assembles a Client.
type Config struct {
	// Auth owns the session credential. Required.
	Auth *auth.Manager

	// Account labels this mailbox in logs for multi-account setups.
	Account string

	Logger *slog.Logger

	// RateLimit and Burst override the default API pacing when > 0.
	RateLimit rate.Limit
	Burst     int

	// Metrics records operation outcomes. Optional; nil drops them.
	Metrics *instrumentation.Metrics

	// ClientOptions replace the default token-source wiring. Tests point
	// this at a local HTTP fake.
	ClientOptions []option.ClientOption
}

// Client executes mailbox operations for one account.
type Client struct {
	svc     *gmail.Service
	auth    *auth.Manager
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	account string

	selfMu sync.Mutex
	self   string
}

// New builds the Gmail service around the credential manager. The manager
// is installed as the token source, so every request revalidates the
// session through the credential lock.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Auth == nil {
		return nil, fmt.Errorf("auth manager is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limit := cfg.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}

	opts := cfg.ClientOptions
	if opts == nil {
		opts = []option.ClientOption{option.WithTokenSource(cfg.Auth)}
	}

	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{
		svc:     svc,
		auth:    cfg.Auth,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
		metrics: cfg.Metrics,
		account: cfg.Account,
	}, nil
}

// Account returns the label this client was configured with.
func (c *Client) Account() string {
	return c.account
}

// AuthState reports the current credential state for diagnostics.
func (c *Client) AuthState(ctx context.Context) auth.State {
	return c.auth.State(ctx)
}

// ensure gates every operation: wait for a rate-limit slot, then make sure
// the session is usable. Auth failures surface before any API traffic.
func (c *Client) ensure(ctx context.Context, op string) *Error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Kind: KindRemoteUnavailable, Op: op, Err: err}
	}
	if err := c.auth.EnsureSession(ctx); err != nil {
		return mapRemoteError(op, "", err)
	}
	return nil
}

// observe records the operation outcome. Call deferred with the
// operation's final error.
func (c *Client) observe(ctx context.Context, op string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	status := instrumentation.StatusSuccess
	kind := ""
	if err != nil {
		status = instrumentation.StatusError
		kind = KindOf(err).String()
	}
	c.metrics.RecordGatewayOperation(ctx, op, status, kind, time.Since(start))
}

// selfEmail returns the authenticated address, cached after the first
// profile lookup. Best effort: on failure it returns empty and Gmail
// stamps the From header server-side.
func (c *Client) selfEmail(ctx context.Context) string {
	c.selfMu.Lock()
	defer c.selfMu.Unlock()
	if c.self != "" {
		return c.self
	}
	p, err := c.svc.Users.GetProfile(userID).Context(ctx).Do()
	if err != nil {
		return ""
	}
	c.self = p.EmailAddress
	return c.self
}

// Profile is the mailbox summary returned by GetProfile.
type Profile struct {
	EmailAddress  string `json:"emailAddress"`
	MessagesTotal int64  `json:"messagesTotal"`
	ThreadsTotal  int64  `json:"threadsTotal"`
	HistoryID     uint64 `json:"historyId"`
}

// GetProfile fetches the mailbox profile of the authenticated account.
func (c *Client) GetProfile(ctx context.Context) (profile *Profile, err error) {
	const op = "get_profile"
	defer func(start time.Time) { c.observe(ctx, op, start, err) }(time.Now())

	if err := c.ensure(ctx, op); err != nil {
		return nil, err
	}

	p, err := c.svc.Users.GetProfile(userID).Context(ctx).Do()
	if err != nil {
		return nil, mapRemoteError(op, "", err)
	}

	c.selfMu.Lock()
	c.self = p.EmailAddress
	c.selfMu.Unlock()

	c.logger.Debug("fetched mailbox profile",
		logging.Operation(op),
		logging.Account(c.account),
		logging.UserHash(p.EmailAddress))

	return &Profile{
		EmailAddress:  p.EmailAddress,
		MessagesTotal: p.MessagesTotal,
		ThreadsTotal:  p.ThreadsTotal,
		HistoryID:     p.HistoryId,
	}, nil
}
