package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/imthebreezy247/gmail-mcp/internal/instrumentation"
	"github.com/imthebreezy247/gmail-mcp/internal/logging"
)

// Sentinel errors reported when no usable session can be produced.
// Callers map these onto their own error taxonomy.
var (
	// ErrAuthRequired means no credential exists (or it is terminally
	// expired) and an interactive grant must run first.
	ErrAuthRequired = errors.New("authorization required: run the auth command to grant Gmail access")

	// ErrAuthExpired means a refresh was attempted and rejected; the stored
	// refresh token is no longer honored and a new grant must run.
	ErrAuthExpired = errors.New("authorization expired: refresh rejected, run the auth command to re-grant Gmail access")
)

// Manager owns the mutable session credential for one account. All token
// acquisition, refresh, and interactive exchange is serialized through one
// mutex, so concurrent API calls against an expired token trigger exactly
// one refresh.
//
// Manager implements oauth2.TokenSource; hand it to the Gmail service via
// option.WithTokenSource so every call re-validates the session.
type Manager struct {
	conf    *oauth2.Config
	store   Store
	grant   CodeSource
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	// now is replaceable in tests.
	now func() time.Time

	mu            sync.Mutex
	token         *oauth2.Token
	loaded        bool
	grantRequired bool
}

// NewManager creates a credential manager bound to one client configuration
// and one credential store. grant may be nil when the process never runs
// interactive authorization (the serve path).
func NewManager(conf *oauth2.Config, store Store, grant CodeSource, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		conf:   conf,
		store:  store,
		grant:  grant,
		logger: logger,
		now:    time.Now,
	}
}

// SetMetrics installs the recorder for refresh and grant outcomes. Call it
// before the manager is shared; a nil recorder drops the measurements.
func (m *Manager) SetMetrics(metrics *instrumentation.Metrics) {
	m.metrics = metrics
}

func (m *Manager) recordRefresh(ctx context.Context, result string) {
	if m.metrics != nil {
		m.metrics.RecordTokenRefresh(ctx, result)
	}
}

func (m *Manager) recordGrant(ctx context.Context, result string) {
	if m.metrics != nil {
		m.metrics.RecordAuthGrant(ctx, result)
	}
}

// State reports the current session state without mutating it, except for
// the initial lazy load from the store.
func (m *Manager) State(ctx context.Context) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadLocked(ctx); err != nil {
		return StateNoCredential
	}
	return m.stateLocked()
}

func (m *Manager) stateLocked() State {
	if m.grantRequired {
		return StateAwaitingGrant
	}
	return Classify(m.token, m.now())
}

// loadLocked populates the in-memory token from the store exactly once.
// A missing credential is not an error here; it classifies as NoCredential.
func (m *Manager) loadLocked(ctx context.Context) error {
	if m.loaded {
		return nil
	}
	tok, err := m.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoCredential) {
			m.token = nil
			m.loaded = true
			return nil
		}
		return fmt.Errorf("failed to load stored credential: %w", err)
	}
	m.token = tok
	m.loaded = true
	m.logger.Debug("loaded stored credential",
		logging.State(Classify(tok, m.now())))
	return nil
}

// EnsureSession brings the session to the valid state or reports why it
// cannot. It is idempotent: a valid session passes through with no I/O, an
// expired refreshable session triggers exactly one refresh, anything else
// returns ErrAuthRequired or ErrAuthExpired.
func (m *Manager) EnsureSession(ctx context.Context) error {
	_, err := m.sessionToken(ctx)
	return err
}

// Token implements oauth2.TokenSource. The oauth2 transport calls this on
// every request, which funnels all acquisition through the session lock.
func (m *Manager) Token() (*oauth2.Token, error) {
	return m.sessionToken(context.Background())
}

func (m *Manager) sessionToken(ctx context.Context) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.loadLocked(ctx); err != nil {
		return nil, err
	}

	switch m.stateLocked() {
	case StateValid:
		return m.token, nil
	case StateExpiredRefreshable:
		return m.refreshLocked(ctx)
	case StateNoCredential, StateExpiredTerminal, StateAwaitingGrant:
		return nil, ErrAuthRequired
	default:
		return nil, ErrAuthRequired
	}
}

// refreshLocked exchanges the refresh token for a fresh access token and
// persists the result. A rejected refresh moves the session to the
// awaiting-grant state; it is not retried until a new grant completes.
func (m *Manager) refreshLocked(ctx context.Context) (*oauth2.Token, error) {
	m.logger.Debug("refreshing access token",
		logging.Operation("token_refresh"))

	fresh, err := m.conf.TokenSource(ctx, m.token).Token()
	if err != nil {
		m.grantRequired = true
		m.recordRefresh(ctx, instrumentation.ResultFailure)
		m.logger.Warn("token refresh rejected",
			logging.Operation("token_refresh"),
			logging.Status(logging.StatusError),
			logging.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrAuthExpired, err)
	}

	// Google omits the refresh token on refresh responses; carry the old
	// one forward so the session stays recoverable.
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = m.token.RefreshToken
	}

	m.token = fresh
	m.persistLocked(ctx)
	m.recordRefresh(ctx, instrumentation.ResultSuccess)
	m.logger.Info("access token refreshed",
		logging.Operation("token_refresh"),
		logging.Status(logging.StatusSuccess))
	return m.token, nil
}

// persistLocked saves the current token. Persistence failure degrades to a
// warning: the in-memory session stays usable, durability resumes on the
// next successful save.
func (m *Manager) persistLocked(ctx context.Context) {
	if err := m.store.Save(ctx, m.token); err != nil {
		m.logger.Warn("failed to persist credential, session continues in memory",
			logging.Operation("token_persist"),
			logging.Err(err))
	}
}

// Authorize runs the interactive authorization-code grant: obtain a code
// through the configured CodeSource, exchange it, and persist the resulting
// credential. It serializes with refresh through the same lock.
func (m *Manager) Authorize(ctx context.Context) error {
	if m.grant == nil {
		return fmt.Errorf("no authorization flow configured")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	code, redirectURI, err := m.grant.ObtainCode(ctx, m.conf)
	if err != nil {
		m.recordGrant(ctx, instrumentation.ResultFailure)
		return fmt.Errorf("authorization grant failed: %w", err)
	}

	ex := *m.conf
	ex.RedirectURL = redirectURI
	tok, err := ex.Exchange(ctx, code)
	if err != nil {
		m.recordGrant(ctx, instrumentation.ResultFailure)
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	m.token = tok
	m.loaded = true
	m.grantRequired = false
	m.persistLocked(ctx)
	m.recordGrant(ctx, instrumentation.ResultSuccess)

	m.logger.Info("authorization complete",
		logging.Operation("authorize"),
		logging.State(StateValid))
	return nil
}
