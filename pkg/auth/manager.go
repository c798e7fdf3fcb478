package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/chronoagent/authctl/pkg/store"
)

// DefaultScopes requests a refresh token alongside calendar access.
var DefaultScopes = []string{"offline_access", "Calendars.ReadWrite"}

const defaultHTTPTimeout = 30 * time.Second

// Record names inside the store. One store holds at most one credential
// set and one pending flow.
const (
	recordAccessToken  = "access_token"
	recordRefreshToken = "refresh_token"
	recordPendingFlow  = "pending_flow"
)

// ErrNoPendingLogin is returned by CheckPendingLogin when no flow has been
// started.
var ErrNoPendingLogin = errors.New("no login in progress")

// Options configures a Manager. ClientID is required; everything else has
// a usable default.
type Options struct {
	ClientID string
	// Tenant selects the Entra ID authority when Issuer and Endpoints are
	// unset. Defaults to "common".
	Tenant string
	// Issuer enables OIDC discovery of the endpoints for non-Microsoft
	// providers.
	Issuer string
	// Endpoints overrides endpoint resolution entirely.
	Endpoints *Endpoints
	Scopes    []string
	Store     store.Store
	// HTTPClient lets tests and callers with special transport needs
	// substitute the client used for all authorization server calls.
	HTTPClient *http.Client
	Timeout    time.Duration
	Skew       time.Duration
	Logger     *zap.Logger
}

// Manager coordinates the device flow, token validation, refresh, and the
// persistence store behind one idempotent entry point. It holds no flow
// state in memory; every call reconstructs the current state from the
// store.
type Manager struct {
	clientID   string
	tenant     string
	issuer     string
	endpoints  *Endpoints
	scopes     []string
	store      store.Store
	rest       *resty.Client
	httpClient *http.Client
	skew       time.Duration
	log        *zap.Logger
}

func NewManager(opts Options) (*Manager, error) {
	if strings.TrimSpace(opts.ClientID) == "" {
		return nil, &ConfigError{Reason: "client-id is required"}
	}
	scopes := opts.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	persistence := opts.Store
	if persistence == nil {
		persistence = store.NewFileStore(".")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	skew := opts.Skew
	if skew <= 0 {
		skew = DefaultExpirySkew
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Manager{
		clientID:   opts.ClientID,
		tenant:     opts.Tenant,
		issuer:     opts.Issuer,
		endpoints:  opts.Endpoints,
		scopes:     scopes,
		store:      persistence,
		rest:       resty.NewWithClient(httpClient),
		httpClient: httpClient,
		skew:       skew,
		log:        log,
	}, nil
}

// GetValidAccessToken returns an access token that is locally valid, or
// *AuthRequired when a human must complete the verification step first.
// States are tried in priority order: a usable cached token (no network),
// a refresh, one poll of a pending flow, and finally a brand-new flow.
// The call never blocks waiting for the user.
func (m *Manager) GetValidAccessToken(ctx context.Context) (string, error) {
	if access, ok := m.readRecord(recordAccessToken); ok && Usable(access, m.skew) {
		m.log.Debug("cached access token is still valid")
		return access, nil
	}
	if refresh, ok := m.readRecord(recordRefreshToken); ok {
		access, err := m.refreshTokens(ctx, refresh)
		if err != nil {
			return "", err
		}
		if access != "" {
			return access, nil
		}
		// Refresh was rejected and both tokens are cleared; a fresh
		// flow is the only way forward.
	}
	if flow, ok := m.readPendingFlow(); ok {
		if flow.Expired(time.Now()) {
			m.log.Debug("pending login expired", zap.Time("expiresAt", flow.ExpiresAt))
			if err := m.clearPendingFlow(); err != nil {
				return "", err
			}
		} else {
			result, err := m.pollFlow(ctx, flow)
			if err != nil {
				return "", err
			}
			switch result.Status {
			case PollCompleted:
				return result.AccessToken, nil
			case PollPending:
				return "", flow.authRequired(result.NextPollInSeconds)
			default:
				// Declined, expired, or a provider error; the pending
				// state is already cleared, start over below.
			}
		}
	}
	flow, err := m.startFlow(ctx)
	if err != nil {
		return "", err
	}
	return "", flow.authRequired(flow.IntervalSeconds)
}

// StartLogin begins a fresh device-code authorization, replacing any
// pending one, and returns the data the caller needs to prompt the user.
func (m *Manager) StartLogin(ctx context.Context) (*PendingFlow, error) {
	return m.startFlow(ctx)
}

// CheckPendingLogin performs a single poll of the persisted pending flow.
// There is no retry loop; a pending result tells the caller when to try
// again.
func (m *Manager) CheckPendingLogin(ctx context.Context) (*PollResult, error) {
	flow, ok := m.readPendingFlow()
	if !ok {
		return nil, ErrNoPendingLogin
	}
	if flow.Expired(time.Now()) {
		if err := m.clearPendingFlow(); err != nil {
			return nil, err
		}
		return &PollResult{Status: PollExpired, Reason: "device code expired"}, nil
	}
	return m.pollFlow(ctx, flow)
}

// Logout removes every persisted credential record.
func (m *Manager) Logout() error {
	if err := m.clearTokens(); err != nil {
		return err
	}
	return m.clearPendingFlow()
}

// Status summarizes the persisted credential state without any network
// calls.
type Status struct {
	HasAccessToken       bool         `json:"hasAccessToken"`
	AccessTokenUsable    bool         `json:"accessTokenUsable"`
	AccessTokenExpiresAt *time.Time   `json:"accessTokenExpiresAt,omitempty"`
	HasRefreshToken      bool         `json:"hasRefreshToken"`
	PendingLogin         *PendingFlow `json:"pendingLogin,omitempty"`
}

func (m *Manager) Status() Status {
	var status Status
	if access, ok := m.readRecord(recordAccessToken); ok {
		status.HasAccessToken = true
		status.AccessTokenUsable = Usable(access, m.skew)
		if expiry, ok := Expiry(access); ok {
			status.AccessTokenExpiresAt = &expiry
		}
	}
	_, status.HasRefreshToken = m.readRecord(recordRefreshToken)
	if flow, ok := m.readPendingFlow(); ok && !flow.Expired(time.Now()) {
		status.PendingLogin = flow
	}
	return status
}

func (m *Manager) scopeString() string {
	return strings.Join(m.scopes, " ")
}

func (m *Manager) resolveEndpoints(ctx context.Context) (Endpoints, error) {
	if m.endpoints != nil {
		return *m.endpoints, nil
	}
	if m.issuer != "" {
		endpoints, err := DiscoverEndpoints(ctx, m.httpClient, m.issuer)
		if err != nil {
			return Endpoints{}, err
		}
		m.endpoints = &endpoints
		return endpoints, nil
	}
	endpoints := MicrosoftEndpoints(m.tenant)
	m.endpoints = &endpoints
	return endpoints, nil
}

// readRecord degrades storage errors to "absent": stale or unreadable
// local state must never block the corrective path.
func (m *Manager) readRecord(name string) (string, bool) {
	value, ok, err := m.store.Get(name)
	if err != nil {
		m.log.Warn("failed to read stored record", zap.String("record", name), zap.Error(err))
		return "", false
	}
	if !ok || len(value) == 0 {
		return "", false
	}
	return string(value), true
}

func (m *Manager) saveTokens(access, refresh string) error {
	if err := m.store.Set(recordAccessToken, []byte(access)); err != nil {
		return err
	}
	if refresh != "" {
		return m.store.Set(recordRefreshToken, []byte(refresh))
	}
	return nil
}

func (m *Manager) clearTokens() error {
	if err := m.store.Delete(recordAccessToken); err != nil {
		return err
	}
	return m.store.Delete(recordRefreshToken)
}

func (m *Manager) readPendingFlow() (*PendingFlow, bool) {
	raw, ok := m.readRecord(recordPendingFlow)
	if !ok {
		return nil, false
	}
	flow := &PendingFlow{}
	if err := json.Unmarshal([]byte(raw), flow); err != nil || flow.DeviceCode == "" {
		m.log.Warn("discarding unparsable pending flow state", zap.Error(err))
		return nil, false
	}
	return flow, true
}

func (m *Manager) savePendingFlow(flow *PendingFlow) error {
	content, err := json.Marshal(flow)
	if err != nil {
		return err
	}
	return m.store.Set(recordPendingFlow, content)
}

func (m *Manager) clearPendingFlow() error {
	return m.store.Delete(recordPendingFlow)
}
