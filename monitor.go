package goGuard

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
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/regenecura/goGuard/storage"
	"github.com/regenecura/goGuard/token"
)

// SessionMonitor owns the authenticated session: the persisted bearer token,
// the decoded user identity, the session state machine, and the background
// expiry watcher that force-logs-out before the token lapses.
//
// State transitions are serialized under a single mutex. The watcher is
// always disarmed before credentials are cleared, so a watcher tick can never
// observe cleared state with a live timer.
type SessionMonitor struct {
	cfg       SessionConfig
	httpc     *http.Client
	store     storage.Store
	inspector *token.Inspector

	audit   *auditDispatcher
	metrics *Metrics

	autoLogoutHook func(User)

	mu      sync.Mutex
	state   State
	token   string
	user    User
	hasUser bool
	watch   *expiryWatch

	watchers atomic.Int32
}

type loginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type verifyResponse struct {
	User User `json:"user"`
}

type apiErrorBody struct {
	Message string `json:"message"`
}

func newSessionMonitor(
	cfg SessionConfig,
	httpc *http.Client,
	store storage.Store,
	inspector *token.Inspector,
	audit *auditDispatcher,
	metrics *Metrics,
	autoLogoutHook func(User),
) *SessionMonitor {
	if httpc == nil {
		httpc = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return &SessionMonitor{
		cfg:            cfg,
		httpc:          httpc,
		store:          store,
		inspector:      inspector,
		audit:          audit,
		metrics:        metrics,
		autoLogoutHook: autoLogoutHook,
		state:          StateUninitialized,
	}
}

// CheckAuthOnStartup restores the session from the persisted token. It makes
// no network call when no token is persisted or the persisted token is
// already expired; both cases resolve locally to an unauthenticated state.
// A live token is verified against the backend. When verification cannot be
// reached the session is kept optimistically, in StateAuthPending with the
// expiry watcher armed, so a flaky backend does not log the user out.
func (m *SessionMonitor) CheckAuthOnStartup(ctx context.Context) (StartupResult, error) {
	if m == nil {
		return StartupResult{}, ErrEngineNotReady
	}

	m.mu.Lock()
	m.state = StateChecking
	m.mu.Unlock()

	raw, err := m.store.Get(ctx, m.cfg.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			m.setUnauthenticated()
			emitAudit(m.audit, ctx, auditEventStartupCheck, true, nil, startupMeta("no_token"))
			return StartupResult{Outcome: StartupNoToken}, nil
		}
		m.setUnauthenticated()
		return StartupResult{Outcome: StartupNoToken}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	tok := string(raw)
	if m.inspector.Expired(tok) {
		_ = m.store.Delete(ctx, m.cfg.StorageKey)
		m.setUnauthenticated()
		emitAudit(m.audit, ctx, auditEventStartupCheck, true, nil, startupMeta("token_expired"))
		return StartupResult{Outcome: StartupTokenExpired}, nil
	}

	user, err := m.verify(ctx, tok)
	if err != nil {
		if isNetworkError(err) {
			claims, decodeErr := token.Decode(tok)
			if decodeErr != nil {
				_ = m.store.Delete(ctx, m.cfg.StorageKey)
				m.setUnauthenticated()
				return StartupResult{Outcome: StartupTokenExpired}, nil
			}
			pending := userFromClaims(claims)
			m.mu.Lock()
			m.state = StateAuthPending
			m.token = tok
			m.user = pending
			m.hasUser = true
			m.armLocked()
			m.mu.Unlock()

			m.metricInc(MetricStartupPending)
			emitAudit(m.audit, ctx, auditEventStartupCheck, true, nil, startupMeta("pending"))
			return StartupResult{Outcome: StartupPending, User: pending}, nil
		}

		// Semantic rejection: the backend saw the token and said no.
		_ = m.store.Delete(ctx, m.cfg.StorageKey)
		m.setUnauthenticated()
		m.metricInc(MetricStartupRejected)
		emitAudit(m.audit, ctx, auditEventStartupCheck, false, err, startupMeta("rejected"))
		return StartupResult{Outcome: StartupRejected}, nil
	}

	m.mu.Lock()
	m.state = StateAuthenticated
	m.token = tok
	m.user = user
	m.hasUser = true
	m.armLocked()
	m.mu.Unlock()

	m.metricInc(MetricStartupVerified)
	emitAudit(m.audit, ctx, auditEventStartupCheck, true, nil, func(e *AuditEvent) {
		e.Username = user.Username
		e.Metadata = map[string]string{"outcome": "verified"}
	})
	return StartupResult{Outcome: StartupVerified, User: user}, nil
}

// Login authenticates against the backend, persists the returned token, and
// arms the expiry watcher. The token is persisted before the session is
// adopted; a storage failure rejects the login rather than leaving a session
// that would not survive a restart.
func (m *SessionMonitor) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	if m == nil {
		return nil, ErrEngineNotReady
	}

	body, err := json.Marshal(creds)
	if err != nil {
		return nil, err
	}

	resp, err := m.post(ctx, m.cfg.LoginPath, "", body)
	if err != nil {
		m.metricInc(MetricLoginFailure)
		emitAudit(m.audit, ctx, auditEventLoginFailure, false, err, loginMeta(creds.Username, m.cfg.LoginPath))
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp.StatusCode, decodeMessage(resp.Body), ErrLoginRejected)
		m.metricInc(MetricLoginFailure)
		emitAudit(m.audit, ctx, auditEventLoginFailure, false, apiErr, loginMeta(creds.Username, m.cfg.LoginPath))
		return nil, apiErr
	}

	var payload loginResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil || payload.Token == "" {
		m.metricInc(MetricLoginFailure)
		emitAudit(m.audit, ctx, auditEventLoginFailure, false, ErrLoginPayloadInvalid, loginMeta(creds.Username, m.cfg.LoginPath))
		return nil, ErrLoginPayloadInvalid
	}
	if m.inspector.Expired(payload.Token) {
		m.metricInc(MetricLoginFailure)
		emitAudit(m.audit, ctx, auditEventLoginFailure, false, ErrTokenExpired, loginMeta(creds.Username, m.cfg.LoginPath))
		return nil, ErrTokenExpired
	}

	if err := m.store.Set(ctx, m.cfg.StorageKey, []byte(payload.Token)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	m.mu.Lock()
	m.state = StateAuthenticated
	m.token = payload.Token
	m.user = payload.User
	m.hasUser = true
	m.armLocked()
	m.mu.Unlock()

	m.metricInc(MetricLoginSuccess)
	emitAudit(m.audit, ctx, auditEventLoginSuccess, true, nil, loginMeta(payload.User.Username, m.cfg.LoginPath))

	return &LoginResult{User: payload.User}, nil
}

// Logout ends the session. The backend call is best effort: a failed POST is
// reported through the audit trail but local state is cleared regardless, so
// logout can never be blocked by an unreachable backend.
func (m *SessionMonitor) Logout(ctx context.Context) error {
	if m == nil {
		return ErrEngineNotReady
	}

	m.mu.Lock()
	tok := m.token
	username := m.user.Username
	m.disarmLocked()
	m.clearLocked()
	m.mu.Unlock()

	_ = m.store.Delete(ctx, m.cfg.StorageKey)

	var postErr error
	if tok != "" {
		if resp, err := m.post(ctx, m.cfg.LogoutPath, tok, nil); err != nil {
			postErr = err
		} else if resp.StatusCode < 200 || resp.StatusCode > 299 {
			postErr = newAPIError(resp.StatusCode, decodeMessage(resp.Body), ErrRequestRejected)
		}
	}

	m.metricInc(MetricLogout)
	emitAudit(m.audit, ctx, auditEventLogout, postErr == nil, postErr, func(e *AuditEvent) {
		e.Username = username
		e.Endpoint = m.cfg.LogoutPath
	})

	return nil
}

// ChangePassword submits a password change for the authenticated user. A 401
// forces a full logout before the error is returned.
func (m *SessionMonitor) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	if m == nil {
		return ErrEngineNotReady
	}

	m.mu.Lock()
	tok := m.token
	username := m.user.Username
	m.mu.Unlock()

	if tok == "" {
		return ErrNoToken
	}

	body, err := json.Marshal(map[string]string{
		"old_password": oldPassword,
		"new_password": newPassword,
	})
	if err != nil {
		return err
	}

	resp, err := m.post(ctx, m.cfg.ChangePasswordPath, tok, body)
	if err != nil {
		m.metricInc(MetricPasswordChangeFailure)
		emitAudit(m.audit, ctx, auditEventPasswordChangeFailed, false, err, changePasswordMeta(username, m.cfg.ChangePasswordPath))
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		m.forceLogout(ctx)
		apiErr := newAPIError(resp.StatusCode, decodeMessage(resp.Body), ErrUnauthorized)
		m.metricInc(MetricPasswordChangeFailure)
		emitAudit(m.audit, ctx, auditEventPasswordChangeFailed, false, apiErr, changePasswordMeta(username, m.cfg.ChangePasswordPath))
		return apiErr
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp.StatusCode, decodeMessage(resp.Body), ErrChangePasswordRejected)
		m.metricInc(MetricPasswordChangeFailure)
		emitAudit(m.audit, ctx, auditEventPasswordChangeFailed, false, apiErr, changePasswordMeta(username, m.cfg.ChangePasswordPath))
		return apiErr
	}

	m.metricInc(MetricPasswordChangeSuccess)
	emitAudit(m.audit, ctx, auditEventPasswordChanged, true, nil, changePasswordMeta(username, m.cfg.ChangePasswordPath))
	return nil
}

// Do performs an authenticated API call against the configured base URL,
// attaching the bearer token and a request id. A 401 response forces a full
// logout and returns an error; every other status, success or not, is
// returned to the caller as the response.
func (m *SessionMonitor) Do(ctx context.Context, req APIRequest) (*APIResponse, error) {
	if m == nil {
		return nil, ErrEngineNotReady
	}

	m.mu.Lock()
	tok := m.token
	m.mu.Unlock()

	start := time.Now()
	resp, err := m.roundTrip(ctx, req.Method, req.Path, tok, req.Header, req.Body)
	if m.metrics != nil && m.metrics.LatencyEnabled() {
		m.metrics.Observe(MetricAPICallLatency, time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		m.metricInc(MetricUnauthorizedCall)
		m.forceLogout(ctx)
		apiErr := newAPIError(resp.StatusCode, decodeMessage(resp.Body), ErrUnauthorized)
		emitAudit(m.audit, ctx, auditEventUnauthorized, false, apiErr, func(e *AuditEvent) {
			e.Endpoint = req.Path
		})
		return nil, apiErr
	}

	return resp, nil
}

// State returns the current session state.
func (m *SessionMonitor) State() State {
	if m == nil {
		return StateUninitialized
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CurrentUser returns the session's user identity, if any.
func (m *SessionMonitor) CurrentUser() (User, bool) {
	if m == nil {
		return User{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user, m.hasUser
}

// Token returns the raw bearer token, empty when unauthenticated.
func (m *SessionMonitor) Token() string {
	if m == nil {
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Watchers returns the number of live watcher goroutines. At most one is
// live at any time; the count is exposed for tests and diagnostics.
func (m *SessionMonitor) Watchers() int {
	if m == nil {
		return 0
	}
	return int(m.watchers.Load())
}

// MonitorActive reports whether the expiry watcher is currently armed.
func (m *SessionMonitor) MonitorActive() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.watch != nil
}

// Close disarms the expiry watcher without touching session state or storage.
func (m *SessionMonitor) Close() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.disarmLocked()
	m.mu.Unlock()
}

/* ==== INTERNAL ==== */

// forceLogout is the server-initiated version of Logout: no backend call,
// credentials cleared, hook invoked outside the lock.
func (m *SessionMonitor) forceLogout(ctx context.Context) {
	m.mu.Lock()
	user := m.user
	hadUser := m.hasUser
	m.disarmLocked()
	m.clearLocked()
	m.mu.Unlock()

	_ = m.store.Delete(ctx, m.cfg.StorageKey)

	if hadUser && m.autoLogoutHook != nil {
		m.autoLogoutHook(user)
	}
}

// clearLocked resets credentials. The caller must already have disarmed the
// watcher; clearing with a live watcher is a bug.
func (m *SessionMonitor) clearLocked() {
	m.state = StateUnauthenticated
	m.token = ""
	m.user = User{}
	m.hasUser = false
}

func (m *SessionMonitor) setUnauthenticated() {
	m.mu.Lock()
	m.disarmLocked()
	m.clearLocked()
	m.mu.Unlock()
}

func (m *SessionMonitor) verify(ctx context.Context, tok string) (User, error) {
	resp, err := m.roundTrip(ctx, http.MethodGet, m.cfg.VerifyPath, tok, nil, nil)
	if err != nil {
		return User{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return User{}, newAPIError(resp.StatusCode, decodeMessage(resp.Body), ErrUnauthorized)
	}

	var payload verifyResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return User{}, ErrLoginPayloadInvalid
	}
	return payload.User, nil
}

func (m *SessionMonitor) post(ctx context.Context, path, tok string, body []byte) (*APIResponse, error) {
	return m.roundTrip(ctx, http.MethodPost, path, tok, nil, body)
}

func (m *SessionMonitor) roundTrip(ctx context.Context, method, path, tok string, header http.Header, body []byte) (*APIResponse, error) {
	if m.cfg.BaseURL == "" {
		return nil, ErrEngineNotReady
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	if m.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.RequestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, m.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if len(body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := m.httpc.Do(req)
	if err != nil {
		if isNetworkError(err) {
			return nil, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}

	return &APIResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func (m *SessionMonitor) metricInc(id MetricID) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.Inc(id)
}

// isNetworkError distinguishes transport failures from semantic rejections.
// Only transport failures may keep a session optimistically alive.
func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNetworkUnavailable) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func userFromClaims(c *token.Claims) User {
	return User{
		Name:     c.Name,
		Username: c.Username,
		Email:    c.Email,
		Role:     Role(c.Role),
	}
}

func decodeMessage(body []byte) string {
	var b apiErrorBody
	if err := json.Unmarshal(body, &b); err != nil || b.Message == "" {
		return ""
	}
	return b.Message
}

func startupMeta(outcome string) func(*AuditEvent) {
	return func(e *AuditEvent) {
		e.Metadata = map[string]string{"outcome": outcome}
	}
}

func loginMeta(username, endpoint string) func(*AuditEvent) {
	return func(e *AuditEvent) {
		e.Username = username
		e.Endpoint = endpoint
	}
}

func changePasswordMeta(username, endpoint string) func(*AuditEvent) {
	return func(e *AuditEvent) {
		e.Username = username
		e.Endpoint = endpoint
	}
}
