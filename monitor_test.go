package goGuard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/regenecura/goGuard/storage"
	"github.com/regenecura/goGuard/token"
)

func mintSessionToken(t *testing.T, username string, ttl time.Duration) string {
	t.Helper()

	now := time.Now()
	claims := jwt.MapClaims{
		"name":     "Test User",
		"username": username,
		"email":    username + "@example.com",
		"role":     "super_admin",
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

// fakeClock lets expiry tests advance time without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type monitorHarness struct {
	monitor *SessionMonitor
	store   *storage.Memory
	clock   *fakeClock
	autoOut chan User
}

func newMonitorHarness(t *testing.T, baseURL string, mutate func(*SessionConfig)) *monitorHarness {
	t.Helper()

	cfg := DefaultConfig().Session
	cfg.BaseURL = baseURL
	cfg.ExpiryBuffer = 0
	cfg.CheckInterval = 50 * time.Millisecond
	cfg.RequestTimeout = 2 * time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	clock := newFakeClock()
	inspector, err := token.NewInspector(token.Config{
		ExpiryBuffer: cfg.ExpiryBuffer,
		Now:          clock.Now,
	})
	if err != nil {
		t.Fatalf("new inspector: %v", err)
	}

	autoOut := make(chan User, 1)
	store := storage.NewMemory()
	monitor := newSessionMonitor(cfg, nil, store, inspector, nil, nil, func(u User) {
		autoOut <- u
	})
	t.Cleanup(monitor.Close)

	return &monitorHarness{
		monitor: monitor,
		store:   store,
		clock:   clock,
		autoOut: autoOut,
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func loginOK(t *testing.T, username string, ttl time.Duration) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, map[string]any{
			"token": mintSessionToken(t, username, ttl),
			"user": map[string]string{
				"name":     "Test User",
				"username": username,
				"email":    username + "@example.com",
				"role":     "super_admin",
			},
		})
	}
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

/* ==== STARTUP ==== */

func TestStartupNoTokenMakesNoNetworkCall(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := newMonitorHarness(t, srv.URL, nil)

	res, err := h.monitor.CheckAuthOnStartup(context.Background())
	if err != nil {
		t.Fatalf("startup check failed: %v", err)
	}
	if res.Outcome != StartupNoToken {
		t.Fatalf("expected StartupNoToken, got %v", res.Outcome)
	}
	if h.monitor.State() != StateUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", h.monitor.State())
	}
	if hits.Load() != 0 {
		t.Fatalf("no network call expected, got %d", hits.Load())
	}
}

func TestStartupExpiredTokenMakesNoNetworkCall(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := newMonitorHarness(t, srv.URL, nil)
	ctx := context.Background()

	expired := mintSessionToken(t, "alice", -time.Minute)
	if err := h.store.Set(ctx, h.monitor.cfg.StorageKey, []byte(expired)); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	res, err := h.monitor.CheckAuthOnStartup(ctx)
	if err != nil {
		t.Fatalf("startup check failed: %v", err)
	}
	if res.Outcome != StartupTokenExpired {
		t.Fatalf("expected StartupTokenExpired, got %v", res.Outcome)
	}
	if hits.Load() != 0 {
		t.Fatalf("no network call expected, got %d", hits.Load())
	}
	if _, err := h.store.Get(ctx, h.monitor.cfg.StorageKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatal("expired token must be deleted from storage")
	}
}

func TestStartupVerifiedToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/auth/verify-token", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			writeTestJSON(w, http.StatusUnauthorized, map[string]string{"message": "missing token"})
			return
		}
		writeTestJSON(w, http.StatusOK, map[string]any{
			"user": map[string]string{"username": "alice", "role": "super_admin"},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := newMonitorHarness(t, srv.URL, nil)
	ctx := context.Background()

	valid := mintSessionToken(t, "alice", time.Hour)
	if err := h.store.Set(ctx, h.monitor.cfg.StorageKey, []byte(valid)); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	res, err := h.monitor.CheckAuthOnStartup(ctx)
	if err != nil {
		t.Fatalf("startup check failed: %v", err)
	}
	if res.Outcome != StartupVerified {
		t.Fatalf("expected StartupVerified, got %v", res.Outcome)
	}
	if res.User.Username != "alice" {
		t.Fatalf("expected server-provided user, got %+v", res.User)
	}
	if h.monitor.State() != StateAuthenticated {
		t.Fatalf("expected authenticated, got %v", h.monitor.State())
	}
	if !h.monitor.MonitorActive() {
		t.Fatal("watcher must be armed after verification")
	}
}

func TestStartupRejectedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(w, http.StatusUnauthorized, map[string]string{"message": "revoked"})
	}))
	defer srv.Close()

	h := newMonitorHarness(t, srv.URL, nil)
	ctx := context.Background()

	valid := mintSessionToken(t, "alice", time.Hour)
	if err := h.store.Set(ctx, h.monitor.cfg.StorageKey, []byte(valid)); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	res, err := h.monitor.CheckAuthOnStartup(ctx)
	if err != nil {
		t.Fatalf("startup check failed: %v", err)
	}
	if res.Outcome != StartupRejected {
		t.Fatalf("expected StartupRejected, got %v", res.Outcome)
	}
	if h.monitor.State() != StateUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", h.monitor.State())
	}
	if _, err := h.store.Get(ctx, h.monitor.cfg.StorageKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatal("rejected token must be deleted from storage")
	}
	if h.monitor.MonitorActive() {
		t.Fatal("watcher must not be armed after rejection")
	}
}

func TestStartupNetworkErrorKeepsSessionPending(t *testing.T) {
	// A closed server yields a connection refused, the network-class case.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	h := newMonitorHarness(t, baseURL, nil)
	ctx := context.Background()

	valid := mintSessionToken(t, "alice", time.Hour)
	if err := h.store.Set(ctx, h.monitor.cfg.StorageKey, []byte(valid)); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	res, err := h.monitor.CheckAuthOnStartup(ctx)
	if err != nil {
		t.Fatalf("startup check failed: %v", err)
	}
	if res.Outcome != StartupPending {
		t.Fatalf("expected StartupPending, got %v", res.Outcome)
	}
	if res.User.Username != "alice" {
		t.Fatalf("expected user decoded from token claims, got %+v", res.User)
	}
	if h.monitor.State() != StateAuthPending {
		t.Fatalf("expected auth pending, got %v", h.monitor.State())
	}
	if !h.monitor.MonitorActive() {
		t.Fatal("watcher must be armed in the pending state")
	}
	if h.monitor.Token() == "" {
		t.Fatal("pending session must keep the token")
	}
}

/* ==== LOGIN ==== */

func TestLoginSuccessPersistsTokenAndArms(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", loginOK(t, "alice", time.Hour))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := newMonitorHarness(t, srv.URL, nil)
	ctx := context.Background()

	result, err := h.monitor.Login(ctx, Credentials{Username: "alice", Password: "pw"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.User.Username != "alice" || result.User.Role != RoleSuperAdmin {
		t.Fatalf("unexpected user: %+v", result.User)
	}
	if h.monitor.State() != StateAuthenticated {
		t.Fatalf("expected authenticated, got %v", h.monitor.State())
	}

	persisted, err := h.store.Get(ctx, h.monitor.cfg.StorageKey)
	if err != nil {
		t.Fatalf("token not persisted: %v", err)
	}
	if string(persisted) != h.monitor.Token() {
		t.Fatal("persisted token must match the in-memory token")
	}
	if !h.monitor.MonitorActive() {
		t.Fatal("watcher must be armed after login")
	}
}

func TestLoginRejectedCarriesServerMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := newMonitorHarness(t, srv.URL, nil)

	_, err := h.monitor.Login(context.Background(), Credentials{Username: "alice", Password: "wrong"})
	if !errors.Is(err, ErrLoginRejected) {
		t.Fatalf("expected ErrLoginRejected, got %v", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", apiErr.StatusCode)
	}
	if apiErr.Message != "invalid credentials" {
		t.Fatalf("expected server message, got %q", apiErr.Message)
	}
	if h.monitor.State() == StateAuthenticated {
		t.Fatal("failed login must not authenticate")
	}
}

func TestLoginMalformedPayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("not json at all"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := newMonitorHarness(t, srv.URL, nil)

	if _, err := h.monitor.Login(context.Background(), Credentials{Username: "a", Password: "b"}); !errors.Is(err, ErrLoginPayloadInvalid) {
		t.Fatalf("expected ErrLoginPayloadInvalid, got %v", err)
	}
}

func TestLoginExpiredOnArrival(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", loginOK(t, "alice", -time.Minute))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := newMonitorHarness(t, srv.URL, nil)

	if _, err := h.monitor.Login(context.Background(), Credentials{Username: "alice", Password: "pw"}); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if h.monitor.MonitorActive() {
		t.Fatal("watcher must not be armed for an expired token")
	}
}

func TestLoginNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	h := newMonitorHarness(t, baseURL, nil)

	if _, err := h.monitor.Login(context.Background(), Credentials{Username: "a", Password: "b"}); !errors.Is(err, ErrNetworkUnavailable) {
		t.Fatalf("expected ErrNetworkUnavailable, got %v", err)
	}
}

func TestDoubleLoginLeavesOneWatcher(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", loginOK(t, "alice", time.Hour))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := newMonitorHarness(t, srv.URL, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := h.monitor.Login(ctx, Credentials{Username: "alice", Password: "pw"}); err != nil {
			t.Fatalf("login %d failed: %v", i, err)
		}
	}

	waitFor(t, "superseded watcher to exit", func() bool {
		return h.monitor.Watchers() == 1
	})
	if !h.monitor.MonitorActive() {
		t.Fatal("the surviving watcher must be the armed one")
	}
}

/* ==== LOGOUT ==== */

func TestLogoutClearsEvenWhenPostFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", loginOK(t, "alice", time.Hour))
	mux.HandleFunc("POST /api/v1/auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(w, http.StatusInternalServerError, map[string]string{"message": "boom"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := newMonitorHarness(t, srv.URL, nil)
	ctx := context.Background()

	if _, err := h.monitor.Login(ctx, Credentials{Username: "alice", Password: "pw"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := h.monitor.Logout(ctx); err != nil {
		t.Fatalf("logout must swallow backend failures, got %v", err)
	}

	if h.monitor.State() != StateUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", h.monitor.State())
	}
	if h.monitor.Token() != "" {
		t.Fatal("token must be cleared")
	}
	if _, ok := h.monitor.CurrentUser(); ok {
		t.Fatal("user must be cleared")
	}
	if _, err := h.store.Get(ctx, h.monitor.cfg.StorageKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatal("persisted token must be deleted")
	}
	waitFor(t, "watcher to exit after logout", func() bool {
		return h.monitor.Watchers() == 0
	})
}

/* ==== AUTHENTICATED CALLS ==== */

func TestDoAttachesBearerAndRequestID(t *testing.T) {
	var gotAuth, gotReqID, gotCustom string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", loginOK(t, "alice", time.Hour))
	mux.HandleFunc("GET /api/v1/employees", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		gotCustom = r.Header.Get("X-Custom")
		writeTestJSON(w, http.StatusOK, []string{})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := newMonitorHarness(t, srv.URL, nil)
	ctx := context.Background()

	if _, err := h.monitor.Login(ctx, Credentials{Username: "alice", Password: "pw"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	resp, err := h.monitor.Do(ctx, APIRequest{
		Method: http.MethodGet,
		Path:   "/api/v1/employees",
		Header: http.Header{"X-Custom": []string{"yes"}},
	})
	if err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if gotAuth != "Bearer "+h.monitor.Token() {
		t.Fatalf("bearer header missing or wrong: %q", gotAuth)
	}
	if gotReqID == "" {
		t.Fatal("request id header missing")
	}
	if gotCustom != "yes" {
		t.Fatal("caller headers must be merged")
	}
}

func TestDoUnauthorizedForcesLogout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", loginOK(t, "alice", time.Hour))
	mux.HandleFunc("GET /api/v1/employees", func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(w, http.StatusUnauthorized, map[string]string{"message": "token revoked"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := newMonitorHarness(t, srv.URL, nil)
	ctx := context.Background()

	if _, err := h.monitor.Login(ctx, Credentials{Username: "alice", Password: "pw"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	_, err := h.monitor.Do(ctx, APIRequest{Method: http.MethodGet, Path: "/api/v1/employees"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if h.monitor.State() != StateUnauthenticated {
		t.Fatalf("401 must force a logout, state is %v", h.monitor.State())
	}
	if h.monitor.Token() != "" {
		t.Fatal("token must be cleared after 401")
	}
	if _, err := h.store.Get(ctx, h.monitor.cfg.StorageKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatal("persisted token must be deleted after 401")
	}

	select {
	case u := <-h.autoOut:
		if u.Username != "alice" {
			t.Fatalf("hook got wrong user: %+v", u)
		}
	default:
		t.Fatal("auto logout hook must fire on 401")
	}
}

func TestDoReturnsNonAuthFailuresToCaller(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", loginOK(t, "alice", time.Hour))
	mux.HandleFunc("GET /api/v1/employees", func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "maintenance"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := newMonitorHarness(t, srv.URL, nil)
	ctx := context.Background()

	if _, err := h.monitor.Login(ctx, Credentials{Username: "alice", Password: "pw"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	resp, err := h.monitor.Do(ctx, APIRequest{Method: http.MethodGet, Path: "/api/v1/employees"})
	if err != nil {
		t.Fatalf("non-401 failures are the caller's to handle, got error %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	if h.monitor.State() != StateAuthenticated {
		t.Fatal("a 503 must not end the session")
	}
}

/* ==== CHANGE PASSWORD ==== */

func TestChangePasswordSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", loginOK(t, "alice", time.Hour))
	mux.HandleFunc("POST /api/v1/auth/change-password", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["old_password"] == "" || body["new_password"] == "" {
			writeTestJSON(w, http.StatusBadRequest, map[string]string{"message": "missing fields"})
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := newMonitorHarness(t, srv.URL, nil)
	ctx := context.Background()

	if _, err := h.monitor.Login(ctx, Credentials{Username: "alice", Password: "old"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := h.monitor.ChangePassword(ctx, "old", "new"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}
}

func TestChangePasswordRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", loginOK(t, "alice", time.Hour))
	mux.HandleFunc("POST /api/v1/auth/change-password", func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(w, http.StatusBadRequest, map[string]string{"message": "old password incorrect"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := newMonitorHarness(t, srv.URL, nil)
	ctx := context.Background()

	if _, err := h.monitor.Login(ctx, Credentials{Username: "alice", Password: "old"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	err := h.monitor.ChangePassword(ctx, "wrong", "new")
	if !errors.Is(err, ErrChangePasswordRejected) {
		t.Fatalf("expected ErrChangePasswordRejected, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "old password incorrect" {
		t.Fatalf("expected server message, got %v", err)
	}
	if h.monitor.State() != StateAuthenticated {
		t.Fatal("a non-401 rejection must keep the session")
	}
}

func TestChangePasswordUnauthorizedForcesLogout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", loginOK(t, "alice", time.Hour))
	mux.HandleFunc("POST /api/v1/auth/change-password", func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(w, http.StatusUnauthorized, map[string]string{"message": "session expired"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := newMonitorHarness(t, srv.URL, nil)
	ctx := context.Background()

	if _, err := h.monitor.Login(ctx, Credentials{Username: "alice", Password: "old"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := h.monitor.ChangePassword(ctx, "old", "new"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if h.monitor.State() != StateUnauthenticated {
		t.Fatal("401 on change password must force a logout")
	}
}

func TestChangePasswordWithoutSession(t *testing.T) {
	srv := httptest.NewServer(http.NewServeMux())
	defer srv.Close()

	h := newMonitorHarness(t, srv.URL, nil)

	if err := h.monitor.ChangePassword(context.Background(), "a", "b"); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

/* ==== EXPIRY WATCHER ==== */

func TestWatcherAutoLogoutOnExpiry(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", loginOK(t, "alice", time.Hour))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := newMonitorHarness(t, srv.URL, nil)
	ctx := context.Background()

	if _, err := h.monitor.Login(ctx, Credentials{Username: "alice", Password: "pw"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// Jump past the token expiry and force one watcher tick.
	h.clock.Advance(2 * time.Hour)
	h.monitor.tickOnce()

	if h.monitor.State() != StateUnauthenticated {
		t.Fatalf("expected unauthenticated after expiry, got %v", h.monitor.State())
	}
	if _, err := h.store.Get(ctx, h.monitor.cfg.StorageKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatal("persisted token must be deleted on auto logout")
	}

	select {
	case u := <-h.autoOut:
		if u.Username != "alice" {
			t.Fatalf("hook got wrong user: %+v", u)
		}
	default:
		t.Fatal("auto logout hook must fire on expiry")
	}

	waitFor(t, "watcher to exit after auto logout", func() bool {
		return h.monitor.Watchers() == 0
	})
}

func TestWatcherTickKeepsLiveSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", loginOK(t, "alice", time.Hour))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := newMonitorHarness(t, srv.URL, nil)
	ctx := context.Background()

	if _, err := h.monitor.Login(ctx, Credentials{Username: "alice", Password: "pw"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	h.monitor.tickOnce()

	if h.monitor.State() != StateAuthenticated {
		t.Fatal("a tick on a live token must not log out")
	}
	if !h.monitor.MonitorActive() {
		t.Fatal("watcher must stay armed for a live token")
	}
}
