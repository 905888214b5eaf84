package goGuard

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config defines a public type used by goGuard APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Consent ConsentConfig
	Cookies CookieConfig
	Session SessionConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
CONSENT CONFIG
====================================
*/

// ConsentConfig controls the consent store's persistence key and the cookie
// names exempt from Reset's sweep.
type ConsentConfig struct {
	// StorageKey is the persisted key holding the JSON preference record.
	StorageKey string
	// AlwaysAllowedCookies are never deleted by Reset's sweep. This is a
	// deployment decision, not a protocol constant.
	AlwaysAllowedCookies []string
}

// CookieConfig holds the defaults applied to SetCookie calls.
type CookieConfig struct {
	DefaultCategory Category
	DefaultTTL      time.Duration
	DefaultPath     string
	Secure          bool
	SameSite        http.SameSite
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls token persistence, the remote auth API surface, and
// the expiry watcher.
type SessionConfig struct {
	// StorageKey is the persisted key holding the raw bearer token.
	StorageKey string

	BaseURL            string
	LoginPath          string
	VerifyPath         string
	LogoutPath         string
	ChangePasswordPath string

	// ExpiryBuffer is subtracted from the token's real expiry so the client
	// treats it as expired slightly early, avoiding races with in-flight
	// requests.
	ExpiryBuffer time.Duration
	// CheckInterval is the expiry watcher's tick period.
	CheckInterval time.Duration
	// RequestTimeout bounds each outbound call. A timeout is classified as a
	// network-class failure, not a semantic rejection.
	RequestTimeout time.Duration
}

// AuditConfig controls dispatcher buffering behavior.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics system.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration used when the builder is given
// nothing else: privacy-safe consent defaults and the standard auth API paths.
func DefaultConfig() Config {
	return Config{
		Consent: ConsentConfig{
			StorageKey:           "cookie_preferences",
			AlwaysAllowedCookies: []string{"session", "csrf_token", "auth_token"},
		},
		Cookies: CookieConfig{
			DefaultCategory: CategoryFunctional,
			DefaultTTL:      30 * 24 * time.Hour,
			DefaultPath:     "/",
			Secure:          true,
			SameSite:        http.SameSiteLaxMode,
		},
		Session: SessionConfig{
			StorageKey:         "auth_token",
			LoginPath:          "/api/v1/auth/login",
			VerifyPath:         "/api/v1/auth/verify-token",
			LogoutPath:         "/api/v1/auth/logout",
			ChangePasswordPath: "/api/v1/auth/change-password",
			ExpiryBuffer:       5 * time.Minute,
			CheckInterval:      time.Minute,
			RequestTimeout:     15 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks structural invariants. Build calls it; callers constructing
// Config by hand may call it directly.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Consent.StorageKey) == "" {
		return errors.New("consent storage key required")
	}
	if strings.TrimSpace(c.Session.StorageKey) == "" {
		return errors.New("session storage key required")
	}
	if c.Consent.StorageKey == c.Session.StorageKey {
		return errors.New("consent and session storage keys must differ")
	}
	if c.Cookies.DefaultCategory != "" && !c.Cookies.DefaultCategory.Valid() {
		return errors.New("invalid default cookie category")
	}
	if c.Cookies.DefaultTTL < 0 {
		return errors.New("invalid default cookie TTL")
	}
	if c.Session.ExpiryBuffer < 0 || c.Session.ExpiryBuffer > time.Hour {
		return errors.New("invalid expiry buffer configuration")
	}
	if c.Session.CheckInterval <= 0 {
		return errors.New("invalid check interval configuration")
	}
	if c.Session.RequestTimeout < 0 {
		return errors.New("invalid request timeout configuration")
	}
	if c.Session.BaseURL != "" {
		u, err := url.Parse(c.Session.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("invalid session base URL")
		}
	}
	for _, p := range []string{
		c.Session.LoginPath,
		c.Session.VerifyPath,
		c.Session.LogoutPath,
		c.Session.ChangePasswordPath,
	} {
		if p == "" || !strings.HasPrefix(p, "/") {
			return errors.New("session API paths must start with /")
		}
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Consent.AlwaysAllowedCookies != nil {
		out.Consent.AlwaysAllowedCookies = append(
			[]string(nil),
			cfg.Consent.AlwaysAllowedCookies...,
		)
	}
	return out
}
