package goGuard

import (
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty consent key", func(c *Config) { c.Consent.StorageKey = "" }},
		{"empty session key", func(c *Config) { c.Session.StorageKey = "  " }},
		{"shared storage key", func(c *Config) {
			c.Consent.StorageKey = "same"
			c.Session.StorageKey = "same"
		}},
		{"bad default category", func(c *Config) { c.Cookies.DefaultCategory = "bogus" }},
		{"negative cookie TTL", func(c *Config) { c.Cookies.DefaultTTL = -time.Hour }},
		{"negative expiry buffer", func(c *Config) { c.Session.ExpiryBuffer = -time.Second }},
		{"oversized expiry buffer", func(c *Config) { c.Session.ExpiryBuffer = 2 * time.Hour }},
		{"zero check interval", func(c *Config) { c.Session.CheckInterval = 0 }},
		{"negative request timeout", func(c *Config) { c.Session.RequestTimeout = -time.Second }},
		{"base URL without scheme", func(c *Config) { c.Session.BaseURL = "api.example.com" }},
		{"relative login path", func(c *Config) { c.Session.LoginPath = "auth/login" }},
		{"empty verify path", func(c *Config) { c.Session.VerifyPath = "" }},
	}

	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestCloneConfigCopiesAllowList(t *testing.T) {
	cfg := DefaultConfig()
	clone := cloneConfig(cfg)

	clone.Consent.AlwaysAllowedCookies[0] = "mutated"
	if cfg.Consent.AlwaysAllowedCookies[0] == "mutated" {
		t.Fatal("clone must not share the allow-list slice")
	}
}
