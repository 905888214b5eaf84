package goGuard

import (
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/regenecura/goGuard/storage"
	"github.com/regenecura/goGuard/token"
)

// Builder assembles an Engine. Builders are configured during initialization
// and consumed by a single Build call.
type Builder struct {
	config Config

	store  storage.Store
	jar    CookieJar
	bridge AnalyticsBridge
	httpc  *http.Client
	sink   AuditSink
	onAuto func(User)

	built bool
}

// New returns a Builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStorage sets the persistence backend. Required.
func (b *Builder) WithStorage(s storage.Store) *Builder {
	b.store = s
	return b
}

// WithRedis is a convenience that backs persistence with a Redis client.
func (b *Builder) WithRedis(client *redis.Client, prefix string) *Builder {
	b.store = storage.NewRedis(client, prefix)
	return b
}

// WithCookieJar sets the cookie sink gated by consent. Defaults to an
// in-memory jar.
func (b *Builder) WithCookieJar(jar CookieJar) *Builder {
	b.jar = jar
	return b
}

// WithAnalyticsBridge sets the tracking event sink. Without one every
// tracking event is dropped.
func (b *Builder) WithAnalyticsBridge(bridge AnalyticsBridge) *Builder {
	b.bridge = bridge
	return b
}

// WithHTTPClient overrides the HTTP client used for backend calls.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpc = c
	return b
}

// WithAuditSink sets the audit event sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithMetricsEnabled toggles the metrics registry.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles API call latency histograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithAutoLogoutHook sets the callback invoked after a forced logout, either
// by the expiry watcher or by a 401 response. The callback receives the user
// that was logged out and runs outside the monitor's lock.
func (b *Builder) WithAutoLogoutHook(fn func(User)) *Builder {
	b.onAuto = fn
	return b
}

// Build validates the configuration and assembles the Engine. A builder can
// be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("storage backend required")
	}
	if cfg.Session.BaseURL == "" {
		return nil, errors.New("session base url required")
	}

	jar := b.jar
	if jar == nil {
		jar = NewMemoryCookieJar()
	}

	inspector, err := token.NewInspector(token.Config{
		ExpiryBuffer: cfg.Session.ExpiryBuffer,
	})
	if err != nil {
		return nil, err
	}

	audit := newAuditDispatcher(cfg.Audit, b.sink)
	metrics := NewMetrics(cfg.Metrics)

	engine := &Engine{
		config:  cfg,
		audit:   audit,
		metrics: metrics,
	}
	engine.consent = newConsentStore(
		cfg.Consent,
		cfg.Cookies,
		b.store,
		jar,
		b.bridge,
		audit,
		metrics,
	)
	engine.session = newSessionMonitor(
		cfg.Session,
		b.httpc,
		b.store,
		inspector,
		audit,
		metrics,
		b.onAuto,
	)

	b.built = true

	return engine, nil
}
