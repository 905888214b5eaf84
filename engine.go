package goGuard

import "context"

// Engine is the composition root. It owns the consent store, the session
// monitor, the audit dispatcher, and the metrics registry. Engines are built
// once via Builder and are safe for concurrent use.
type Engine struct {
	config Config

	consent *ConsentStore
	session *SessionMonitor

	audit   *auditDispatcher
	metrics *Metrics
}

// Consent returns the consent subsystem.
func (e *Engine) Consent() *ConsentStore {
	if e == nil {
		return nil
	}
	return e.consent
}

// Session returns the session subsystem.
func (e *Engine) Session() *SessionMonitor {
	if e == nil {
		return nil
	}
	return e.session
}

// Start initializes both subsystems: consent state is loaded from storage and
// the persisted session, if any, is restored. Errors from the consent load do
// not block the session check; the first error encountered is returned.
func (e *Engine) Start(ctx context.Context) (LoadResult, StartupResult, error) {
	if e == nil {
		return LoadResult{}, StartupResult{}, ErrEngineNotReady
	}

	loadRes, loadErr := e.consent.Load(ctx)
	startRes, startErr := e.session.CheckAuthOnStartup(ctx)

	err := loadErr
	if err == nil {
		err = startErr
	}
	return loadRes, startRes, err
}

// MetricsSnapshot returns a point-in-time copy of all counters and
// histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped since start.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Close stops the session monitor's watcher and drains the audit pipeline.
// The engine must not be used after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.session.Close()
	if e.audit != nil {
		e.audit.Close()
	}
}
