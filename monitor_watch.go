package goGuard

import (
	"context"
	"time"
)

// expiryWatch is one armed watcher generation. Re-arming replaces the whole
// value so a stale goroutine can recognize it has been superseded.
type expiryWatch struct {
	stop chan struct{}
}

// armLocked starts a fresh expiry watcher for the current token, replacing
// any previous one. Must be called with m.mu held and a token set. Arming is
// always cancel-then-schedule, so at most one watcher is live per monitor.
func (m *SessionMonitor) armLocked() {
	m.disarmLocked()

	w := &expiryWatch{stop: make(chan struct{})}
	m.watch = w
	m.watchers.Add(1)
	go m.runWatch(w)
}

// disarmLocked stops the current watcher, if any. Must be called with m.mu
// held.
func (m *SessionMonitor) disarmLocked() {
	if m.watch == nil {
		return
	}
	close(m.watch.stop)
	m.watch = nil
}

func (m *SessionMonitor) runWatch(w *expiryWatch) {
	defer m.watchers.Add(-1)

	interval := m.cfg.CheckInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			if m.checkExpiry(w) {
				return
			}
		}
	}
}

// checkExpiry is one watcher tick. It reports true when the watcher should
// exit, either because it has been superseded or because it triggered the
// auto logout.
func (m *SessionMonitor) checkExpiry(w *expiryWatch) bool {
	m.mu.Lock()
	if m.watch != w {
		// Superseded by a re-arm; this generation is done.
		m.mu.Unlock()
		return true
	}
	tok := m.token
	m.mu.Unlock()

	if tok == "" || m.inspector.Expired(tok) {
		m.autoLogout()
		return true
	}
	return false
}

// tickOnce runs a single expiry check against the live watcher. Test hook.
func (m *SessionMonitor) tickOnce() {
	m.mu.Lock()
	w := m.watch
	m.mu.Unlock()

	if w != nil {
		m.checkExpiry(w)
	}
}

// autoLogout is the watcher-initiated logout: disarm, clear, best-effort
// storage delete, then the hook outside the lock.
func (m *SessionMonitor) autoLogout() {
	m.mu.Lock()
	user := m.user
	hadUser := m.hasUser
	username := m.user.Username
	m.disarmLocked()
	m.clearLocked()
	m.mu.Unlock()

	ctx := context.Background()
	_ = m.store.Delete(ctx, m.cfg.StorageKey)

	m.metricInc(MetricAutoLogout)
	emitAudit(m.audit, ctx, auditEventAutoLogout, true, nil, func(e *AuditEvent) {
		e.Username = username
	})

	if hadUser && m.autoLogoutHook != nil {
		m.autoLogoutHook(user)
	}
}
