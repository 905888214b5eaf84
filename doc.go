// Package goGuard provides the client-side privacy and session core of a web
// front end: a consent-preference store with durable persistence and change
// broadcast, and a session monitor that owns a bearer token, watches its
// expiry, and forces logout the moment the server or the clock says so.
//
// The package is designed as a single composition root: [Builder.Build]
// produces an [Engine] whose two subsystems — [ConsentStore] and
// [SessionMonitor] — are independent singletons. They share only the ambient
// plumbing (audit dispatch, metrics) and never read each other's state.
//
// # Architecture boundaries
//
// goGuard is the public surface. It exposes [Engine], [Builder], [Config],
// [ConsentStore], [SessionMonitor], and value types (Preferences, LoginResult,
// MetricsSnapshot, etc.). Token claim extraction lives in the token
// sub-package; persisted key-value backends live in storage; metric export
// (Prometheus, OTel) lives in metrics/export/.
//
// # What this package must NOT do
//
//   - Verify token signatures. The server remains authoritative for trust;
//     claims are decoded only for client-side expiry bookkeeping.
//   - Buffer dropped analytics events. When consent denies a category, the
//     event is gone.
//   - Let an internal error escape a public operation as a panic or an
//     unclassified error. Every failure maps to an exported sentinel or an
//     [APIError].
//
// # Ordering contract
//
// Consent updates persist to storage before any subscriber is notified, so a
// subscriber re-reading storage on receipt always observes the new value.
// Session teardown disarms the expiry watcher before credentials are cleared,
// so a watcher tick can never observe a half-cleared session.
package goGuard
