package internaldefs

import (
	goGuard "github.com/regenecura/goGuard"
)

// CounterDef defines a public type used by goGuard exporters.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   goGuard.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by goGuard exporters.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   goGuard.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the consent and session engine.
var CounterDefs = []CounterDef{
	{ID: goGuard.MetricConsentLoaded, Name: "goguard_consent_loaded_total", Help: "Consent records loaded from storage."},
	{ID: goGuard.MetricConsentDefaulted, Name: "goguard_consent_defaulted_total", Help: "Consent loads that fell back to defaults."},
	{ID: goGuard.MetricConsentMalformed, Name: "goguard_consent_malformed_total", Help: "Consent loads that found a malformed record."},
	{ID: goGuard.MetricConsentUpdated, Name: "goguard_consent_updated_total", Help: "Consent updates persisted and broadcast."},
	{ID: goGuard.MetricConsentReset, Name: "goguard_consent_reset_total", Help: "Consent reset operations."},
	{ID: goGuard.MetricCookieWriteAllowed, Name: "goguard_cookie_write_allowed_total", Help: "Cookie writes permitted by consent."},
	{ID: goGuard.MetricCookieWriteDenied, Name: "goguard_cookie_write_denied_total", Help: "Cookie writes denied by consent."},
	{ID: goGuard.MetricCookieSwept, Name: "goguard_cookie_swept_total", Help: "Cookies removed by the reset sweep."},
	{ID: goGuard.MetricEventTracked, Name: "goguard_event_tracked_total", Help: "Tracking events forwarded to the analytics bridge."},
	{ID: goGuard.MetricEventDropped, Name: "goguard_event_dropped_total", Help: "Tracking events dropped without consent or bridge."},
	{ID: goGuard.MetricStartupVerified, Name: "goguard_startup_verified_total", Help: "Startup checks that verified the persisted token."},
	{ID: goGuard.MetricStartupRejected, Name: "goguard_startup_rejected_total", Help: "Startup checks rejected by the backend."},
	{ID: goGuard.MetricStartupPending, Name: "goguard_startup_pending_total", Help: "Startup checks kept optimistically pending."},
	{ID: goGuard.MetricLoginSuccess, Name: "goguard_login_success_total", Help: "Successful login attempts."},
	{ID: goGuard.MetricLoginFailure, Name: "goguard_login_failure_total", Help: "Failed login attempts."},
	{ID: goGuard.MetricLogout, Name: "goguard_logout_total", Help: "User-initiated logout operations."},
	{ID: goGuard.MetricAutoLogout, Name: "goguard_auto_logout_total", Help: "Watcher-initiated auto logout operations."},
	{ID: goGuard.MetricUnauthorizedCall, Name: "goguard_unauthorized_call_total", Help: "Authenticated calls answered with 401."},
	{ID: goGuard.MetricPasswordChangeSuccess, Name: "goguard_password_change_success_total", Help: "Successful password changes."},
	{ID: goGuard.MetricPasswordChangeFailure, Name: "goguard_password_change_failure_total", Help: "Failed password changes."},
}

// HistogramDefs is an exported constant or variable used by the consent and session engine.
var HistogramDefs = []HistogramDef{
	{ID: goGuard.MetricAPICallLatency, Name: "goguard_api_call_latency_seconds", Help: "Authenticated API call latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the consent and session engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the consent and session engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
