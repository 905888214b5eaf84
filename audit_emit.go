package goGuard

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventConsentLoaded        = "consent_loaded"
	auditEventConsentDefaulted     = "consent_defaulted"
	auditEventConsentMalformed     = "consent_malformed"
	auditEventConsentUpdated       = "consent_updated"
	auditEventConsentReset         = "consent_reset"
	auditEventCookieDenied         = "cookie_write_denied"
	auditEventEventDropped         = "tracking_event_dropped"
	auditEventStartupCheck         = "startup_check"
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLogout               = "logout"
	auditEventAutoLogout           = "auto_logout"
	auditEventUnauthorized         = "api_unauthorized"
	auditEventPasswordChanged      = "password_change_success"
	auditEventPasswordChangeFailed = "password_change_failure"
)

// AuditErrorCode is the stable error classification carried in AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrUnauthorized     AuditErrorCode = "unauthorized"
	auditErrLoginRejected    AuditErrorCode = "login_rejected"
	auditErrPayloadInvalid   AuditErrorCode = "payload_invalid"
	auditErrTokenExpired     AuditErrorCode = "token_expired"
	auditErrTokenMalformed   AuditErrorCode = "token_malformed"
	auditErrNetwork          AuditErrorCode = "network_unavailable"
	auditErrStorage          AuditErrorCode = "storage_unavailable"
	auditErrRequestRejected  AuditErrorCode = "request_rejected"
	auditErrPasswordRejected AuditErrorCode = "change_password_rejected"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrLoginRejected):
		return auditErrLoginRejected
	case errors.Is(err, ErrLoginPayloadInvalid):
		return auditErrPayloadInvalid
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenMalformed):
		return auditErrTokenMalformed
	case errors.Is(err, ErrNetworkUnavailable):
		return auditErrNetwork
	case errors.Is(err, ErrStorageUnavailable):
		return auditErrStorage
	case errors.Is(err, ErrChangePasswordRejected):
		return auditErrPasswordRejected
	case errors.Is(err, ErrRequestRejected):
		return auditErrRequestRejected
	default:
		return auditErrInternal
	}
}

func emitAudit(
	d *auditDispatcher,
	ctx context.Context,
	eventType string,
	success bool,
	err error,
	mutate func(*AuditEvent),
) {
	if d == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Success:   success,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}
	if mutate != nil {
		mutate(&event)
	}

	d.Emit(ctx, event)
}
