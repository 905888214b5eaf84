package goGuard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDispatcherDeliversToSink(t *testing.T) {
	sink := NewChannelSink(8)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 8, DropIfFull: true}, sink)
	t.Cleanup(d.Close)

	emitAudit(d, context.Background(), auditEventLoginSuccess, true, nil, func(e *AuditEvent) {
		e.Username = "alice"
	})

	select {
	case ev := <-sink.Events():
		if ev.EventType != auditEventLoginSuccess {
			t.Fatalf("unexpected event type %q", ev.EventType)
		}
		if ev.Username != "alice" || !ev.Success {
			t.Fatalf("unexpected event: %+v", ev)
		}
		if ev.Timestamp.IsZero() {
			t.Fatal("timestamp must be set")
		}
	case <-time.After(time.Second):
		t.Fatal("event never reached the sink")
	}
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := newAuditDispatcher(AuditConfig{Enabled: false}, nil)
	if d != nil {
		t.Fatal("disabled audit must not start a dispatcher")
	}

	// Emitting through a nil dispatcher is a no-op, not a panic.
	emitAudit(d, context.Background(), auditEventLogout, true, nil, nil)
	if got := d.Dropped(); got != 0 {
		t.Fatalf("nil dispatcher dropped count should be 0, got %d", got)
	}
}

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Emit(context.Context, AuditEvent) {
	<-s.release
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// First event occupies the worker, second fills the buffer, the rest drop.
	for i := 0; i < 5; i++ {
		emitAudit(d, context.Background(), auditEventLogout, true, nil, nil)
	}

	deadline := time.Now().Add(time.Second)
	for d.Dropped() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped events with a full buffer")
	}

	close(sink.release)
	d.Close()
}

func TestJSONWriterSinkWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{EventType: auditEventConsentUpdated, Success: true})
	sink.Emit(context.Background(), AuditEvent{EventType: auditEventLogout, Success: true})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	var ev AuditEvent
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("line is not valid JSON: %v", err)
	}
	if ev.EventType != auditEventConsentUpdated {
		t.Fatalf("unexpected event type %q", ev.EventType)
	}
}

func TestAuditErrorCodeClassification(t *testing.T) {
	cases := []struct {
		err  error
		want AuditErrorCode
	}{
		{nil, ""},
		{ErrUnauthorized, auditErrUnauthorized},
		{ErrLoginRejected, auditErrLoginRejected},
		{ErrTokenExpired, auditErrTokenExpired},
		{ErrNetworkUnavailable, auditErrNetwork},
		{ErrStorageUnavailable, auditErrStorage},
		{newAPIError(400, "nope", ErrChangePasswordRejected), auditErrPasswordRejected},
		{errors.New("anything else"), auditErrInternal},
	}

	for _, tc := range cases {
		if got := auditErrorCode(tc.err); got != tc.want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
