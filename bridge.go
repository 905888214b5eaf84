package goGuard

import "context"

// TrackedEvent is one event delivered through a ChannelBridge.
type TrackedEvent struct {
	Name string
	Data map[string]string
}

// ChannelBridge is an AnalyticsBridge that forwards events to a buffered
// channel. Intended for tests and demos; a full channel drops the event
// rather than blocking the caller.
type ChannelBridge struct {
	ch chan TrackedEvent
}

// NewChannelBridge creates a ChannelBridge with the given buffer size.
func NewChannelBridge(buffer int) *ChannelBridge {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChannelBridge{ch: make(chan TrackedEvent, buffer)}
}

// Track implements AnalyticsBridge.
func (b *ChannelBridge) Track(_ context.Context, name string, data map[string]string) {
	select {
	case b.ch <- TrackedEvent{Name: name, Data: data}:
	default:
	}
}

// Events returns the receive side of the bridge.
func (b *ChannelBridge) Events() <-chan TrackedEvent {
	return b.ch
}
