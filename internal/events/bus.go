// Package events broadcasts supervisor activity to in-process subscribers.
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers. A nil Bus discards events.
// Usage: bus.Publish(PhaseChangedEvent{...})
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	switch e := ev.(type) {
	case PhaseChangedEvent:
		event.Publish(b.dispatcher, e)
	case SegmentEndedEvent:
		event.Publish(b.dispatcher, e)
	case WatchdogTrippedEvent:
		event.Publish(b.dispatcher, e)
	case EncoderProgressEvent:
		event.Publish(b.dispatcher, e)
	case SettingsReloadedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler type determines which events it receives.
// Returns an unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e SegmentEndedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(PhaseChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SegmentEndedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(WatchdogTrippedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(EncoderProgressEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SettingsReloadedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
