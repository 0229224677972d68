package events

import (
	"time"

	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher. Delivery is asynchronous and
// ordered per subscriber.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// Publish publishes an event to all subscribers of its concrete type.
// Usage: bus.Publish(ConversionFailedEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case EngineStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case SessionCreatedEvent:
		event.Publish(b.dispatcher, e)
	case SessionDeletedEvent:
		event.Publish(b.dispatcher, e)
	case ConversionStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case ConversionProgressEvent:
		event.Publish(b.dispatcher, e)
	case ConversionCompletedEvent:
		event.Publish(b.dispatcher, e)
	case ConversionFailedEvent:
		event.Publish(b.dispatcher, e)
	case PresetsReloadedEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for the event type named by its parameter and
// returns the unsubscribe function. Unknown handler types get a no-op.
// Usage: unsub := bus.Subscribe(func(e ConversionProgressEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(EngineStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SessionCreatedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SessionDeletedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ConversionStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ConversionProgressEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ConversionCompletedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ConversionFailedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PresetsReloadedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// Now formats the current time the way event timestamps are written.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
