package events

import "github.com/kelindar/event"

// SubscribeToChannel bridges a callback subscription to a channel for the
// SSE select loops. Events are dropped while ch is full.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}
