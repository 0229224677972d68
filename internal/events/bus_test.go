package events

import (
	"sync"
	"testing"
	"time"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
		var zero T
		return zero
	}
}

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan ConversionFailedEvent, 1)

	unsub := bus.Subscribe(func(e ConversionFailedEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(ConversionFailedEvent{SessionID: "s1", Message: "Error compressing video"})

	if got := receive(t, received); got.SessionID != "s1" {
		t.Errorf("session_id = %q, want s1", got.SessionID)
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := New()
	received1 := make(chan SessionCreatedEvent, 1)
	received2 := make(chan SessionCreatedEvent, 1)

	unsub1 := bus.Subscribe(func(e SessionCreatedEvent) { received1 <- e })
	defer unsub1()
	unsub2 := bus.Subscribe(func(e SessionCreatedEvent) { received2 <- e })
	defer unsub2()

	bus.Publish(SessionCreatedEvent{SessionID: "s1", FileName: "clip.mp4"})

	receive(t, received1)
	receive(t, received2)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan ConversionProgressEvent, 1)

	unsub := bus.Subscribe(func(e ConversionProgressEvent) { received <- e })

	bus.Publish(ConversionProgressEvent{SessionID: "s1", Percent: 10})
	receive(t, received)

	unsub()

	bus.Publish(ConversionProgressEvent{SessionID: "s1", Percent: 20})
	select {
	case <-received:
		t.Fatal("received event after unsubscribe")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()
	completed := make(chan bool, 1)
	failed := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(ConversionCompletedEvent) { completed <- true })
	defer unsub1()
	unsub2 := bus.Subscribe(func(ConversionFailedEvent) { failed <- true })
	defer unsub2()

	bus.Publish(ConversionCompletedEvent{SessionID: "s1"})
	receive(t, completed)

	select {
	case <-failed:
		t.Fatal("failure subscriber received a completion")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBus_UnknownHandler(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	unsub() // no-op, must not panic
}

func TestBus_ThreadSafety(t *testing.T) {
	bus := New()
	const goroutines, perGoroutine = 10, 100
	receivedCh := make(chan bool, goroutines*perGoroutine)

	unsub := bus.Subscribe(func(ConversionProgressEvent) { receivedCh <- true })
	defer unsub()

	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perGoroutine {
				bus.Publish(ConversionProgressEvent{SessionID: "s1"})
			}
		}()
	}
	wg.Wait()

	for range goroutines * perGoroutine {
		receive(t, receivedCh)
	}
}

func TestBus_AllEventTypes(t *testing.T) {
	bus := New()
	received := make(chan Event, 16)

	unsubs := []func(){
		bus.Subscribe(func(e EngineStateChangedEvent) { received <- e }),
		bus.Subscribe(func(e SessionCreatedEvent) { received <- e }),
		bus.Subscribe(func(e SessionDeletedEvent) { received <- e }),
		bus.Subscribe(func(e ConversionStateChangedEvent) { received <- e }),
		bus.Subscribe(func(e ConversionProgressEvent) { received <- e }),
		bus.Subscribe(func(e ConversionCompletedEvent) { received <- e }),
		bus.Subscribe(func(e ConversionFailedEvent) { received <- e }),
		bus.Subscribe(func(e PresetsReloadedEvent) { received <- e }),
		bus.Subscribe(func(e LogEntryEvent) { received <- e }),
	}
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()

	all := []Event{
		EngineStateChangedEvent{State: "ready"},
		SessionCreatedEvent{SessionID: "s1"},
		SessionDeletedEvent{SessionID: "s1"},
		ConversionStateChangedEvent{SessionID: "s1", State: "compressing"},
		ConversionProgressEvent{SessionID: "s1", Percent: 50},
		ConversionCompletedEvent{SessionID: "s1"},
		ConversionFailedEvent{SessionID: "s1"},
		PresetsReloadedEvent{Count: 4},
		LogEntryEvent{Seq: 1},
	}

	for _, ev := range all {
		bus.Publish(ev)
		if got := receive(t, received); got.Type() != ev.Type() {
			t.Errorf("published type %d, received %d", ev.Type(), got.Type())
		}
	}
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 10)

	unsub := SubscribeToChannel[EngineStateChangedEvent](bus, ch)
	defer unsub()

	bus.Publish(EngineStateChangedEvent{State: "loading"})

	got, ok := receive(t, ch).(EngineStateChangedEvent)
	if !ok || got.State != "loading" {
		t.Errorf("received %#v, want loading engine event", got)
	}
}

func TestSubscribeToChannel_NonBlocking(t *testing.T) {
	bus := New()
	ch := make(chan any) // unbuffered, never read

	unsub := SubscribeToChannel[SessionCreatedEvent](bus, ch)
	defer unsub()

	done := make(chan bool, 1)
	go func() {
		bus.Publish(SessionCreatedEvent{SessionID: "s1"})
		bus.Publish(SessionCreatedEvent{SessionID: "s2"})
		done <- true
	}()
	receive(t, done)
}
