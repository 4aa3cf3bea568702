package events

import (
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan SessionOpenedEvent, 1)

	unsub := bus.Subscribe(func(e SessionOpenedEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(SessionOpenedEvent{SessionID: 7, Timestamp: "2025-01-27T10:30:00Z"})

	select {
	case got := <-received:
		if got.SessionID != 7 {
			t.Errorf("Expected session_id 7, got %d", got.SessionID)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_TypeRouting(t *testing.T) {
	bus := New()
	opened := make(chan SessionOpenedEvent, 1)
	closed := make(chan SessionClosedEvent, 1)

	defer bus.Subscribe(func(e SessionOpenedEvent) { opened <- e })()
	defer bus.Subscribe(func(e SessionClosedEvent) { closed <- e })()

	bus.Publish(SessionClosedEvent{SessionID: 3})

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("closed event not delivered")
	}

	select {
	case <-opened:
		t.Fatal("opened subscriber received a closed event")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan LineChangedEvent, 1)

	unsub := bus.Subscribe(func(e LineChangedEvent) {
		received <- e
	})

	bus.Publish(LineChangedEvent{Command: "on"})
	<-received

	unsub()

	bus.Publish(LineChangedEvent{Command: "off"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
		// Expected - no event
	}
}

func TestBus_NilPublish(t *testing.T) {
	var bus *Bus
	bus.Publish(StateChangedEvent{From: "ready", To: "terminated"})
}

func TestBus_UnknownHandler(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	unsub()
}

func TestSubscribeToChannel_DropsWhenFull(t *testing.T) {
	bus := New()
	ch := make(chan any, 1)
	unsub := SubscribeToChannel[TransferFaultEvent](bus, ch)
	defer unsub()

	bus.Publish(TransferFaultEvent{SessionID: 1})
	bus.Publish(TransferFaultEvent{SessionID: 2})

	deadline := time.After(time.Second)
	select {
	case ev := <-ch:
		if _, ok := ev.(TransferFaultEvent); !ok {
			t.Fatalf("unexpected event type %T", ev)
		}
	case <-deadline:
		t.Fatal("no event delivered")
	}
}
