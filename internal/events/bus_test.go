package events

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventStrategySignal, 1)
	defer unsub()

	payload := SignalPayload{Strategy: "s1", Symbol: "BTCUSDT", Direction: 1}
	bus.Publish(EventStrategySignal, payload)

	select {
	case msg := <-ch:
		got, ok := msg.(SignalPayload)
		if !ok || got != payload {
			t.Errorf("received %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventOrderPlaced, 1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		bus.Publish(EventOrderPlaced, OrderPayload{OrderID: 1})
		bus.Publish(EventOrderPlaced, OrderPayload{OrderID: 2}) // buffer full, dropped
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	if len(ch) != 1 {
		t.Errorf("buffered = %d, want 1", len(ch))
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventOrderFilled, 1)
	unsub()

	if _, open := <-ch; open {
		t.Error("channel still open after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	bus.Publish(EventOrderFilled, OrderPayload{OrderID: 3})
}

func TestPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus()
	bus.Publish(EventStrategySignal, nil) // no-op
}
