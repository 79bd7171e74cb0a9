package event

import (
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()

	bus.Publish(New(TaskStarted, IDPayload{ID: "b1_v1"}))

	select {
	case ev := <-ch:
		if ev.Type != TaskStarted {
			t.Errorf("type = %s, want %s", ev.Type, TaskStarted)
		}
		if p, ok := ev.Data.(IDPayload); !ok || p.ID != "b1_v1" {
			t.Errorf("unexpected payload: %#v", ev.Data)
		}
		if ev.Timestamp.IsZero() {
			t.Error("timestamp not set")
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()
	bus.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}

	// Publishing after unsubscribe must not panic
	bus.Publish(New(BatchCompleted, nil))
}

func TestBusSlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus()
	_ = bus.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			bus.Publish(New(TaskProgress, ProgressPayload{ID: "x"}))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
