package eventbus

import (
	"testing"
	"time"
)

func TestPublishFansOut(t *testing.T) {
	bus := New()
	a, unsubA := bus.Subscribe(4)
	b, unsubB := bus.Subscribe(4)
	defer unsubA()
	defer unsubB()

	bus.Publish(Event{Topic: ReminderTriggered, Data: "rem-1"})

	for _, ch := range []<-chan Event{a, b} {
		select {
		case ev := <-ch:
			if ev.Topic != ReminderTriggered || ev.Data != "rem-1" || ev.Time.IsZero() {
				t.Fatalf("unexpected event: %+v", ev)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestPublishDropsWhenSubscriberFull(t *testing.T) {
	bus := New()
	_, unsub := bus.Subscribe(1)
	defer unsub()

	bus.Publish(Event{Topic: PatternCreated})
	bus.Publish(Event{Topic: PatternCreated})
	bus.Publish(Event{Topic: PatternCreated})

	if got := Dropped(bus); got != 2 {
		t.Fatalf("expected 2 dropped events, got %d", got)
	}
}

func TestUnsubscribeClosesAndIsIdempotent(t *testing.T) {
	bus := New()
	ch, unsub := bus.Subscribe(1)
	unsub()
	unsub()
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}
	bus.Publish(Event{Topic: PatternDeleted})
}
