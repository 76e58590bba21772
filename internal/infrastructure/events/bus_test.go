package events

import (
	"testing"
	"time"

	"github.com/adforge/creative-engine-go/internal/shared"
)

func TestSubscribeReceivesMatchingType(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch := bus.Subscribe(shared.EventRankCompleted)
	bus.EmitRankCompleted("user-1", 3, 1)

	select {
	case event := <-ch:
		if event.Type != shared.EventRankCompleted {
			t.Errorf("wrong type: %s", event.Type)
		}
		if event.UserID != "user-1" {
			t.Errorf("wrong user: %s", event.UserID)
		}
		if event.Payload["ranked_count"] != 3 {
			t.Errorf("payload = %+v", event.Payload)
		}
		if event.Timestamp == 0 {
			t.Error("timestamp not set")
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestSubscribeIgnoresOtherTypes(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch := bus.Subscribe(shared.EventGenomeShock)
	bus.EmitRankCompleted("user-1", 1, 0)

	select {
	case event := <-ch:
		t.Fatalf("unexpected delivery: %+v", event)
	default:
	}
}

func TestSubscribeAllReceivesEverything(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch := bus.SubscribeAll()
	bus.EmitGenomeUpdated("user-1", 0.42, 2)
	bus.EmitMutationGenerated("user-1", 5, map[string]int{"exploit": 3, "explore": 2})

	for _, want := range []shared.EventType{shared.EventGenomeUpdated, shared.EventMutationGenerated} {
		select {
		case event := <-ch:
			if event.Type != want {
				t.Errorf("got %s, want %s", event.Type, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("missing %s", want)
		}
	}
}

func TestHandlersRunOnEmit(t *testing.T) {
	bus := New()
	defer bus.Close()

	var seen []shared.EventType
	bus.On(shared.EventGenomeShock, func(event shared.Event) {
		seen = append(seen, event.Type)
	})
	bus.On("*", func(event shared.Event) {
		seen = append(seen, "wildcard:"+event.Type)
	})

	bus.EmitGenomeShock("user-1", shared.ShockEvent{Reason: "confidence_shock:rolling_roas_below_0.7", Before: 0.5, After: 0.4})

	if len(seen) != 2 {
		t.Fatalf("handlers fired %d times, want 2", len(seen))
	}
}

func TestFullBufferDoesNotBlock(t *testing.T) {
	bus := New(WithBufferSize(1))
	defer bus.Close()

	bus.Subscribe(shared.EventRankCompleted)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.EmitRankCompleted("user-1", i, 0)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked on a full subscriber")
	}
}

func TestEmitAfterCloseIsNoOp(t *testing.T) {
	bus := New()
	ch := bus.SubscribeAll()
	bus.Close()

	bus.EmitRankCompleted("user-1", 1, 0)

	if _, open := <-ch; open {
		t.Fatal("channel should be closed")
	}
}
