package eventbus

import (
	"testing"
	"time"

	"pkt.systems/notechat/schema"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.OnEvent(schema.Event{Type: schema.EventFragment, SessionID: "1", Fragment: "안녕"})

	select {
	case got := <-ch:
		if got.Type != schema.EventFragment {
			t.Fatalf("expected fragment event, got %v", got.Type)
		}
		if got.SessionID != "1" || got.Fragment != "안녕" {
			t.Fatalf("unexpected payload: %+v", got)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for event")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe()
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed")
	}
	bus.OnEvent(schema.Event{Type: schema.EventStream})
}

func TestPublishDoesNotBlockWhenFull(t *testing.T) {
	bus := New(nil)
	bus.depth = 1
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.OnEvent(schema.Event{Type: schema.EventMessage})
	done := make(chan struct{})
	go func() {
		bus.OnEvent(schema.Event{Type: schema.EventFragment})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("publish blocked on full channel")
	}
	if got := <-ch; got.Type != schema.EventMessage {
		t.Fatalf("expected the first event to be kept, got %v", got.Type)
	}
}
