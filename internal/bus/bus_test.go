package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	b.Emit(SessionStatusChanged, "test")

	select {
	case evt := <-ch:
		if evt.Kind != "session.status_changed" {
			t.Errorf("got kind %q, want session.status_changed", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(NSBackend, 10)
	defer unsub()

	b.Publish(Event{Kind: SessionStatusChanged})
	b.Publish(Event{Kind: BackendReady})

	select {
	case evt := <-ch:
		if evt.Kind != BackendReady {
			t.Errorf("got kind %q, want %s", evt.Kind, BackendReady)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	// Ensure session event was not delivered.
	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
		// Expected: no more events.
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("session.", 10)
	unsub()

	b.Publish(Event{Kind: "session.status_changed"})

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
		// Expected.
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("test.", 1)
	defer unsub()

	// Fill buffer.
	b.Publish(Event{Kind: "test.one"})
	// This should be dropped (non-blocking).
	b.Publish(Event{Kind: "test.two"})

	evt := <-ch
	if evt.Kind != "test.one" {
		t.Errorf("got %q, want test.one", evt.Kind)
	}
	if b.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", b.Dropped())
	}
}

func TestEmptyNamespaceGetsEverything(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("", 4)
	defer unsub()

	b.Emit(BackendReady, nil)
	b.Emit(ContactsReplaced, nil)
	for _, want := range []string{BackendReady, ContactsReplaced} {
		if evt := <-ch; evt.Kind != want {
			t.Errorf("got %q, want %q", evt.Kind, want)
		}
	}
}

func TestUnsubscribeTwice(t *testing.T) {
	b := New()
	_, unsub1 := b.Subscribe(NSMessage, 1)
	_, unsub2 := b.Subscribe(NSMessage, 1)
	if b.Subscribers() != 2 {
		t.Fatalf("subscribers = %d, want 2", b.Subscribers())
	}
	unsub1()
	unsub1()
	if b.Subscribers() != 1 {
		t.Errorf("subscribers = %d, want 1", b.Subscribers())
	}
	unsub2()
	if b.Subscribers() != 0 {
		t.Errorf("subscribers = %d, want 0", b.Subscribers())
	}
}

func TestEmitStampsTime(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(NSMessage, 1)
	defer unsub()

	before := time.Now()
	b.Emit(MessageUpserted, 42)
	evt := <-ch
	if evt.Timestamp.Before(before) {
		t.Errorf("timestamp %v before %v", evt.Timestamp, before)
	}
	if evt.Payload.(int) != 42 {
		t.Errorf("payload = %v, want 42", evt.Payload)
	}
}
