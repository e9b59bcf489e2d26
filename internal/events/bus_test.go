package events

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"jurnalguru/store"
)

func TestPublishReachesSubscribers(t *testing.T) {
	bus := NewBus(4)
	a, stopA := bus.Subscribe()
	defer stopA()
	b, stopB := bus.Subscribe()
	defer stopB()

	bus.Publish(Change{Collection: store.Classes, Op: store.OpCreate})

	for _, ch := range []<-chan Change{a, b} {
		select {
		case c := <-ch:
			if c.Collection != store.Classes || c.Op != store.OpCreate {
				t.Errorf("Unexpected change %+v", c)
			}
		case <-time.After(time.Second):
			t.Fatal("Subscriber did not receive the change")
		}
	}
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	bus := NewBus(1)
	_, stop := bus.Subscribe()
	defer stop()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(Change{Collection: store.Grades, Op: store.OpUpdate})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus(1)
	ch, stop := bus.Subscribe()
	stop()
	stop()

	if _, ok := <-ch; ok {
		t.Error("Channel should be closed after unsubscribe")
	}
	bus.Publish(Change{Collection: store.Ideas, Op: store.OpDelete})
}

func TestAttachPublishesStoreWrites(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	bus := NewBus(8)
	ch, stop := bus.Subscribe()
	defer stop()

	if !Attach(s, bus) {
		t.Fatal("First Attach should install hooks")
	}
	if Attach(s, bus) {
		t.Error("Second Attach should be a no-op")
	}

	ctx := context.Background()
	if _, err := store.Insert(ctx, s.Collection(store.Ideas), store.Idea{Title: "Kuis kahoot", Type: "text"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	select {
	case c := <-ch:
		if c.Collection != store.Ideas || c.Op != store.OpCreate {
			t.Errorf("Unexpected change %+v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("No change published")
	}

	select {
	case c := <-ch:
		t.Errorf("Expected exactly one notification, got extra %+v", c)
	default:
	}
}
