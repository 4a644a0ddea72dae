package broadcast

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/seaguard/go-spill-tracker/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBroadcaster_SubscribeUnsubscribe(t *testing.T) {
	b := New()

	id, ch := b.Subscribe()
	if b.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber, got %d", b.SubscriberCount())
	}

	b.Unsubscribe(id)
	if b.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", b.SubscriberCount())
	}

	// Channel should be closed
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to be closed")
		}
	default:
		t.Error("channel should be closed and readable")
	}
}

func TestBroadcaster_Publish(t *testing.T) {
	b := New()

	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)

	ev := models.SpillEvent{
		Type:        models.SpillEventStarted,
		SessionID:   "sess_1",
		Latitude:    23.0,
		Longitude:   58.0,
		VolumeClass: "small",
		Timestamp:   time.Now().UTC(),
	}

	b.Publish(ev)

	select {
	case received := <-ch:
		if received.SessionID != ev.SessionID {
			t.Errorf("expected session %s, got %s", ev.SessionID, received.SessionID)
		}
		if received.Type != models.SpillEventStarted {
			t.Errorf("expected type %s, got %s", models.SpillEventStarted, received.Type)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for event")
	}
}

func TestBroadcaster_SlowSubscriberSkipped(t *testing.T) {
	b := New()

	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)

	// Fill the buffer without draining, then publish past it. The
	// publisher must not block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			b.Publish(models.SpillEvent{Type: models.SpillEventSiteHit, SessionID: "s"})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	if len(ch) != cap(ch) {
		t.Errorf("expected a full buffer of %d, got %d", cap(ch), len(ch))
	}
}

func TestBroadcaster_ConcurrentSubscribeUnsubscribe(t *testing.T) {
	b := New()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, _ := b.Subscribe()
			time.Sleep(time.Millisecond)
			b.Unsubscribe(id)
		}()
	}

	wg.Wait()

	if b.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after cleanup, got %d", b.SubscriberCount())
	}
}

func TestBroadcaster_Close(t *testing.T) {
	b := New()

	_, ch1 := b.Subscribe()
	_, ch2 := b.Subscribe()

	b.Close()

	if b.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after close, got %d", b.SubscriberCount())
	}
	for _, ch := range []<-chan models.SpillEvent{ch1, ch2} {
		if _, ok := <-ch; ok {
			t.Error("expected channel to be closed")
		}
	}
}
