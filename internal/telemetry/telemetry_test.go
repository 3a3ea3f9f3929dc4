package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/ashgrove/reelengine/internal/media"
	"github.com/ashgrove/reelengine/internal/session"
)

func TestHubPublishDeliversToAllSubscribers(t *testing.T) {
	t.Parallel()

	h := NewHub()
	ch1, unsub1 := h.Subscribe()
	defer unsub1()
	ch2, unsub2 := h.Subscribe()
	defer unsub2()

	h.Publish(Event{Type: EventMediaEnded})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case e := <-ch:
			if e.Type != EventMediaEnded {
				t.Errorf("got type %q, want %q", e.Type, EventMediaEnded)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber never received the published event")
		}
	}
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	h := NewHub()
	ch, unsub := h.Subscribe()
	unsub()

	h.Publish(Event{Type: EventMediaEnded})

	if _, ok := <-ch; ok {
		t.Error("channel still open and delivering after Unsubscribe")
	}
}

func TestHubPublishNeverBlocksOnFullSubscriber(t *testing.T) {
	t.Parallel()

	h := NewHub()
	_, unsub := h.Subscribe()
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			h.Publish(Event{Type: EventPosition, PositionMs: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a subscriber that never drains its channel")
	}
}

func TestBindChainsPriorCallbacksAndPublishesEvents(t *testing.T) {
	t.Parallel()

	h := NewHub()
	ch, unsub := h.Subscribe()
	defer unsub()

	var priorCalled bool
	hooks := h.Bind(session.HostCallbacks{
		OnMediaEnded: func() { priorCalled = true },
	})

	hooks.OnMediaEnded()
	if !priorCalled {
		t.Error("Bind dropped the prior OnMediaEnded callback")
	}
	select {
	case e := <-ch:
		if e.Type != EventMediaEnded {
			t.Errorf("got type %q, want %q", e.Type, EventMediaEnded)
		}
	case <-time.After(time.Second):
		t.Fatal("Bind's OnMediaEnded never published to the hub")
	}

	hooks.OnMediaFailed(errors.New("boom"))
	select {
	case e := <-ch:
		if e.Type != EventMediaFailed || e.Error != "boom" {
			t.Errorf("got %+v, want media_failed/boom", e)
		}
	case <-time.After(time.Second):
		t.Fatal("Bind's OnMediaFailed never published to the hub")
	}

	hooks.OnPositionChanged(media.FromDuration(250 * time.Millisecond))
	select {
	case e := <-ch:
		if e.Type != EventPosition || e.PositionMs != 250 {
			t.Errorf("got %+v, want position/250ms", e)
		}
	case <-time.After(time.Second):
		t.Fatal("Bind's OnPositionChanged never published to the hub")
	}

	hooks.OnPacketQueueChanged(media.Audio, 4, 4096)
	select {
	case e := <-ch:
		if e.Type != EventQueueChanged || e.QueueBufferCount != 4 || e.QueueBufferBytes != 4096 {
			t.Errorf("got %+v, want queue_changed/4/4096", e)
		}
	case <-time.After(time.Second):
		t.Fatal("Bind's OnPacketQueueChanged never published to the hub")
	}
}

func TestMarshalLineProducesNewlineTerminatedJSON(t *testing.T) {
	t.Parallel()

	line, err := marshalLine(Event{Type: EventMediaEnded})
	if err != nil {
		t.Fatalf("marshalLine: %v", err)
	}
	if len(line) == 0 || line[len(line)-1] != '\n' {
		t.Errorf("marshalLine output not newline-terminated: %q", line)
	}
}
