// Package telemetry exposes a session's lifecycle and position events to
// an external observer over HTTP/3, as a single newline-delimited JSON
// event stream rather than a full media relay. Grounded on
// zsiec-prism/internal/distribution/server.go's quic.Config/http3.Server
// setup and its per-viewer stats push loop (statsInterval,
// statsMessage), narrowed from "relay decoded media to many viewers over
// MoQ" to "push one session's HostCallbacks events to any number of
// observers over one control stream each".
package telemetry

import (
	"encoding/json"
	"sync"

	"github.com/ashgrove/reelengine/internal/media"
	"github.com/ashgrove/reelengine/internal/session"
)

// EventType identifies the kind of payload carried by an Event.
type EventType string

const (
	EventPosition     EventType = "position"
	EventMediaEnded   EventType = "media_ended"
	EventMediaFailed  EventType = "media_failed"
	EventQueueChanged EventType = "queue_changed"
)

// Event is the JSON frame pushed to every connected observer, one per
// line. Fields not relevant to Type are omitted.
type Event struct {
	Type EventType `json:"type"`

	PositionMs int64 `json:"positionMs,omitempty"`

	Error string `json:"error,omitempty"`

	QueueType        string `json:"queueType,omitempty"`
	QueueBufferCount int    `json:"queueBufferCount,omitempty"`
	QueueBufferBytes int    `json:"queueBufferBytes,omitempty"`
}

// Hub fans Events out to every currently-connected observer. Slow
// observers are dropped rather than allowed to backpressure publishers,
// matching spec.md §6's host-callback contract that playback itself must
// never stall on an external consumer.
type Hub struct {
	mu        sync.Mutex
	observers map[chan Event]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{observers: make(map[chan Event]struct{})}
}

// Subscribe registers a new observer channel and returns it along with
// an unsubscribe function. The channel is buffered so a publish never
// blocks on a slow reader for long; a full channel causes that one
// event to be dropped for that observer.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 32)
	h.mu.Lock()
	h.observers[ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		delete(h.observers, ch)
		h.mu.Unlock()
		close(ch)
	}
	return ch, unsubscribe
}

// Publish fans e out to every current observer, non-blocking.
func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.observers {
		select {
		case ch <- e:
		default:
		}
	}
}

// Bind returns HostCallbacks that publish to h, chaining any callbacks
// already set in prior so both still fire (e.g. a host wanting its own
// handling alongside telemetry). Pass the result to
// session.Engine.SetHostCallbacks before Open.
func (h *Hub) Bind(prior session.HostCallbacks) session.HostCallbacks {
	return session.HostCallbacks{
		OnMediaEnded: chain0(prior.OnMediaEnded, func() {
			h.Publish(Event{Type: EventMediaEnded})
		}),
		OnMediaFailed: chain1(prior.OnMediaFailed, func(err error) {
			h.Publish(Event{Type: EventMediaFailed, Error: err.Error()})
		}),
		OnPositionChanged: chainTimestamp(prior.OnPositionChanged, func(t media.Timestamp) {
			h.Publish(Event{Type: EventPosition, PositionMs: t.Duration().Milliseconds()})
		}),
		OnPacketQueueChanged: chainQueue(prior.OnPacketQueueChanged, func(t media.Type, count, length int) {
			h.Publish(Event{Type: EventQueueChanged, QueueType: t.String(), QueueBufferCount: count, QueueBufferBytes: length})
		}),
	}
}

func chain0(a, b func()) func() {
	return func() {
		if a != nil {
			a()
		}
		b()
	}
}

func chain1(a, b func(error)) func(error) {
	return func(err error) {
		if a != nil {
			a(err)
		}
		b(err)
	}
}

func chainTimestamp(a, b func(media.Timestamp)) func(media.Timestamp) {
	return func(t media.Timestamp) {
		if a != nil {
			a(t)
		}
		b(t)
	}
}

func chainQueue(a, b func(media.Type, int, int)) func(media.Type, int, int) {
	return func(t media.Type, count, length int) {
		if a != nil {
			a(t, count, length)
		}
		b(t, count, length)
	}
}

// marshalLine is a test seam: Event -> newline-terminated JSON.
func marshalLine(e Event) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
