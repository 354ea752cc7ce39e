// Package broadcaster implements the stream broadcaster: one
// multi-subscriber, replay-capable event stream per in-flight (or already
// terminated) message.
//
// Each stream is a map of subscriber channels guarded by a mutex, with
// non-blocking publish and buffered per-subscriber channels, scoped
// per-message instead of process-wide, and backed by a replay buffer and a
// terminal latch so a late subscriber still sees everything that already
// happened on that stream.
package broadcaster

import (
	"sync"
	"time"

	"github.com/cuemby/promptrelay/pkg/log"
	"github.com/rs/zerolog"
)

// EventType tags the small set of records a stream ever emits.
type EventType string

const (
	EventWaiting   EventType = "waiting"
	EventStarted   EventType = "started"
	EventChunk     EventType = "chunk"
	EventDone      EventType = "done"
	EventError     EventType = "error"
	EventCancelled EventType = "cancelled"
)

// Terminal reports whether t ends a stream; at most one terminal event is
// ever emitted per stream.
func (t EventType) Terminal() bool {
	switch t {
	case EventDone, EventError, EventCancelled:
		return true
	default:
		return false
	}
}

// Event is one record in a stream's replay buffer. Only the fields relevant
// to Type are populated; the zero value of the rest is meaningless.
type Event struct {
	Type EventType

	// waiting
	Position int

	// chunk
	ChunkIndex int
	ChunkText  string

	// done
	Result string

	// error
	ErrorMessage string

	// done / error / cancelled
	CompletedAt time.Time
}

// defaultSubscriberBuffer bounds the per-subscriber channel. An overrun
// disconnects only that subscriber, never the publisher or its peers.
const defaultSubscriberBuffer = 64

// stream is the per-message broadcast unit: a replay buffer, a terminal
// latch, and the set of currently active subscriber channels.
type stream struct {
	mu       sync.Mutex
	replay   []Event
	terminal bool
	subs     map[chan Event]struct{}
}

func newStream() *stream {
	return &stream{subs: make(map[chan Event]struct{})}
}

// publish appends event to the replay buffer and forwards it to every
// current subscriber. If event is terminal, every subscriber channel is
// closed once the event has been delivered, and further publishes are
// no-ops (logged, not panicked — a bug elsewhere should not crash the
// worker mid-loop).
func (s *stream) publish(event Event, logger zerolog.Logger, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminal {
		logger.Warn().Str("message_id", id).Str("event", string(event.Type)).
			Msg("publish after terminal event ignored")
		return
	}

	s.replay = append(s.replay, event)

	for ch := range s.subs {
		select {
		case ch <- event:
		default:
			// Slow subscriber: drop it rather than stall the publisher or
			// any other subscriber.
			delete(s.subs, ch)
			close(ch)
		}
	}

	if event.Type.Terminal() {
		s.terminal = true
		for ch := range s.subs {
			close(ch)
		}
		s.subs = make(map[chan Event]struct{})
	}
}

// subscribe atomically snapshots the replay buffer and, if the stream is not
// yet terminal, registers a new channel for future events. If the stream is
// already terminal, the returned channel is pre-closed: the caller consumes
// exactly the replay snapshot (which ends in the terminal event) and EOF.
func (s *stream) subscribe(bufSize int) (replay []Event, ch chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	replay = append([]Event(nil), s.replay...)

	if s.terminal {
		ch = make(chan Event)
		close(ch)
		return replay, ch
	}

	ch = make(chan Event, bufSize)
	s.subs[ch] = struct{}{}
	return replay, ch
}

func (s *stream) unsubscribe(ch <-chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.subs {
		if c == ch {
			delete(s.subs, c)
			close(c)
			return
		}
	}
}

func (s *stream) subscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Broadcaster owns one stream per message id.
type Broadcaster struct {
	logger zerolog.Logger

	mu      sync.RWMutex
	streams map[string]*stream

	subscriberBuffer int
}

// New returns an empty Broadcaster. subscriberBuffer is the per-subscriber
// channel capacity; zero selects defaultSubscriberBuffer.
func New(subscriberBuffer int) *Broadcaster {
	if subscriberBuffer <= 0 {
		subscriberBuffer = defaultSubscriberBuffer
	}
	return &Broadcaster{
		logger:           log.WithComponent("broadcaster"),
		streams:          make(map[string]*stream),
		subscriberBuffer: subscriberBuffer,
	}
}

// Create ensures a stream exists for id. Idempotent; called by submit.
func (b *Broadcaster) Create(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.streams[id]; !ok {
		b.streams[id] = newStream()
	}
}

// Publish appends event to id's stream and fans it out to subscribers. A
// publish to an id with no stream (Create was never called) is a no-op; this
// should not happen in normal operation and is logged.
func (b *Broadcaster) Publish(id string, event Event) {
	b.mu.RLock()
	s, ok := b.streams[id]
	b.mu.RUnlock()

	if !ok {
		b.logger.Warn().Str("message_id", id).Msg("publish to unknown stream")
		return
	}
	s.publish(event, b.logger, id)
}

// Subscribe registers a new subscriber on id's stream, returning the replay
// snapshot to deliver first and a channel for the live tail. Returns
// found=false if id has no stream at all (e.g. unknown message id).
func (b *Broadcaster) Subscribe(id string) (replay []Event, ch <-chan Event, found bool) {
	b.mu.RLock()
	s, ok := b.streams[id]
	b.mu.RUnlock()
	if !ok {
		return nil, nil, false
	}

	replay, c := s.subscribe(b.subscriberBuffer)
	return replay, c, true
}

// Unsubscribe removes ch from id's stream, if still present. Safe to call
// after the stream has already gone terminal (ch will already be closed and
// this is then a harmless no-op).
func (b *Broadcaster) Unsubscribe(id string, ch <-chan Event) {
	b.mu.RLock()
	s, ok := b.streams[id]
	b.mu.RUnlock()
	if !ok {
		return
	}
	// ch is the receive-only view of a bidirectional channel the stream
	// owns; the stream matches it against its subscriber set by identity.
	s.unsubscribe(ch)
}

// SubscriberCount reports the number of live subscribers on id's stream.
// Used by pkg/metrics; returns 0 for an unknown id.
func (b *Broadcaster) SubscriberCount(id string) int {
	b.mu.RLock()
	s, ok := b.streams[id]
	b.mu.RUnlock()
	if !ok {
		return 0
	}
	return s.subscriberCount()
}
