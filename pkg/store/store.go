// Package store is the message store and thread index: the single source of
// truth for every message's lifecycle state and the derived per-thread
// metadata kept in lockstep with it.
//
// Store owns exactly one write lock shared by the message table, the thread
// index, and the submit sequence counter, guarding all of its in-memory
// state behind a single mutex rather than one lock per collection.
// pkg/scheduler and pkg/broadcaster are driven from inside that lock at the
// points a message's state must change atomically with the scheduler queue
// and the stream.
package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cuemby/promptrelay/pkg/apierr"
	"github.com/cuemby/promptrelay/pkg/broadcaster"
	"github.com/cuemby/promptrelay/pkg/log"
	"github.com/cuemby/promptrelay/pkg/metrics"
	"github.com/cuemby/promptrelay/pkg/scheduler"
	"github.com/cuemby/promptrelay/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config bounds Store's admission behavior.
type Config struct {
	// MaxQueueSize is the maximum number of QUEUED messages admitted at
	// once. Zero means unbounded.
	MaxQueueSize int
}

// Store is the message table plus derived thread index.
type Store struct {
	logger zerolog.Logger
	cfg    Config

	sched *scheduler.Scheduler
	bcast *broadcaster.Broadcaster

	mu           sync.Mutex
	messages     map[string]*types.Message
	threads      map[string]*types.ThreadMetadata
	threadOrder  map[string][]string // thread id -> message ids, submit order
	nextSequence uint64
	queuedCount  int
}

// New returns an empty Store wired to sched and bcast.
func New(cfg Config, sched *scheduler.Scheduler, bcast *broadcaster.Broadcaster) *Store {
	return &Store{
		logger:      log.WithComponent("store"),
		cfg:         cfg,
		sched:       sched,
		bcast:       bcast,
		messages:    make(map[string]*types.Message),
		threads:     make(map[string]*types.ThreadMetadata),
		threadOrder: make(map[string][]string),
	}
}

// maxPromptLen bounds the accepted size of a submitted prompt, generously;
// it exists only to keep a single pathological request from growing the
// in-memory store unboundedly.
const maxPromptLen = 64 * 1024

// Submit validates and admits a new message, enqueuing it with the
// scheduler and opening its broadcast stream. Returns apierr.ErrInvalidInput
// for a blank prompt, an oversize thread id, or an unrecognized priority,
// and apierr.ErrQueueFull once MaxQueueSize QUEUED messages are outstanding.
func (s *Store) Submit(userMessage string, priority types.Priority, threadID string) (*types.Message, error) {
	userMessage = strings.TrimSpace(userMessage)
	if userMessage == "" || len(userMessage) > maxPromptLen {
		return nil, apierr.ErrInvalidInput
	}
	if len(threadID) > types.ThreadIDMaxLen {
		return nil, apierr.ErrInvalidInput
	}
	if priority == "" {
		priority = types.PriorityNormal
	}
	if !priority.Valid() {
		return nil, apierr.ErrInvalidInput
	}

	s.mu.Lock()

	if s.cfg.MaxQueueSize > 0 && s.queuedCount >= s.cfg.MaxQueueSize {
		s.mu.Unlock()
		return nil, apierr.ErrQueueFull
	}

	now := time.Now()
	s.nextSequence++
	seq := s.nextSequence

	msg := &types.Message{
		ID:          uuid.NewString(),
		UserMessage: userMessage,
		Priority:    priority,
		ThreadID:    threadID,
		State:       types.StateQueued,
		CreatedAt:   now,
		Sequence:    seq,
	}
	s.messages[msg.ID] = msg
	s.queuedCount++

	// position is the admission ordinal, not a live queue rank: it does not
	// shift as higher-priority work is admitted or dispatched ahead of it.
	position := s.queuedCount
	msg.QueuePosition = &position
	if threadID != "" {
		s.indexThreadLocked(threadID, msg)
	}

	s.bcast.Create(msg.ID)
	s.sched.Enqueue(msg.ID, priority, seq)
	s.bcast.Publish(msg.ID, broadcaster.Event{Type: broadcaster.EventWaiting, Position: position})

	s.mu.Unlock()

	s.logger.Info().Str("message_id", msg.ID).Str("priority", string(priority)).
		Str("thread_id", threadID).Msg("message submitted")

	return msg.Clone(), nil
}

// indexThreadLocked creates or updates threadID's metadata for a newly
// submitted message. Caller holds s.mu.
func (s *Store) indexThreadLocked(threadID string, msg *types.Message) {
	tm, ok := s.threads[threadID]
	if !ok {
		tm = &types.ThreadMetadata{
			ThreadID:  threadID,
			CreatedAt: msg.CreatedAt,
			States:    make(map[types.State]int),
		}
		s.threads[threadID] = tm
	}
	tm.MessageCount++
	tm.LastActivity = msg.CreatedAt
	tm.States[msg.State]++
	tm.LastMessagePreview = types.TruncatePreview(msg.UserMessage)
	s.threadOrder[threadID] = append(s.threadOrder[threadID], msg.ID)

	s.assertThreadConsistencyLocked(tm)
}

// assertThreadConsistencyLocked verifies that a thread's per-state counts
// sum to its message count. A mismatch means the index has desynced from
// the message table — a bug, not a runtime condition a caller can recover
// from — so it is logged and the process exits.
func (s *Store) assertThreadConsistencyLocked(tm *types.ThreadMetadata) {
	sum := 0
	for _, c := range tm.States {
		sum += c
	}
	if sum != tm.MessageCount {
		log.WithThreadID(s.logger, tm.ThreadID).Fatal().
			Int("message_count", tm.MessageCount).Int("state_sum", sum).
			Msg("thread index desynced from message table")
	}
}

// Get returns a copy of the message with id, or apierr.ErrNotFound.
func (s *Store) Get(id string) (*types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, apierr.ErrNotFound
	}
	return msg.Clone(), nil
}

// transitionLocked moves msg from its current state to `to`, bumping the
// thread index's state histogram to match. Caller holds s.mu and has
// already verified `to` is a legal destination from msg.State.
func (s *Store) transitionLocked(msg *types.Message, to types.State) {
	from := msg.State
	if msg.ThreadID != "" {
		if tm, ok := s.threads[msg.ThreadID]; ok {
			tm.States[from]--
			tm.States[to]++
			tm.LastActivity = time.Now()
			s.assertThreadConsistencyLocked(tm)
		}
	}
	msg.State = to
	if from == types.StateQueued && to != types.StateQueued {
		msg.QueuePosition = nil
	}
}

// MarkProcessing transitions id from QUEUED to PROCESSING. Called by the
// dispatch worker immediately after a successful dequeue; if the message is
// no longer QUEUED (it was cancelled between enqueue and dispatch), it
// returns apierr.ErrInvalidTransition and the worker silently moves on.
func (s *Store) MarkProcessing(id string) (*types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, apierr.ErrNotFound
	}
	if !types.CanTransition(msg.State, types.StateProcessing) {
		return nil, apierr.ErrInvalidTransition
	}

	s.queuedCount--
	now := time.Now()
	msg.StartedAt = &now
	waited := now.Sub(msg.CreatedAt)
	s.transitionLocked(msg, types.StateProcessing)

	metrics.QueueWaitDuration.Observe(waited.Seconds())

	return msg.Clone(), nil
}

// AppendChunk appends a chunk to a PROCESSING message and publishes it.
// Returns apierr.ErrInvalidTransition if the message is not PROCESSING —
// the dispatch worker is the only caller and never calls this outside a
// message it is actively processing, so this indicates a bug if it fires.
func (s *Store) AppendChunk(id string, index int, text string) error {
	s.mu.Lock()
	msg, ok := s.messages[id]
	if !ok {
		s.mu.Unlock()
		return apierr.ErrNotFound
	}
	if msg.State != types.StateProcessing {
		s.mu.Unlock()
		return apierr.ErrInvalidTransition
	}
	msg.Chunks = append(msg.Chunks, types.Chunk{Index: index, Text: text})
	s.mu.Unlock()

	s.bcast.Publish(id, broadcaster.Event{Type: broadcaster.EventChunk, ChunkIndex: index, ChunkText: text})
	return nil
}

// MarkStarted publishes the "started" event once processing begins,
// separately from the state transition so the dispatch worker can publish
// it exactly when it starts calling the responder, not when the store
// record changes (the two are adjacent but distinct operations).
func (s *Store) MarkStarted(id string) {
	s.bcast.Publish(id, broadcaster.Event{Type: broadcaster.EventStarted})
}

// Complete transitions id from PROCESSING to COMPLETED with the given
// result, publishes the terminal "done" event, and records metrics.
func (s *Store) Complete(id string, result string) error {
	return s.finish(id, types.StateCompleted, func(msg *types.Message) {
		msg.Result = &result
	}, broadcaster.Event{Type: broadcaster.EventDone, Result: result})
}

// Fail transitions id from PROCESSING to FAILED with the given error
// message, publishes the terminal "error" event, and records metrics.
func (s *Store) Fail(id string, errMsg string) error {
	return s.finish(id, types.StateFailed, func(msg *types.Message) {
		msg.Error = &errMsg
	}, broadcaster.Event{Type: broadcaster.EventError, ErrorMessage: errMsg})
}

func (s *Store) finish(id string, to types.State, apply func(*types.Message), event broadcaster.Event) error {
	s.mu.Lock()
	msg, ok := s.messages[id]
	if !ok {
		s.mu.Unlock()
		return apierr.ErrNotFound
	}
	if !types.CanTransition(msg.State, to) {
		s.mu.Unlock()
		return apierr.ErrInvalidTransition
	}

	now := time.Now()
	msg.CompletedAt = &now
	apply(msg)
	s.transitionLocked(msg, to)

	var startedAt time.Time
	if msg.StartedAt != nil {
		startedAt = *msg.StartedAt
	}
	s.mu.Unlock()

	event.CompletedAt = now
	s.bcast.Publish(id, event)

	metrics.MessagesTotal.WithLabelValues(string(to)).Inc()
	if !startedAt.IsZero() {
		metrics.ProcessingDuration.Observe(now.Sub(startedAt).Seconds())
	}

	return nil
}

// Cancel transitions id from QUEUED to CANCELLED. Returns
// apierr.ErrNotCancellable if the message is not currently QUEUED (it is
// already PROCESSING or terminal).
func (s *Store) Cancel(id string) error {
	s.mu.Lock()
	msg, ok := s.messages[id]
	if !ok {
		s.mu.Unlock()
		return apierr.ErrNotFound
	}
	if msg.State != types.StateQueued {
		s.mu.Unlock()
		return apierr.ErrNotCancellable
	}

	s.queuedCount--
	now := time.Now()
	msg.CompletedAt = &now
	s.transitionLocked(msg, types.StateCancelled)
	s.sched.Withdraw(id)
	s.bcast.Publish(id, broadcaster.Event{Type: broadcaster.EventCancelled, CompletedAt: now})
	s.mu.Unlock()

	metrics.MessagesTotal.WithLabelValues(string(types.StateCancelled)).Inc()

	s.logger.Info().Str("message_id", id).Msg("message cancelled")
	return nil
}

// ListQueued returns QUEUED messages in dispatch order (the order the
// scheduler would hand them to the dispatch worker).
func (s *Store) ListQueued() []*types.Message {
	ids := s.sched.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.Message, 0, len(ids))
	for _, id := range ids {
		if msg, ok := s.messages[id]; ok && msg.State == types.StateQueued {
			out = append(out, msg.Clone())
		}
	}
	return out
}

// Summary is the aggregate view backing GET /queue.
type Summary struct {
	Queued     int
	Processing int
	Completed  int
	Failed     int
	Cancelled  int
}

// Summary reports message counts by state across the whole store.
func (s *Store) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sm Summary
	for _, msg := range s.messages {
		switch msg.State {
		case types.StateQueued:
			sm.Queued++
		case types.StateProcessing:
			sm.Processing++
		case types.StateCompleted:
			sm.Completed++
		case types.StateFailed:
			sm.Failed++
		case types.StateCancelled:
			sm.Cancelled++
		}
	}
	return sm
}

// Threads returns every tracked thread's metadata, ordered by most recently
// active first.
func (s *Store) Threads() []*types.ThreadMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.ThreadMetadata, 0, len(s.threads))
	for _, tm := range s.threads {
		out = append(out, tm.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out
}

// ThreadMetadata returns a single thread's metadata, or apierr.ErrNotFound.
func (s *Store) ThreadMetadata(threadID string) (*types.ThreadMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tm, ok := s.threads[threadID]
	if !ok {
		return nil, apierr.ErrNotFound
	}
	return tm.Clone(), nil
}

// ThreadMessages returns threadID's messages in submission order, or
// apierr.ErrNotFound if the thread does not exist.
func (s *Store) ThreadMessages(threadID string) ([]*types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, ok := s.threadOrder[threadID]
	if !ok {
		return nil, apierr.ErrNotFound
	}
	out := make([]*types.Message, 0, len(ids))
	for _, id := range ids {
		if msg, ok := s.messages[id]; ok {
			out = append(out, msg.Clone())
		}
	}
	return out, nil
}

// ThreadCount reports the number of distinct threads tracked. Satisfies
// pkg/metrics.ThreadSampler.
func (s *Store) ThreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.threads)
}
