// Package scheduler implements the priority scheduler: the
// (priority_rank, sequence)-ordered admission structure that the single
// dispatch worker blocks on.
package scheduler

import (
	"context"
	"sort"
	"sync"

	"github.com/cuemby/promptrelay/pkg/log"
	"github.com/cuemby/promptrelay/pkg/pqueue"
	"github.com/cuemby/promptrelay/pkg/types"
	"github.com/rs/zerolog"
)

// Scheduler is the passive, priority-ordered set of QUEUED message ids. It
// does not know about message state — the dispatch worker re-verifies state
// on every dequeue; Scheduler only orders and best-effort withdraws.
type Scheduler struct {
	logger zerolog.Logger

	mu      sync.Mutex
	pq      *pqueue.PriorityQueue
	items   map[string]*pqueue.Item
	notify  chan struct{} // signaled (non-blocking) whenever the queue becomes non-empty
	closed  bool
	closeCh chan struct{}
}

// New returns an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{
		logger:  log.WithComponent("scheduler"),
		pq:      pqueue.New(0),
		items:   make(map[string]*pqueue.Item),
		notify:  make(chan struct{}, 1),
		closeCh: make(chan struct{}),
	}
}

// Enqueue admits id into the scheduler at the given priority/sequence.
func (s *Scheduler) Enqueue(id string, priority types.Priority, sequence uint64) {
	s.mu.Lock()
	item := &pqueue.Item{ID: id, Priority: priority.Rank(), Sequence: sequence}
	s.pq.Push(item)
	s.items[id] = item
	s.mu.Unlock()

	s.wake()
}

func (s *Scheduler) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// DequeueBlocking removes and returns the head of the queue, blocking while
// empty. It returns ok=false only when Shutdown has been called (or ctx is
// done).
func (s *Scheduler) DequeueBlocking(ctx context.Context) (id string, ok bool) {
	for {
		s.mu.Lock()
		item := s.pq.Pop()
		if item != nil {
			delete(s.items, item.ID)
		}
		closed := s.closed
		s.mu.Unlock()

		if item != nil {
			return item.ID, true
		}
		if closed {
			return "", false
		}

		select {
		case <-s.notify:
			continue
		case <-s.closeCh:
			continue // loop once more: pops anything left, then reports closed
		case <-ctx.Done():
			return "", false
		}
	}
}

// Withdraw removes id from the queue in place if it is still present.
// Reports whether it found and removed an entry. This is only best-effort:
// the authoritative check is the dispatch worker re-checking message state
// after dequeue.
func (s *Scheduler) Withdraw(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, found := s.items[id]
	if !found {
		return false
	}
	s.pq.Remove(item)
	delete(s.items, id)
	return true
}

// Len returns the number of currently queued ids.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pq.Len()
}

// Snapshot returns the queued ids ordered (priority, sequence) ascending —
// i.e. the order they would be dispatched in. Used by store.ListQueued.
func (s *Scheduler) Snapshot() []string {
	s.mu.Lock()
	items := s.pq.Items()
	s.mu.Unlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority < items[j].Priority
		}
		return items[i].Sequence < items[j].Sequence
	})
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

// PriorityCounts returns the number of currently queued ids per priority.
// Used by pkg/metrics to populate the queue depth gauge.
func (s *Scheduler) PriorityCounts() map[types.Priority]int {
	s.mu.Lock()
	items := s.pq.Items()
	s.mu.Unlock()

	counts := map[types.Priority]int{
		types.PriorityHigh:   0,
		types.PriorityNormal: 0,
		types.PriorityLow:    0,
	}
	for _, it := range items {
		switch it.Priority {
		case types.PriorityHigh.Rank():
			counts[types.PriorityHigh]++
		case types.PriorityNormal.Rank():
			counts[types.PriorityNormal]++
		default:
			counts[types.PriorityLow]++
		}
	}
	return counts
}

// Shutdown unblocks every goroutine parked in DequeueBlocking. Idempotent.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	close(s.closeCh)
	s.logger.Info().Msg("scheduler shutdown")
}
