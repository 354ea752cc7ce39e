/*
Package scheduler implements the priority-ordered admission queue.

QUEUED messages are ordered by (priority_rank, sequence), where HIGH=1,
NORMAL=2, LOW=3 and sequence is the monotonic submit counter assigned by
pkg/store. The minimum pair dispatches next; FIFO within a priority falls
out of the sequence tiebreaker.

# Best-effort withdrawal

Cancelling a QUEUED message removes its entry from the scheduler in place
(O(log n), via container/heap's Remove through pkg/pqueue) when it can, but
this is advisory only. The authoritative mechanism is the dispatch worker:
every dequeue re-checks that the message is still in state QUEUED before
transitioning it, and silently skips it otherwise. This keeps Scheduler
itself state-ignorant — it only ever holds ids, never touches pkg/store.

# Blocking dequeue

DequeueBlocking parks the calling goroutine until Enqueue signals a waiter
or Shutdown is called; it never busy-polls.
*/
package scheduler
