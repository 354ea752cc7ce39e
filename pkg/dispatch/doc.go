/*
Package dispatch implements the single dispatch worker: the only writer
that ever moves a message out of QUEUED.

# Re-verification, not heap deletion

Every dequeue is followed by a store call that re-checks the message is
still QUEUED before transitioning it to PROCESSING. A message cancelled
after admission but before dispatch is silently skipped here rather than
causing an error — pkg/scheduler's best-effort Withdraw usually prevents it
from being dequeued at all, but this check is the authoritative half of
withdrawing a queued message without heap deletion.

# Timeout

Each message gets its own context.WithTimeout, independent of Run's ctx:
Run's ctx governs whether the worker keeps looking for new work, not
whether an already-dispatched message gets interrupted. A message that
exceeds its budget is failed with the fixed "processing timeout" message
(apierr.ErrResponderTimeout) rather than left PROCESSING forever.

# Panic isolation

A panicking Responder is recovered into the same error path as any other
failure, so a single bad prompt can't take down the dispatch loop.
*/
package dispatch
