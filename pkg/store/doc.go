/*
Package store implements the message store and thread index: the
authoritative table of every message's lifecycle state, and the thread
metadata derived from it.

# Single Writer

All mutation goes through Store's one mutex, which also guards the
scheduler enqueue/withdraw and the thread index update that must happen
atomically with a state change — there is exactly one place a message's
state changes, and exactly one place that records it.

# Invariant Enforcement

Every transition is checked against types.CanTransition before it is
applied; illegal edges return apierr.ErrInvalidTransition rather than being
silently coerced. Thread state histograms are verified to sum to the
thread's message count after every mutation — a mismatch means the index
has desynced from the message table, which is a bug rather than a runtime
condition, so it is logged at Fatal and the process exits.

# Relationship to pkg/scheduler and pkg/broadcaster

Store treats both as downstream of its own state: Submit enqueues and opens
a stream, Cancel withdraws and publishes a cancellation, and every terminal
transition publishes the message's final event. The dispatch worker
(pkg/dispatch) is the only other writer of message state, exclusively
through MarkProcessing/AppendChunk/Complete/Fail.
*/
package store
