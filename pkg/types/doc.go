/*
Package types defines the core data structures shared by every component of
the broker: messages, their lifecycle state machine, priorities, and the
thread metadata derived from them.

# Core Types

Message:
  - Message: one prompt and its processing record
  - Priority: HIGH, NORMAL, LOW — admission order into the scheduler
  - State: QUEUED, PROCESSING, COMPLETED, FAILED, CANCELLED

Thread:
  - ThreadMetadata: message_count, per-state counts, last_activity, preview

# State Machine

	QUEUED → PROCESSING → COMPLETED
	                    ↘ FAILED
	QUEUED → CANCELLED

Every other transition is refused; CanTransition is the single source of
truth other packages consult before mutating a Message.

# Design Patterns

Enums are typed strings, as elsewhere in this codebase:

	type State string
	const StateQueued State = "queued"

Optional fields use pointers (StartedAt, CompletedAt, Result, Error); nil
means "not yet set" and the field only becomes non-nil once the message
reaches the lifecycle stage that sets it.

# Thread Safety

Message and ThreadMetadata values are not safe for concurrent mutation.
pkg/store owns all writes behind its single write lock; readers receive
Clone()'d copies so they never observe a partially-written message.
*/
package types
