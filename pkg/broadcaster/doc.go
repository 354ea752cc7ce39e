/*
Package broadcaster implements the stream broadcaster: one replay-capable,
multi-subscriber event stream per message.

# Lifecycle

pkg/store calls Create when a message is admitted, Publish as the dispatch
worker advances it through waiting/started/chunk/done/error/cancelled, and
never calls Unsubscribe itself — that belongs to whichever adapter opened the
subscription (pkg/api's SSE handler).

# Replay for late subscribers

Every event published to a stream is retained in an in-memory buffer.
Subscribe returns that buffer alongside the live channel, snapshotted and
registered atomically under the stream's own lock, so a subscriber attaching
after the message has already produced chunks sees the full history before
the first live event — and a subscriber attaching after the terminal event
sees the full history ending in that event, then EOF, never a live channel
that will never produce anything further.

# Backpressure isolation

Each subscriber gets its own bounded channel. A publish is non-blocking per
subscriber: a subscriber that cannot keep up is disconnected (its channel
closed and removed) rather than being allowed to stall the publisher or any
other subscriber. Subscribers that keep up never lose an event — only an
overrun subscriber is ever dropped.

# Per-stream locking

Unlike a process-wide broker, each message's stream owns its own mutex, so
publishing to one stream never contends with subscribing to, or publishing
to, another.
*/
package broadcaster
