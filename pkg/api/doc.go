/*
Package api is the HTTP/SSE surface in front of an *engine.Engine: submit a
message, poll its status, stream its chunks as they're produced, cancel it
while still queued, and list the queue and thread index.

# Endpoints

	POST   /messages                    submit a prompt, returns 202 + the message
	GET    /messages/{id}/status        current state, result or error
	GET    /messages/{id}/stream        SSE: waiting/started/chunk/done/error/cancelled
	DELETE /messages/{id}                cancel a still-QUEUED message
	GET    /queue                       queue summary + QUEUED messages
	GET    /threads                     thread index, most recently active first
	GET    /threads/{id}                one thread's metadata
	GET    /threads/{id}/messages       a thread's messages in submission order
	GET    /healthz  /readyz  /metrics  process liveness, readiness, Prometheus

# Errors

Handlers map pkg/apierr sentinels to HTTP status via errors.Is: invalid input
to 400, an unknown id to 404, a state conflict (not cancellable, already
terminal) to 409, a full queue or a draining engine to 503. The body is
always `{"error": "..."}`.

# Streaming

GET /messages/{id}/stream replays whatever the stream already holds, then
blocks on live events, writing a comment-line ping every keepalive interval
to keep idle connections from being reaped by intermediaries. The handler
returns once the stream reaches a terminal event or the client disconnects.

Event payload keys are normative for wire compatibility: waiting carries
state/position/message, chunk carries type/chunk/index, done carries
state/result/completed_at, error carries state/error/completed_at, and
cancelled carries state/completed_at. The status projection's
queue_position is non-null only while the message is QUEUED.
*/
package api
