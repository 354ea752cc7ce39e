// Package apierr defines the error taxonomy observable by callers of the
// core: sentinel errors classified with errors.Is, optionally tagged with
// the message id they concern via errors.As, each built as
// `namespace + ": message"` rather than a bespoke error-code enum (except
// ErrResponderTimeout, whose text is the bare fixed string).
package apierr

import (
	"errors"
	"fmt"
)

const namespace = "promptrelay"

var (
	// ErrInvalidInput covers an empty prompt, oversize thread_id, or unknown priority.
	ErrInvalidInput = errors.New(namespace + ": invalid input")
	// ErrQueueFull is returned when admitting a message would exceed MaxQueueSize.
	ErrQueueFull = errors.New(namespace + ": queue full")
	// ErrNotFound covers an unknown message or thread id.
	ErrNotFound = errors.New(namespace + ": not found")
	// ErrInvalidTransition is returned for any state edge not in the allowed graph.
	ErrInvalidTransition = errors.New(namespace + ": invalid state transition")
	// ErrNotCancellable is returned when cancelling a message that is not QUEUED.
	ErrNotCancellable = errors.New(namespace + ": not cancellable")
	// ErrResponderTimeout marks a FAILED transition caused by exceeding the
	// per-message processing budget. Its Error() text is the fixed string
	// "processing timeout".
	ErrResponderTimeout = errors.New("processing timeout")
	// ErrShuttingDown is returned by Submit once the engine has begun draining.
	ErrShuttingDown = errors.New(namespace + ": shutting down")
)

// MessageError wraps one of the sentinels above with the id of the message
// it concerns, so an HTTP adapter (or any other caller) can report which
// resource failed without the core leaking transport concerns. It is a
// thin wrapper exposing the correlating id through a narrow accessor
// interface, extracted via errors.As.
type MessageError struct {
	err error
	id  string
}

// WithMessageID tags err with id. Returns nil if err is nil.
func WithMessageID(err error, id string) error {
	if err == nil {
		return nil
	}
	return &MessageError{err: err, id: id}
}

func (e *MessageError) Error() string { return fmt.Sprintf("message %s: %v", e.id, e.err) }
func (e *MessageError) Unwrap() error { return e.err }

// MessageID returns the id of the message e concerns.
func (e *MessageError) MessageID() string { return e.id }

// IDOf extracts the message id from err, if any wrapper in its chain carries one.
func IDOf(err error) (string, bool) {
	var me *MessageError
	if errors.As(err, &me) {
		return me.MessageID(), true
	}
	return "", false
}
