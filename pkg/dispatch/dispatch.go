// Package dispatch implements the dispatch worker: the single consumer loop
// that pulls ids off the scheduler, drives them through a Responder, and
// reports the outcome to the message store.
//
// Cancellation is cooperative: a goroutine races the responder call against
// a context deadline, with a panic recovered into the same error path as a
// normal failure rather than crashing the loop.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuemby/promptrelay/pkg/apierr"
	"github.com/cuemby/promptrelay/pkg/log"
	"github.com/cuemby/promptrelay/pkg/responder"
	"github.com/cuemby/promptrelay/pkg/scheduler"
	"github.com/cuemby/promptrelay/pkg/store"
	"github.com/rs/zerolog"
)

// Worker is the single dispatch loop. Running more than one of these
// concurrently is out of scope — the responder is assumed stateful and
// non-reentrant.
type Worker struct {
	logger    zerolog.Logger
	sched     *scheduler.Scheduler
	store     *store.Store
	responder responder.Responder
	timeout   time.Duration
}

// New returns a dispatch Worker. timeout bounds how long a single message
// may spend in PROCESSING before it is failed with apierr.ErrResponderTimeout.
func New(sched *scheduler.Scheduler, st *store.Store, r responder.Responder, timeout time.Duration) *Worker {
	return &Worker{
		logger:    log.WithComponent("dispatch"),
		sched:     sched,
		store:     st,
		responder: r,
		timeout:   timeout,
	}
}

// Run blocks, processing one message at a time, until ctx is done or the
// scheduler is shut down. It returns only then — there is no partial
// shutdown state to report, since Run never has more than one message
// in flight and always finishes (or times out) the current one before
// looping back to dequeue again.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info().Msg("dispatch worker starting")
	for {
		id, ok := w.sched.DequeueBlocking(ctx)
		if !ok {
			w.logger.Info().Msg("dispatch worker stopped")
			return
		}
		w.process(id)
	}
}

// outcome is what a responder call eventually produces.
type outcome struct {
	result string
	err    error
}

// process drives a single dequeued message to a terminal state. It never
// returns an error: every failure mode (bad transition, responder error,
// timeout, panic) is translated into a store call and logged.
func (w *Worker) process(id string) {
	msg, err := w.store.MarkProcessing(id)
	if err != nil {
		if errors.Is(err, apierr.ErrInvalidTransition) {
			// Dequeued an id that was cancelled after enqueue but before
			// dispatch.
			w.logger.Debug().Str("message_id", id).Msg("skipping stale dequeue")
			return
		}
		w.logger.Error().Err(err).Str("message_id", id).Msg("mark processing failed")
		return
	}

	logger := log.WithMessageID(w.logger, id)
	logger.Info().Msg("processing started")
	w.store.MarkStarted(id)

	result, err := w.run(msg.UserMessage, id)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn().Msg("processing timed out")
			if ferr := w.store.Fail(id, apierr.ErrResponderTimeout.Error()); ferr != nil {
				logger.Error().Err(ferr).Msg("failed to record timeout")
			}
			return
		}
		logger.Warn().Err(err).Msg("processing failed")
		if ferr := w.store.Fail(id, err.Error()); ferr != nil {
			logger.Error().Err(ferr).Msg("failed to record failure")
		}
		return
	}

	logger.Info().Msg("processing completed")
	if cerr := w.store.Complete(id, result); cerr != nil {
		logger.Error().Err(cerr).Msg("failed to record completion")
	}
}

// run calls the responder under the configured timeout, forwarding each
// chunk to the store as it arrives and recovering a panicking responder
// into a plain error rather than crashing the dispatch loop.
func (w *Worker) run(prompt, id string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	chunkCh := make(chan responder.Chunk, 16)
	resultCh := make(chan outcome, 1)

	go func() {
		defer close(chunkCh)
		defer func() {
			if r := recover(); r != nil {
				resultCh <- outcome{err: fmt.Errorf("responder panicked: %v", r)}
			}
		}()
		result, err := w.responder.Stream(ctx, prompt, chunkCh)
		resultCh <- outcome{result: result, err: err}
	}()

	for c := range chunkCh {
		if aerr := w.store.AppendChunk(id, c.Index, c.Text); aerr != nil {
			w.logger.Error().Err(aerr).Str("message_id", id).Msg("append chunk failed")
		}
	}

	out := <-resultCh
	return out.result, out.err
}
