// Package engine wires the store, scheduler, broadcaster, and dispatch
// worker into one lifecycle object: an explicit value constructed at
// startup and handed to every adapter (pkg/api, cmd/promptrelay) that
// needs it, rather than reached for as a package-level global.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/promptrelay/pkg/apierr"
	"github.com/cuemby/promptrelay/pkg/broadcaster"
	"github.com/cuemby/promptrelay/pkg/config"
	"github.com/cuemby/promptrelay/pkg/dispatch"
	"github.com/cuemby/promptrelay/pkg/log"
	"github.com/cuemby/promptrelay/pkg/metrics"
	"github.com/cuemby/promptrelay/pkg/responder"
	"github.com/cuemby/promptrelay/pkg/scheduler"
	"github.com/cuemby/promptrelay/pkg/store"
	"github.com/cuemby/promptrelay/pkg/types"
	"github.com/rs/zerolog"
)

// Engine owns every core component and the single dispatch worker driving
// them. Zero value is not usable; construct with New.
type Engine struct {
	logger zerolog.Logger
	cfg    config.Config

	Store       *store.Store
	Scheduler   *scheduler.Scheduler
	Broadcaster *broadcaster.Broadcaster

	worker    *dispatch.Worker
	collector *metrics.Collector

	mu         sync.Mutex
	draining   bool
	cancelRun  context.CancelFunc
	workerDone chan struct{}
}

// New constructs an Engine from cfg, driving messages through r.
func New(cfg config.Config, r responder.Responder) *Engine {
	sched := scheduler.New()
	bcast := broadcaster.New(0)
	st := store.New(store.Config{MaxQueueSize: cfg.MaxQueueSize}, sched, bcast)
	worker := dispatch.New(sched, st, r, cfg.ProcessingTimeout)

	e := &Engine{
		logger:      log.WithComponent("engine"),
		cfg:         cfg,
		Store:       st,
		Scheduler:   sched,
		Broadcaster: bcast,
		worker:      worker,
		collector:   metrics.NewCollector(sched, st),
	}

	metrics.RegisterComponent("store", true, "")
	metrics.RegisterComponent("scheduler", true, "")
	metrics.RegisterComponent("dispatch", true, "")

	return e
}

// Submit admits a new message, refusing with apierr.ErrShuttingDown once
// Shutdown has begun.
func (e *Engine) Submit(userMessage string, priority types.Priority, threadID string) (*types.Message, error) {
	e.mu.Lock()
	draining := e.draining
	e.mu.Unlock()
	if draining {
		return nil, apierr.ErrShuttingDown
	}
	return e.Store.Submit(userMessage, priority, threadID)
}

// Cancel withdraws a QUEUED message. See pkg/store.Cancel.
func (e *Engine) Cancel(id string) error {
	return e.Store.Cancel(id)
}

// Run starts the dispatch worker and the metrics collector in the
// background. Safe to call once; returns immediately.
func (e *Engine) Run() {
	ctx, cancel := context.WithCancel(context.Background())

	e.mu.Lock()
	e.cancelRun = cancel
	e.workerDone = make(chan struct{})
	done := e.workerDone
	e.mu.Unlock()

	go func() {
		e.worker.Run(ctx)
		close(done)
	}()

	e.collector.Start(5 * time.Second)
	e.logger.Info().Msg("engine running")
}

// Shutdown begins draining: Submit starts refusing new messages immediately,
// and the worker is told to stop looking for new work after it finishes
// whatever it is currently processing (itself bounded by
// PROCESSING_TIMEOUT). Already-QUEUED messages are left QUEUED — there is
// no durable persistence, so they are simply lost when the process exits,
// same as if it had crashed.
//
// Shutdown blocks until the worker has stopped or ctx is done, whichever
// comes first.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.draining {
		e.mu.Unlock()
		return nil
	}
	e.draining = true
	cancel := e.cancelRun
	done := e.workerDone
	e.mu.Unlock()

	e.logger.Info().Msg("engine draining")
	metrics.SetDraining(true)

	if cancel != nil {
		cancel()
	}
	if e.collector != nil {
		e.collector.Stop()
	}

	if done == nil {
		return nil
	}
	select {
	case <-done:
		e.logger.Info().Msg("engine stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
