package engine

import (
	"context"
	"testing"
	"time"

	"github.com/cuemby/promptrelay/pkg/apierr"
	"github.com/cuemby/promptrelay/pkg/config"
	"github.com/cuemby/promptrelay/pkg/responder"
	"github.com/cuemby/promptrelay/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.ProcessingTimeout = time.Second
	return cfg
}

func TestEngine_SubmitAndProcess(t *testing.T) {
	e := New(testConfig(), responder.Scripted{Chunks: []string{"a", "b"}})
	e.Run()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = e.Shutdown(ctx)
	}()

	msg, err := e.Submit("hi", types.PriorityNormal, "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := e.Store.Get(msg.ID)
		return err == nil && got.State == types.StateCompleted
	}, time.Second, time.Millisecond)
}

func TestEngine_ShutdownRefusesNewSubmits(t *testing.T) {
	e := New(testConfig(), responder.Scripted{Chunks: []string{"a"}})
	e.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, e.Shutdown(ctx))

	_, err := e.Submit("hi", types.PriorityNormal, "")
	assert.ErrorIs(t, err, apierr.ErrShuttingDown)
}

func TestEngine_ShutdownWaitsForInFlightMessage(t *testing.T) {
	e := New(testConfig(), responder.Scripted{Chunks: []string{"a"}, Delay: 100 * time.Millisecond})
	e.Run()

	_, err := e.Submit("hi", types.PriorityNormal, "")
	require.NoError(t, err)

	// Give the worker a moment to pick the message up before shutting down.
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	start := time.Now()
	require.NoError(t, e.Shutdown(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond,
		"shutdown must wait for the in-flight message to finish")
}

func TestEngine_ShutdownIsIdempotent(t *testing.T) {
	e := New(testConfig(), responder.Scripted{Chunks: []string{"a"}})
	e.Run()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, e.Shutdown(ctx))
	require.NoError(t, e.Shutdown(ctx))
}
