package broadcaster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, ch <-chan Event, n int) []Event {
	t.Helper()
	var out []Event
	for i := 0; i < n; i++ {
		select {
		case e, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed after %d of %d events", i, n)
			}
			out = append(out, e)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d of %d", i, n)
		}
	}
	return out
}

func TestBroadcaster_LiveSubscriberReceivesInOrder(t *testing.T) {
	b := New(0)
	b.Create("m1")

	_, ch, found := b.Subscribe("m1")
	require.True(t, found)

	b.Publish("m1", Event{Type: EventWaiting, Position: 1})
	b.Publish("m1", Event{Type: EventStarted})
	b.Publish("m1", Event{Type: EventChunk, ChunkIndex: 0, ChunkText: "hel"})
	b.Publish("m1", Event{Type: EventChunk, ChunkIndex: 1, ChunkText: "lo"})
	b.Publish("m1", Event{Type: EventDone, Result: "hello"})

	got := drain(t, ch, 5)
	assert.Equal(t, EventWaiting, got[0].Type)
	assert.Equal(t, EventStarted, got[1].Type)
	assert.Equal(t, "hel", got[2].ChunkText)
	assert.Equal(t, "lo", got[3].ChunkText)
	assert.Equal(t, EventDone, got[4].Type)
	assert.Equal(t, "hello", got[4].Result)

	// terminal event closes the channel
	_, ok := <-ch
	assert.False(t, ok)
}

func TestBroadcaster_LateSubscriberReceivesReplayThenLive(t *testing.T) {
	b := New(0)
	b.Create("m2")

	b.Publish("m2", Event{Type: EventWaiting, Position: 0})
	b.Publish("m2", Event{Type: EventStarted})
	b.Publish("m2", Event{Type: EventChunk, ChunkIndex: 0, ChunkText: "ab"})

	replay, ch, found := b.Subscribe("m2")
	require.True(t, found)
	require.Len(t, replay, 3)
	assert.Equal(t, EventWaiting, replay[0].Type)
	assert.Equal(t, EventStarted, replay[1].Type)
	assert.Equal(t, "ab", replay[2].ChunkText)

	b.Publish("m2", Event{Type: EventChunk, ChunkIndex: 1, ChunkText: "cd"})
	b.Publish("m2", Event{Type: EventDone, Result: "abcd"})

	got := drain(t, ch, 2)
	assert.Equal(t, "cd", got[0].ChunkText)
	assert.Equal(t, EventDone, got[1].Type)
}

func TestBroadcaster_SubscribeAfterTerminalReturnsSnapshotAndClosedChannel(t *testing.T) {
	b := New(0)
	b.Create("m3")

	b.Publish("m3", Event{Type: EventChunk, ChunkIndex: 0, ChunkText: "x"})
	b.Publish("m3", Event{Type: EventDone, Result: "x"})

	replay, ch, found := b.Subscribe("m3")
	require.True(t, found)
	require.Len(t, replay, 2)
	assert.Equal(t, EventDone, replay[1].Type)

	_, ok := <-ch
	assert.False(t, ok, "subscribing after terminal must hand back an already-closed channel")
}

func TestBroadcaster_SubscribeUnknownStream(t *testing.T) {
	b := New(0)
	replay, ch, found := b.Subscribe("missing")
	assert.False(t, found)
	assert.Nil(t, replay)
	assert.Nil(t, ch)
}

func TestBroadcaster_PublishAfterTerminalIsIgnored(t *testing.T) {
	b := New(0)
	b.Create("m4")
	b.Publish("m4", Event{Type: EventCancelled})
	b.Publish("m4", Event{Type: EventChunk, ChunkIndex: 0, ChunkText: "too-late"})

	replay, _, found := b.Subscribe("m4")
	require.True(t, found)
	require.Len(t, replay, 1)
	assert.Equal(t, EventCancelled, replay[0].Type)
}

func TestBroadcaster_OverrunSubscriberIsDisconnectedNotOthers(t *testing.T) {
	b := New(1) // tiny buffer forces an overrun quickly
	b.Create("m5")

	_, slow, found := b.Subscribe("m5")
	require.True(t, found)
	_, fast, found := b.Subscribe("m5")
	require.True(t, found)

	// Publish enough chunks to overrun the slow subscriber's buffer while
	// never draining it; the fast subscriber drains as it goes.
	for i := 0; i < 10; i++ {
		b.Publish("m5", Event{Type: EventChunk, ChunkIndex: i})
		<-fast
	}
	b.Publish("m5", Event{Type: EventDone})
	<-fast

	// The slow subscriber's channel must have been closed along the way
	// (disconnected), not left blocking the publisher.
	_, ok := <-slow
	for ok {
		_, ok = <-slow
	}
	assert.False(t, ok)
}

func TestBroadcaster_UnsubscribeRemovesAndCloses(t *testing.T) {
	b := New(0)
	b.Create("m6")

	_, ch, found := b.Subscribe("m6")
	require.True(t, found)
	assert.Equal(t, 1, b.SubscriberCount("m6"))

	b.Unsubscribe("m6", ch)
	assert.Equal(t, 0, b.SubscriberCount("m6"))

	_, ok := <-ch
	assert.False(t, ok)

	// unsubscribing twice is a harmless no-op
	b.Unsubscribe("m6", ch)
}
