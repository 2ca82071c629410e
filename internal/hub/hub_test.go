package hub

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boifagusy/flashflow-sub000/internal/logging"
)

func newTestHub() *Hub {
	return New(logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.LevelError,
		Format: "text",
		Output: io.Discard,
	}))
}

func TestSubscribeReceivesBroadcast(t *testing.T) {
	h := newTestHub()
	sub := h.Subscribe()
	defer sub.Cancel()

	h.Broadcast()

	select {
	case _, ok := <-sub.C():
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("no reload signal delivered")
	}
}

func TestCancelClosesChannel(t *testing.T) {
	h := newTestHub()
	sub := h.Subscribe()
	require.Equal(t, 1, h.Len())

	sub.Cancel()
	assert.Equal(t, 0, h.Len())

	_, ok := <-sub.C()
	assert.False(t, ok, "cancelled subscription channel must be closed")
}

func TestCancelIsIdempotent(t *testing.T) {
	h := newTestHub()
	sub := h.Subscribe()

	sub.Cancel()
	sub.Cancel()
	assert.Equal(t, 0, h.Len())
}

func TestBroadcastNeverBlocksOnStuckClient(t *testing.T) {
	h := newTestHub()

	live := h.Subscribe()
	defer live.Cancel()
	stuck := h.Subscribe()

	start := time.Now()
	// First broadcast fills the stuck client's buffer; each following one
	// is a miss until the client is pruned.
	for i := 0; i < maxMisses+1; i++ {
		h.Broadcast()
		select {
		case <-live.C():
		case <-time.After(time.Second):
			t.Fatal("live client missed a broadcast")
		}
	}
	assert.Less(t, time.Since(start), 2*time.Second, "broadcasts must not block on the stuck client")

	assert.Equal(t, 1, h.Len(), "stuck client should have been pruned")
	_, ok := <-stuck.C()
	// Drain the buffered signal, then observe the closed channel.
	if ok {
		_, ok = <-stuck.C()
	}
	assert.False(t, ok, "pruned subscription channel must be closed")
}

func TestCancelAfterPruneIsSafe(t *testing.T) {
	h := newTestHub()
	stuck := h.Subscribe()

	for i := 0; i < maxMisses+1; i++ {
		h.Broadcast()
	}
	require.Equal(t, 0, h.Len())

	stuck.Cancel()
}

func TestCloseDropsAllSubscribers(t *testing.T) {
	h := newTestHub()
	a := h.Subscribe()
	b := h.Subscribe()
	require.Equal(t, 2, h.Len())

	h.Close()
	assert.Equal(t, 0, h.Len())

	_, ok := <-a.C()
	assert.False(t, ok)
	_, ok = <-b.C()
	assert.False(t, ok)
}

func TestConcurrentSubscribeAndBroadcast(t *testing.T) {
	h := newTestHub()

	subs := make([]*Subscription, 8)
	for i := range subs {
		subs[i] = h.Subscribe()
	}

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *Subscription) {
			defer wg.Done()
			for range s.C() {
			}
		}(sub)
	}

	for i := 0; i < 50; i++ {
		h.Broadcast()
	}
	h.Close()
	wg.Wait()

	assert.Equal(t, 0, h.Len())
}
