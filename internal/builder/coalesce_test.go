package builder

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoalescerRunsOnce(t *testing.T) {
	var mu sync.Mutex
	runs := 0

	c := NewCoalescer(func() {
		mu.Lock()
		runs++
		mu.Unlock()
	})

	c.Trigger()
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, runs)
}

func TestCoalescerCollapsesBurst(t *testing.T) {
	var mu sync.Mutex
	runs := 0
	started := make(chan struct{})
	release := make(chan struct{})

	c := NewCoalescer(func() {
		mu.Lock()
		runs++
		first := runs == 1
		mu.Unlock()
		if first {
			close(started)
			<-release
		}
	})

	c.Trigger()
	<-started

	// Everything arriving mid-build collapses into one follow-up run.
	for i := 0; i < 25; i++ {
		c.Trigger()
	}
	close(release)
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, runs)
}

func TestCoalescerSequentialTriggers(t *testing.T) {
	var mu sync.Mutex
	runs := 0

	c := NewCoalescer(func() {
		mu.Lock()
		runs++
		mu.Unlock()
	})

	c.Trigger()
	c.Wait()
	c.Trigger()
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, runs)
}

func TestCoalescerBusy(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	c := NewCoalescer(func() {
		close(started)
		<-release
	})

	assert.False(t, c.Busy())
	c.Trigger()
	<-started
	assert.True(t, c.Busy())

	close(release)
	c.Wait()
	assert.False(t, c.Busy())
}
