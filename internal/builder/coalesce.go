package builder

import "sync"

// Coalescer collapses build requests so at most one build runs at a time.
// Requests arriving while a build is running set a pending flag; when the
// build finishes, exactly one follow-up run picks up everything that
// changed in between. A burst of saves therefore costs two builds at most.
type Coalescer struct {
	mu      sync.Mutex
	cond    *sync.Cond
	running bool
	pending bool
	build   func()
}

// NewCoalescer wraps build with single-flight semantics.
func NewCoalescer(build func()) *Coalescer {
	c := &Coalescer{build: build}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Trigger requests a build and returns immediately. The build runs on its
// own goroutine.
func (c *Coalescer) Trigger() {
	c.mu.Lock()
	if c.running {
		c.pending = true
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	go c.loop()
}

func (c *Coalescer) loop() {
	for {
		c.build()

		c.mu.Lock()
		if !c.pending {
			c.running = false
			c.cond.Broadcast()
			c.mu.Unlock()
			return
		}
		c.pending = false
		c.mu.Unlock()
	}
}

// Wait blocks until no build is running or queued.
func (c *Coalescer) Wait() {
	c.mu.Lock()
	for c.running {
		c.cond.Wait()
	}
	c.mu.Unlock()
}

// Busy reports whether a build is currently running.
func (c *Coalescer) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
