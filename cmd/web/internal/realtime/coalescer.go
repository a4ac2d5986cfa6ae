package realtime

import (
	"sync"
	"time"
)

// DefaultDebounce is the broadcast debounce window when none is configured.
const DefaultDebounce = 1000 * time.Millisecond

// Coalescer merges bursts of broadcast triggers for a session into a single
// delayed broadcast. The debounce is trailing-edge: every trigger restarts
// the window, so a burst of K triggers fires exactly once, delay after the
// last trigger.
type Coalescer struct {
	mu      sync.Mutex
	delay   time.Duration
	fire    func(sessionCode string)
	pending map[string]*time.Timer
}

// NewCoalescer creates a coalescer that invokes fire after the debounce
// window closes. A non-positive delay falls back to DefaultDebounce.
func NewCoalescer(delay time.Duration, fire func(sessionCode string)) *Coalescer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Coalescer{
		delay:   delay,
		fire:    fire,
		pending: make(map[string]*time.Timer),
	}
}

// ScheduleBroadcast arms (or re-arms) the debounce timer for a session.
// Callers must have committed their own write before scheduling, so the
// eventual broadcast reads state no older than this trigger.
func (c *Coalescer) ScheduleBroadcast(sessionCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.pending[sessionCode]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(c.delay, func() {
		// Clear the pending entry before firing so a failed broadcast can
		// never block future scheduling for this session. Only this timer's
		// own entry may be cleared: a re-arm that won the lock first has
		// already replaced it, and that newer timer owns the fire.
		c.mu.Lock()
		if c.pending[sessionCode] != t {
			c.mu.Unlock()
			return
		}
		delete(c.pending, sessionCode)
		c.mu.Unlock()

		c.fire(sessionCode)
	})
	c.pending[sessionCode] = t
}

// Flush cancels any pending timer for a session and fires immediately.
func (c *Coalescer) Flush(sessionCode string) {
	c.mu.Lock()
	t, ok := c.pending[sessionCode]
	if ok {
		t.Stop()
		delete(c.pending, sessionCode)
	}
	c.mu.Unlock()

	if ok {
		c.fire(sessionCode)
	}
}

// Pending reports whether a broadcast is currently scheduled for a session.
func (c *Coalescer) Pending(sessionCode string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[sessionCode]
	return ok
}

// Stop cancels every pending timer. Used during shutdown.
func (c *Coalescer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for code, t := range c.pending {
		t.Stop()
		delete(c.pending, code)
	}
}
