package watcher

import (
	"sync"
	"time"
)

// Op is the net effect of a burst of filesystem events on one path.
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Event is a settled change to one path.
type Event struct {
	Path string
	Op   Op
	At   time.Time
}

// Coalescer folds bursts of events per path into one Event, emitted once the
// path has been quiet for the debounce window. Removals wait for the longer
// grace period, since editors save by removing and recreating the file.
type Coalescer struct {
	debounce time.Duration
	grace    time.Duration

	mu      sync.Mutex
	pending map[string]*pending
	events  chan Event
	stopCh  chan struct{}
	stopped bool
}

type pending struct {
	event Event
	timer *time.Timer
}

// NewCoalescer creates a Coalescer.
func NewCoalescer(debounce, grace time.Duration) *Coalescer {
	return &Coalescer{
		debounce: debounce,
		grace:    grace,
		pending:  make(map[string]*pending),
		events:   make(chan Event, 16),
		stopCh:   make(chan struct{}),
	}
}

// Add records an event and restarts the path's quiet timer.
func (c *Coalescer) Add(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}

	p, ok := c.pending[e.Path]
	if ok {
		p.timer.Stop()
		// created and removed inside one window: nothing happened
		if p.event.Op == OpCreate && e.Op == OpRemove {
			delete(c.pending, e.Path)
			return
		}
		p.event = merge(p.event, e)
	} else {
		p = &pending{event: e}
		c.pending[e.Path] = p
	}

	path := e.Path
	p.timer = time.AfterFunc(c.delay(p.event.Op), func() { c.emit(path) })
}

// Events returns the settled events.
func (c *Coalescer) Events() <-chan Event {
	return c.events
}

// Pending returns the number of paths waiting to settle.
func (c *Coalescer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Stop drops pending events. Events is left open; timers that already
// fired give up once Stop returns.
func (c *Coalescer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	c.stopped = true
	for path, p := range c.pending {
		p.timer.Stop()
		delete(c.pending, path)
	}
	close(c.stopCh)
}

func (c *Coalescer) emit(path string) {
	c.mu.Lock()
	p, ok := c.pending[path]
	if !ok || c.stopped {
		c.mu.Unlock()
		return
	}
	delete(c.pending, path)
	c.mu.Unlock()

	select {
	case c.events <- p.event:
	case <-c.stopCh:
	}
}

func merge(prev, next Event) Event {
	out := next
	switch {
	case prev.Op == OpCreate && next.Op == OpWrite:
		out.Op = OpCreate
	case prev.Op == OpRemove && next.Op == OpCreate:
		// replaced in place
		out.Op = OpWrite
	}
	return out
}

func (c *Coalescer) delay(op Op) time.Duration {
	if op == OpRemove {
		return c.grace
	}
	return c.debounce
}
