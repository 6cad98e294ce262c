// Package typing drives a repeating "typing..." indicator for chat channels
// whose transport requires periodic keepalive (the indicator expires a few
// seconds after each send and must be resent while a response is pending).
package typing

import (
	"sync"
	"time"
)

// Options configures a Controller.
type Options struct {
	// MaxDuration bounds how long the indicator keeps firing even if Stop is
	// never called, so a crashed or forgotten run can't wedge it forever.
	MaxDuration time.Duration
	// KeepaliveInterval is how often StartFn is re-invoked to refresh the
	// indicator before the transport lets it expire.
	KeepaliveInterval time.Duration
	// StartFn sends one "typing" action to the transport. Errors are
	// swallowed; a single failed keepalive tick isn't worth aborting over.
	StartFn func() error
}

// Controller runs a keepalive loop for one in-flight chat turn. Not safe for
// reuse after Stop; create a new Controller per turn.
type Controller struct {
	opts Options
	stop chan struct{}
	once sync.Once
}

// New creates a Controller from opts without starting it.
func New(opts Options) *Controller {
	return &Controller{
		opts: opts,
		stop: make(chan struct{}),
	}
}

// Start fires the first typing action immediately, then keeps refreshing it
// on KeepaliveInterval until Stop is called or MaxDuration elapses.
func (c *Controller) Start() {
	if c.opts.StartFn == nil {
		return
	}
	go c.run()
}

func (c *Controller) run() {
	c.opts.StartFn()

	interval := c.opts.KeepaliveInterval
	if interval <= 0 {
		interval = 4 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if c.opts.MaxDuration > 0 {
		timer := time.NewTimer(c.opts.MaxDuration)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-c.stop:
			return
		case <-deadline:
			return
		case <-ticker.C:
			c.opts.StartFn()
		}
	}
}

// Stop ends the keepalive loop. Safe to call multiple times or never.
func (c *Controller) Stop() {
	c.once.Do(func() {
		close(c.stop)
	})
}
