package quiz

import (
	"sync"
	"time"
)

// Countdown decrements from a fixed start value once per interval and calls
// onComplete exactly once when it reaches zero. Stop cancels it; a stopped
// countdown never fires, and a fired countdown ignores Stop. The original
// use is auto-submitting a question when the player's time budget runs out.
type Countdown struct {
	mu         sync.Mutex
	remaining  int
	interval   time.Duration
	timer      *time.Timer
	stopped    bool
	fired      bool
	onComplete func()
}

// NewCountdown creates a countdown of start ticks. Interval is the tick
// duration; production uses one second.
func NewCountdown(start int, interval time.Duration, onComplete func()) *Countdown {
	if interval <= 0 {
		interval = time.Second
	}
	return &Countdown{
		remaining:  start,
		interval:   interval,
		onComplete: onComplete,
	}
}

// Start begins ticking. Starting twice is a no-op.
func (c *Countdown) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil || c.stopped || c.fired {
		return
	}
	if c.remaining <= 0 {
		c.fire()
		return
	}
	c.timer = time.AfterFunc(c.interval, c.tick)
}

func (c *Countdown) tick() {
	c.mu.Lock()
	if c.stopped || c.fired {
		c.mu.Unlock()
		return
	}
	c.remaining--
	if c.remaining <= 0 {
		c.fire()
		c.mu.Unlock()
		return
	}
	c.timer = time.AfterFunc(c.interval, c.tick)
	c.mu.Unlock()
}

// fire must be called with the mutex held. The callback runs on its own
// goroutine so a slow completion handler cannot hold the lock.
func (c *Countdown) fire() {
	c.fired = true
	if c.onComplete != nil {
		go c.onComplete()
	}
}

// Stop cancels the countdown. Submitting an answer stops the timer, so the
// completion callback cannot fire after a submission.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fired {
		return
	}
	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
	}
}

// Remaining returns the ticks left.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}
