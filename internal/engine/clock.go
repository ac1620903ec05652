package engine

import (
	"sync"
	"time"
)

// Countdown is the per-question clock. Start counts down from the quiz
// time limit once per second, reporting each remaining value through
// onTick and firing onExpire when it reaches zero. A countdown is reset
// (never paused) between questions: every question gets a fresh Start.
type Countdown interface {
	Start(seconds int, onTick func(remaining int), onExpire func())
	Stop()
}

// Scheduler delays a single callback, returning a cancel func. The
// engine uses it for the reveal pause between a question result and
// the automatic advance to the next question.
type Scheduler func(d time.Duration, fn func()) (cancel func())

// AfterFuncScheduler runs callbacks on the wall clock.
func AfterFuncScheduler(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// TickingCountdown counts down on a real one-second ticker.
type TickingCountdown struct {
	mu   sync.Mutex
	stop chan struct{}
}

func NewTickingCountdown() *TickingCountdown {
	return &TickingCountdown{}
}

func (c *TickingCountdown) Start(seconds int, onTick func(remaining int), onExpire func()) {
	c.mu.Lock()
	if c.stop != nil {
		close(c.stop)
	}
	stop := make(chan struct{})
	c.stop = stop
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		remaining := seconds
		for remaining > 0 {
			select {
			case <-stop:
				return
			case <-ticker.C:
				remaining--
				onTick(remaining)
			}
		}
		onExpire()
	}()
}

func (c *TickingCountdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}
