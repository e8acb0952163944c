package session

import (
	"sync"
	"time"
)

// Notifier coalesces bursts of triggers into a single trailing-edge
// callback. Rapid graph edits (a drag emits dozens of move events)
// collapse into one notification once the burst goes quiet for the
// configured window.
type Notifier struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func()
	timer   *time.Timer
	stopped bool
}

// NewNotifier creates a notifier that invokes fn after triggers have
// been quiet for delay. A non-positive delay invokes fn synchronously
// on every trigger.
func NewNotifier(delay time.Duration, fn func()) *Notifier {
	return &Notifier{delay: delay, fn: fn}
}

// Trigger schedules (or reschedules) the callback. Only the last
// trigger in a burst fires.
func (n *Notifier) Trigger() {
	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return
	}
	if n.delay <= 0 {
		n.mu.Unlock()
		n.fn()
		return
	}
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.delay, n.fire)
	n.mu.Unlock()
}

func (n *Notifier) fire() {
	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return
	}
	n.timer = nil
	n.mu.Unlock()
	n.fn()
}

// Flush fires the pending callback immediately, if any.
func (n *Notifier) Flush() {
	n.mu.Lock()
	pending := n.timer != nil && n.timer.Stop()
	n.timer = nil
	stopped := n.stopped
	n.mu.Unlock()
	if pending && !stopped {
		n.fn()
	}
}

// Stop cancels any pending callback and rejects further triggers.
func (n *Notifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopped = true
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}
