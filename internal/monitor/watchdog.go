package monitor

import (
	"context"
	"sync"
	"time"
)

// Watchdog cancels a session context once the game-length budget runs out or
// when tripped explicitly. Loops observe it through ctx.Err(); nothing is
// terminated from the outside.
type Watchdog struct {
	budget time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	reason  string
	tripped bool
	timer   *time.Timer
}

// NewWatchdog creates a watchdog. A zero budget disables the time limit.
func NewWatchdog(budget time.Duration) *Watchdog {
	return &Watchdog{budget: budget}
}

// Arm derives a cancellable context from parent and starts the budget timer.
// Re-arming resets the previous timer.
func (w *Watchdog) Arm(parent context.Context) context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	if w.cancel != nil {
		w.cancel()
	}

	ctx, cancel := context.WithCancel(parent)
	w.cancel = cancel
	w.tripped = false
	w.reason = ""

	if w.budget > 0 {
		w.timer = time.AfterFunc(w.budget, func() {
			w.Trip("max game length reached")
		})
	}
	return ctx
}

// Trip cancels the armed context with a reason
func (w *Watchdog) Trip(reason string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.tripped || w.cancel == nil {
		return
	}
	w.tripped = true
	w.reason = reason
	w.cancel()
}

// Disarm stops the timer and releases the context
func (w *Watchdog) Disarm() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}

// Tripped reports whether the watchdog fired, and why
func (w *Watchdog) Tripped() (bool, string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tripped, w.reason
}
