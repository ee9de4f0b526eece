package bot

import (
	"context"
	"sync"
	"sync/atomic"
)

// ExecutionState is the lifecycle state of a session
type ExecutionState int32

const (
	StateIdle ExecutionState = iota
	StateRunning
	StatePaused  // Paused by the operator between runs
	StateStopped // Stopped by the operator or an error
	StateCompleted
)

func (s ExecutionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Controller carries the operator's start, pause, resume and stop signals to
// the session loop
type Controller struct {
	state      atomic.Int32
	mu         sync.Mutex
	cancel     context.CancelFunc
	resumeChan chan struct{}
	stopped    bool
}

// NewController creates an idle controller
func NewController() *Controller {
	c := &Controller{resumeChan: make(chan struct{}, 1)}
	c.state.Store(int32(StateIdle))
	return c
}

// State returns the current execution state
func (c *Controller) State() ExecutionState {
	return ExecutionState(c.state.Load())
}

// IsRunning returns true while a session loop is active, paused or not
func (c *Controller) IsRunning() bool {
	s := c.State()
	return s == StateRunning || s == StatePaused
}

// start moves an idle or finished controller to running and derives the
// session context. It returns false when a session is already running.
func (c *Controller) start(parent context.Context) (context.Context, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.IsRunning() {
		return nil, false
	}
	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	c.stopped = false
	select {
	case <-c.resumeChan:
	default:
	}
	c.state.Store(int32(StateRunning))
	return ctx, true
}

// finish records the final state and releases the session context
func (c *Controller) finish(final ExecutionState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state.Store(int32(final))
}

// Stop cancels the running session. It returns false if none is running.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.IsRunning() || c.cancel == nil {
		return false
	}
	c.stopped = true
	c.cancel()

	// wake a paused loop
	select {
	case c.resumeChan <- struct{}{}:
	default:
	}
	return true
}

// StopRequested reports whether Stop ended the current session
func (c *Controller) StopRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// Pause holds the session before its next run
func (c *Controller) Pause() bool {
	return c.state.CompareAndSwap(int32(StateRunning), int32(StatePaused))
}

// Resume lets a paused session continue
func (c *Controller) Resume() bool {
	if !c.state.CompareAndSwap(int32(StatePaused), int32(StateRunning)) {
		return false
	}
	select {
	case c.resumeChan <- struct{}{}:
	default:
	}
	return true
}

// waitWhilePaused blocks while paused. It returns ctx.Err() when the
// session is cancelled meanwhile.
func (c *Controller) waitWhilePaused(ctx context.Context) error {
	for c.State() == StatePaused {
		select {
		case <-c.resumeChan:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return ctx.Err()
}
