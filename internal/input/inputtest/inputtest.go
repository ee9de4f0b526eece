// Package inputtest provides recording input devices and a manual clock for
// tests of code that drives the mouse and keyboard.
package inputtest

import (
	"fmt"
	"sync"
	"time"

	"jordanella.com/botty-go/internal/input"
	"jordanella.com/botty-go/internal/screen"
)

// FakeClock only advances when Sleep or Advance is called
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock starts at a fixed instant
func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Sleep(d time.Duration) {
	c.Advance(d)
}

// Advance moves the clock forward
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now = c.now.Add(d)
	}
}

// Action is one recorded input event
type Action struct {
	Kind string // move, press, release, click, key_down, key_up
	Arg  string
	At   screen.MonitorPoint
	Time time.Time
}

func (a Action) String() string {
	if a.Kind == "move" {
		return fmt.Sprintf("move(%d,%d)", a.At.X, a.At.Y)
	}
	return a.Kind + ":" + a.Arg
}

// Recorder implements input.Mouse and input.Keyboard and records every call
type Recorder struct {
	mu      sync.Mutex
	clock   input.Clock
	actions []Action

	// Fail makes every call return this error when set
	Fail error
	// OnMove runs after each recorded move, e.g. to update a fake game view
	OnMove func(p screen.MonitorPoint)
}

// NewRecorder records with timestamps from clock
func NewRecorder(clock input.Clock) *Recorder {
	if clock == nil {
		clock = NewFakeClock()
	}
	return &Recorder{clock: clock}
}

func (r *Recorder) record(a Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return r.Fail
	}
	a.Time = r.clock.Now()
	r.actions = append(r.actions, a)
	return nil
}

func (r *Recorder) Move(p screen.MonitorPoint, _ [2]float64) error {
	if err := r.record(Action{Kind: "move", At: p}); err != nil {
		return err
	}
	if r.OnMove != nil {
		r.OnMove(p)
	}
	return nil
}

func (r *Recorder) Press(b input.Button) error {
	return r.record(Action{Kind: "press", Arg: string(b)})
}

func (r *Recorder) Release(b input.Button) error {
	return r.record(Action{Kind: "release", Arg: string(b)})
}

func (r *Recorder) Click(b input.Button) error {
	return r.record(Action{Kind: "click", Arg: string(b)})
}

func (r *Recorder) Send(hotkey string, doPress, doRelease bool) error {
	if doPress {
		if err := r.record(Action{Kind: "key_down", Arg: hotkey}); err != nil {
			return err
		}
	}
	if doRelease {
		return r.record(Action{Kind: "key_up", Arg: hotkey})
	}
	return nil
}

// Actions returns a copy of everything recorded so far
func (r *Recorder) Actions() []Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Action(nil), r.actions...)
}

// Strings returns the recorded actions in their short form
func (r *Recorder) Strings() []string {
	actions := r.Actions()
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.String()
	}
	return out
}

// Count returns how many actions match kind and arg; an empty arg matches any
func (r *Recorder) Count(kind, arg string) int {
	n := 0
	for _, a := range r.Actions() {
		if a.Kind == kind && (arg == "" || a.Arg == arg) {
			n++
		}
	}
	return n
}

// Index returns the position of the first matching action, or -1
func (r *Recorder) Index(kind, arg string) int {
	for i, a := range r.Actions() {
		if a.Kind == kind && (arg == "" || a.Arg == arg) {
			return i
		}
	}
	return -1
}

// LastIndex returns the position of the last matching action, or -1
func (r *Recorder) LastIndex(kind, arg string) int {
	actions := r.Actions()
	for i := len(actions) - 1; i >= 0; i-- {
		if actions[i].Kind == kind && (arg == "" || actions[i].Arg == arg) {
			return i
		}
	}
	return -1
}

// Reset clears the recording
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = nil
}
