package input

import (
	"math/rand"
	"sync"
	"time"
)

// Clock abstracts wall-clock time so timing-sensitive routines can be tested
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// RealClock uses the time package
type RealClock struct{}

func (RealClock) Now() time.Time        { return time.Now() }
func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }

// Since returns the time elapsed on c since t
func Since(c Clock, t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Jitter holds the randomized delay ranges, in seconds, between the
// sub-actions of an input primitive
type Jitter struct {
	Click [2]float64 // between mouse press and release
	Key   [2]float64 // between key down and key up
	Step  [2]float64 // between consecutive primitives
}

// DefaultJitter returns the delay ranges used when the config sets none
func DefaultJitter() Jitter {
	return Jitter{
		Click: [2]float64{0.03, 0.06},
		Key:   [2]float64{0.04, 0.08},
		Step:  [2]float64{0.02, 0.05},
	}
}

// Humanizer produces randomized waits and offsets
type Humanizer struct {
	Jitter Jitter

	clock Clock
	mu    sync.Mutex
	rng   *rand.Rand
}

// NewHumanizer creates a humanizer. A nil clock uses the wall clock.
func NewHumanizer(clock Clock, jitter Jitter, seed int64) *Humanizer {
	if clock == nil {
		clock = RealClock{}
	}
	return &Humanizer{
		Jitter: jitter,
		clock:  clock,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Clock returns the clock used for waits
func (h *Humanizer) Clock() Clock {
	return h.clock
}

// Wait blocks for a uniformly random duration in [lo, hi] seconds
func (h *Humanizer) Wait(lo, hi float64) {
	if hi < lo {
		lo, hi = hi, lo
	}
	d := lo + (hi-lo)*h.Float64()
	if d <= 0 {
		return
	}
	h.clock.Sleep(time.Duration(d * float64(time.Second)))
}

// Step waits the between-primitives jitter
func (h *Humanizer) Step() {
	h.Wait(h.Jitter.Step[0], h.Jitter.Step[1])
}

// Float64 returns a value in [0, 1)
func (h *Humanizer) Float64() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rng.Float64()
}

// Uniform returns a value in [-spread, +spread]
func (h *Humanizer) Uniform(spread float64) float64 {
	return (2*h.Float64() - 1) * spread
}

// Intn returns a value in [0, n)
func (h *Humanizer) Intn(n int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rng.Intn(n)
}

// Shuffle permutes n elements with swap
func (h *Humanizer) Shuffle(n int, swap func(i, j int)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rng.Shuffle(n, swap)
}
