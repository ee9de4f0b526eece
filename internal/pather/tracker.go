package pather

import "math"

// Verdict is the decision taken after a distance sample
type Verdict int

const (
	// Continue means the target is still getting closer
	Continue Verdict = iota
	// Arrived means the target is within the close-enough radius
	Arrived
	// Stalled means the distance stopped decreasing, either a plateau or
	// an overshoot
	Stalled
)

func (v Verdict) String() string {
	switch v {
	case Continue:
		return "continue"
	case Arrived:
		return "arrived"
	case Stalled:
		return "stalled"
	default:
		return "unknown"
	}
}

// DistanceTracker watches successive distances to a target and stops once
// the target is close enough or the distance fails to improve. It belongs
// to a single attempt and is never shared.
type DistanceTracker struct {
	closeEnough float64
	prev        float64
	last        float64
	samples     int
}

// NewDistanceTracker creates a tracker with the given arrival radius
func NewDistanceTracker(closeEnough float64) *DistanceTracker {
	return &DistanceTracker{
		closeEnough: closeEnough,
		prev:        math.Inf(1),
		last:        math.Inf(1),
	}
}

// Observe records a distance sample and returns the verdict
func (t *DistanceTracker) Observe(d float64) Verdict {
	t.samples++
	t.last = d
	if d < t.closeEnough {
		return Arrived
	}
	if t.prev <= d {
		return Stalled
	}
	t.prev = d
	return Continue
}

// Last returns the most recent sample, +Inf before the first one
func (t *DistanceTracker) Last() float64 {
	return t.last
}

// Samples returns how many distances were observed
func (t *DistanceTracker) Samples() int {
	return t.samples
}
