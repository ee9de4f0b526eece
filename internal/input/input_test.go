package input

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct {
	now   time.Time
	slept []time.Duration
}

func (c *stepClock) Now() time.Time { return c.now }
func (c *stepClock) Sleep(d time.Duration) {
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
}

func TestParseHotkey(t *testing.T) {
	tests := []struct {
		in      string
		key     string
		mods    []string
		wantErr bool
	}{
		{"f4", "f4", nil, false},
		{"Shift", "shift", nil, false},
		{"ctrl+e", "e", []string{"ctrl"}, false},
		{"control + shift + 1", "1", []string{"ctrl", "shift"}, false},
		{"", "", nil, true},
		{"ctrl+", "", nil, true},
		{"hyper+x", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			hk, err := ParseHotkey(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.key, hk.Key)
			assert.Equal(t, tt.mods, hk.Modifiers)
		})
	}
}

func TestHumanizerWaitStaysInRange(t *testing.T) {
	clock := &stepClock{now: time.Unix(0, 0)}
	h := NewHumanizer(clock, DefaultJitter(), 42)

	for i := 0; i < 200; i++ {
		h.Wait(0.1, 0.2)
	}
	require.Len(t, clock.slept, 200)
	for _, d := range clock.slept {
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 200*time.Millisecond)
	}

	// swapped bounds are tolerated, zero waits do not sleep
	h.Wait(0.2, 0.1)
	h.Wait(0, 0)
	assert.Len(t, clock.slept, 201)
}

func TestHumanizerUniform(t *testing.T) {
	h := NewHumanizer(nil, DefaultJitter(), 1)
	for i := 0; i < 1000; i++ {
		v := h.Uniform(7)
		assert.GreaterOrEqual(t, v, -7.0)
		assert.LessOrEqual(t, v, 7.0)
	}
}

func TestSince(t *testing.T) {
	clock := &stepClock{now: time.Unix(100, 0)}
	start := clock.Now()
	clock.Sleep(1500 * time.Millisecond)
	assert.Equal(t, 1500*time.Millisecond, Since(clock, start))
}
