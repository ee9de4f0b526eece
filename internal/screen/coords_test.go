package screen

import (
	"errors"
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jordanella.com/botty-go/internal/monitor"
)

func TestScreenMonitorRoundTrip(t *testing.T) {
	conv := NewConverter(1280, 720, 1.5, image.Point{X: 1920, Y: 31})
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 1000; i++ {
		p := ScreenPoint{X: rng.Intn(1920), Y: rng.Intn(1080)}
		back := conv.MonitorToScreen(conv.ScreenToMonitor(p))
		assert.InDelta(t, p.X, back.X, 1)
		assert.InDelta(t, p.Y, back.Y, 1)
	}
}

func TestAbsScreenRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		scale float64
	}{
		{"native", 1.0},
		{"upscaled", 1.5},
		{"downscaled", 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := NewConverter(1280, 720, tt.scale, image.Point{X: 10, Y: 20})
			for _, p := range []ScreenPoint{{0, 0}, {640, 360}, {1279, 719}, {333, 17}} {
				back := conv.AbsToScreen(conv.ScreenToAbs(p))
				assert.InDelta(t, p.X, back.X, 1, "x of %v", p)
				assert.InDelta(t, p.Y, back.Y, 1, "y of %v", p)
			}
			for _, p := range []MonitorPoint{{10, 20}, {500, 400}} {
				back := conv.AbsToMonitor(conv.MonitorToAbs(p))
				assert.InDelta(t, p.X, back.X, 1)
				assert.InDelta(t, p.Y, back.Y, 1)
			}
		})
	}
}

func TestAbsOriginIsFrameCentre(t *testing.T) {
	conv := NewConverter(1280, 720, 1, image.Point{})
	assert.Equal(t, ScreenPoint{X: 640, Y: 360}, conv.AbsToScreen(AbsPoint{}))
	assert.Equal(t, ScreenPoint{X: 1260, Y: 10}, conv.AbsToScreen(AbsPoint{X: 620, Y: -350}))
}

func TestClampScreen(t *testing.T) {
	conv := NewConverter(100, 50, 1, image.Point{})
	assert.Equal(t, ScreenPoint{X: 0, Y: 49}, conv.ClampScreen(ScreenPoint{X: -5, Y: 80}))
	assert.Equal(t, ScreenPoint{X: 99, Y: 0}, conv.ClampScreen(ScreenPoint{X: 140, Y: -1}))
}

func TestROI(t *testing.T) {
	roi := NewROI(10, 20, 30, 40)
	require.NoError(t, roi.Validate())
	assert.Equal(t, ScreenPoint{X: 25, Y: 40}, roi.Center())
	assert.True(t, roi.Contains(ScreenPoint{X: 11, Y: 21}))
	assert.False(t, roi.Contains(ScreenPoint{X: 10, Y: 21}), "edges are exclusive")
	assert.Equal(t, image.Rect(20, 40, 80, 120), roi.Rect(NewConverter(1280, 720, 2, image.Point{})))

	assert.Error(t, NewROI(0, 0, 0, 5).Validate())
	assert.Error(t, NewROI(0, 0, 5, -1).Validate())
}

func TestDisplayGrabber(t *testing.T) {
	tracker := NewWindowTracker(NewConverter(4, 2, 1, image.Point{X: 100, Y: 50}))

	var requested image.Rectangle
	grabber := NewDisplayGrabber(tracker).WithCaptureFunc(func(rect image.Rectangle) (*image.RGBA, error) {
		requested = rect
		img := image.NewRGBA(rect)
		img.SetRGBA(rect.Min.X, rect.Min.Y, color.RGBA{R: 255, A: 255})
		return img, nil
	})

	frame, err := grabber.Grab()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(100, 50, 104, 52), requested)
	assert.Equal(t, image.Rect(0, 0, 4, 2), frame.Bounds())
	assert.Equal(t, uint8(255), frame.RGBAAt(0, 0).R)

	tracker.SetOffset(image.Point{X: 0, Y: 0})
	tracker.SetScale(2)
	_, err = grabber.Grab()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 4), requested)
}

func TestDisplayGrabberDeviceError(t *testing.T) {
	tracker := NewWindowTracker(NewConverter(4, 2, 1, image.Point{}))
	grabber := NewDisplayGrabber(tracker).WithCaptureFunc(func(image.Rectangle) (*image.RGBA, error) {
		return nil, errors.New("no display")
	})

	_, err := grabber.Grab()
	var devErr *monitor.DeviceError
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, "capture", devErr.Device)
	assert.Equal(t, monitor.ErrorDevice, monitor.Classify(err))
}
