package screen

import (
	"fmt"
	"image"
	"image/draw"
	"sync"

	"github.com/kbinani/screenshot"

	"jordanella.com/botty-go/internal/monitor"
)

// Grabber produces a still image of the game viewport on demand
type Grabber interface {
	Grab() (*image.RGBA, error)
	Converter() Converter
}

// WindowTracker holds the current window offset and scale. A separate
// window-tracking collaborator updates it; converters are read as snapshots.
type WindowTracker struct {
	mu   sync.RWMutex
	conv Converter
}

// NewWindowTracker creates a tracker with an initial converter
func NewWindowTracker(conv Converter) *WindowTracker {
	return &WindowTracker{conv: conv}
}

// Converter returns a consistent snapshot of the current conversion
func (t *WindowTracker) Converter() Converter {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.conv
}

// SetOffset records a new monitor position of the client area
func (t *WindowTracker) SetOffset(offset image.Point) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conv.Offset = offset
}

// SetScale records a new window scale
func (t *WindowTracker) SetScale(scale float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if scale > 0 {
		t.conv.Scale = scale
	}
}

// CaptureFunc captures a rectangle of the desktop
type CaptureFunc func(rect image.Rectangle) (*image.RGBA, error)

// DisplayGrabber captures the game client area from the desktop
type DisplayGrabber struct {
	tracker *WindowTracker
	capture CaptureFunc
}

// NewDisplayGrabber creates a grabber backed by kbinani/screenshot
func NewDisplayGrabber(tracker *WindowTracker) *DisplayGrabber {
	return &DisplayGrabber{
		tracker: tracker,
		capture: screenshot.CaptureRect,
	}
}

// WithCaptureFunc replaces the desktop capture, mainly for tests
func (g *DisplayGrabber) WithCaptureFunc(fn CaptureFunc) *DisplayGrabber {
	g.capture = fn
	return g
}

// Converter returns the coordinate conversion in effect for the next grab
func (g *DisplayGrabber) Converter() Converter {
	return g.tracker.Converter()
}

// Grab captures the client area. The returned frame always starts at (0,0).
func (g *DisplayGrabber) Grab() (*image.RGBA, error) {
	conv := g.tracker.Converter()
	w, h := conv.ScreenSize()
	rect := image.Rect(conv.Offset.X, conv.Offset.Y, conv.Offset.X+w, conv.Offset.Y+h)

	img, err := g.capture(rect)
	if err != nil {
		return nil, monitor.NewDeviceError("capture", "grab", err)
	}
	if img == nil {
		return nil, monitor.NewDeviceError("capture", "grab", fmt.Errorf("empty frame for %v", rect))
	}

	if img.Bounds().Min == (image.Point{}) {
		return img, nil
	}

	frame := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(frame, frame.Bounds(), img, img.Bounds().Min, draw.Src)
	return frame, nil
}

// DisplayOrigin returns the top-left monitor pixel of display index
func DisplayOrigin(index int) (image.Point, error) {
	n := screenshot.NumActiveDisplays()
	if index < 0 || index >= n {
		return image.Point{}, fmt.Errorf("display %d not available (%d active)", index, n)
	}
	return screenshot.GetDisplayBounds(index).Min, nil
}

// StaticGrabber returns the same frame on every grab. It backs offline tools
// that replay screenshots.
type StaticGrabber struct {
	Frame *image.RGBA
	Conv  Converter
}

func (g *StaticGrabber) Grab() (*image.RGBA, error) {
	if g.Frame == nil {
		return nil, monitor.NewDeviceError("capture", "grab", fmt.Errorf("no frame loaded"))
	}
	return g.Frame, nil
}

func (g *StaticGrabber) Converter() Converter {
	return g.Conv
}
