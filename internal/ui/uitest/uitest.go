// Package uitest provides a scripted vision source for tests of code that
// reads the game interface.
package uitest

import (
	"image"
	"image/color"
	"image/draw"
	"math/rand"
	"sync"

	"jordanella.com/botty-go/internal/cv"
	"jordanella.com/botty-go/internal/screen"
)

// FakeVision serves a fixed frame and reports the templates marked visible
// as found at their configured positions
type FakeVision struct {
	mu      sync.Mutex
	conv    screen.Converter
	frame   *image.RGBA
	visible map[string]screen.ScreenPoint
	grabs   int

	// GrabErr is returned by Grab when set
	GrabErr error
}

// NewFakeVision creates a vision source with a grey frame of the design size
func NewFakeVision(width, height int) *FakeVision {
	frame := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(frame, frame.Bounds(), image.NewUniform(color.RGBA{R: 90, G: 90, B: 90, A: 255}), image.Point{}, draw.Src)
	return &FakeVision{
		conv:    screen.NewConverter(width, height, 1, image.Point{}),
		frame:   frame,
		visible: make(map[string]screen.ScreenPoint),
	}
}

// Show makes name match at p
func (v *FakeVision) Show(name string, p screen.ScreenPoint) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.visible[name] = p
}

// Hide makes name unmatched
func (v *FakeVision) Hide(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.visible, name)
}

// Fill paints rect with c
func (v *FakeVision) Fill(rect image.Rectangle, c color.RGBA) {
	v.mu.Lock()
	defer v.mu.Unlock()
	draw.Draw(v.frame, rect, image.NewUniform(c), image.Point{}, draw.Src)
}

// Scramble fills the frame with noise drawn from seed, so that frame change
// detection sees a new view
func (v *FakeVision) Scramble(seed int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	rng := rand.New(rand.NewSource(seed))
	for i := range v.frame.Pix {
		if i%4 == 3 {
			v.frame.Pix[i] = 255
			continue
		}
		v.frame.Pix[i] = byte(rng.Intn(256))
	}
}

// Grabs returns how many frames were captured
func (v *FakeVision) Grabs() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.grabs
}

func (v *FakeVision) Grab() (*image.RGBA, screen.Converter, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.GrabErr != nil {
		return nil, screen.Converter{}, v.GrabErr
	}
	v.grabs++
	frame := image.NewRGBA(v.frame.Bounds())
	copy(frame.Pix, v.frame.Pix)
	return frame, v.conv, nil
}

func (v *FakeVision) Converter() screen.Converter {
	return v.conv
}

func (v *FakeVision) FindTemplateInFrame(_ *image.RGBA, _ screen.Converter, name string, _ ...cv.Option) (cv.Match, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	p, ok := v.visible[name]
	if !ok {
		return cv.Match{}, false, nil
	}
	return cv.Match{Name: name, Position: p, Center: p, Score: 0.95}, true, nil
}
