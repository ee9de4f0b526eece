package screen

import (
	"fmt"
	"image"
	"math"
)

// ROI is a rectangle (x, y, width, height) in design pixels measured from the
// top-left of the design frame
type ROI struct {
	X, Y, W, H int
}

// NewROI creates a region of interest
func NewROI(x, y, w, h int) ROI {
	return ROI{X: x, Y: y, W: w, H: h}
}

// Validate requires a non-empty rectangle
func (r ROI) Validate() error {
	if r.W <= 0 || r.H <= 0 {
		return fmt.Errorf("invalid roi %v: width and height must be > 0", r)
	}
	return nil
}

// Rect converts the ROI into frame pixels for the converter's scale
func (r ROI) Rect(c Converter) image.Rectangle {
	s := c.scale()
	x0 := int(math.Round(float64(r.X) * s))
	y0 := int(math.Round(float64(r.Y) * s))
	x1 := int(math.Round(float64(r.X+r.W) * s))
	y1 := int(math.Round(float64(r.Y+r.H) * s))
	return image.Rect(x0, y0, x1, y1)
}

// Center returns the rounded centre of the ROI
func (r ROI) Center() ScreenPoint {
	return ScreenPoint{
		X: int(math.Round(float64(r.X) + float64(r.W)/2)),
		Y: int(math.Round(float64(r.Y) + float64(r.H)/2)),
	}
}

// Contains reports whether p lies strictly inside the ROI
func (r ROI) Contains(p ScreenPoint) bool {
	inX := r.X < p.X && p.X < r.X+r.W
	inY := r.Y < p.Y && p.Y < r.Y+r.H
	return inX && inY
}

// Shrink moves the left edge right by dx, reducing the width accordingly
func (r ROI) Shrink(dx int) ROI {
	return ROI{X: r.X + dx, Y: r.Y, W: r.W - dx, H: r.H}
}

// WithWidth returns a copy with a different width
func (r ROI) WithWidth(w int) ROI {
	r.W = w
	return r
}

func (r ROI) String() string {
	return fmt.Sprintf("roi(%d, %d, %d, %d)", r.X, r.Y, r.W, r.H)
}
