package screen

import (
	"fmt"
	"image"
	"math"
)

// AbsPoint is a position in design space. The origin sits at the centre of
// the design frame, where the player character is drawn.
type AbsPoint struct {
	X, Y float64
}

// ScreenPoint is a pixel inside a captured frame
type ScreenPoint struct {
	X, Y int
}

// MonitorPoint is a pixel on the physical display
type MonitorPoint struct {
	X, Y int
}

// Norm returns the distance from the player (design origin)
func (p AbsPoint) Norm() float64 {
	return math.Hypot(p.X, p.Y)
}

// Add returns p shifted by q
func (p AbsPoint) Add(q AbsPoint) AbsPoint {
	return AbsPoint{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p - q
func (p AbsPoint) Sub(q AbsPoint) AbsPoint {
	return AbsPoint{X: p.X - q.X, Y: p.Y - q.Y}
}

func (p AbsPoint) String() string {
	return fmt.Sprintf("abs(%.1f, %.1f)", p.X, p.Y)
}

// Image returns the point as an image.Point
func (p ScreenPoint) Image() image.Point {
	return image.Point{X: p.X, Y: p.Y}
}

func (p ScreenPoint) String() string {
	return fmt.Sprintf("screen(%d, %d)", p.X, p.Y)
}

func (p MonitorPoint) String() string {
	return fmt.Sprintf("monitor(%d, %d)", p.X, p.Y)
}

// Dist returns the euclidean distance between two absolute points
func Dist(a, b AbsPoint) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Converter translates between the three coordinate spaces. It is a value
// type; every method is pure.
type Converter struct {
	DesignWidth  int
	DesignHeight int
	Scale        float64     // screen pixels per design pixel
	Offset       image.Point // monitor position of the capture origin
}

// NewConverter creates a converter for a design resolution
func NewConverter(designWidth, designHeight int, scale float64, offset image.Point) Converter {
	if scale <= 0 {
		scale = 1
	}
	return Converter{
		DesignWidth:  designWidth,
		DesignHeight: designHeight,
		Scale:        scale,
		Offset:       offset,
	}
}

func (c Converter) scale() float64 {
	if c.Scale <= 0 {
		return 1
	}
	return c.Scale
}

func (c Converter) center() (float64, float64) {
	return float64(c.DesignWidth) / 2, float64(c.DesignHeight) / 2
}

// ScreenSize returns the capture size in screen pixels
func (c Converter) ScreenSize() (int, int) {
	s := c.scale()
	return int(math.Round(float64(c.DesignWidth) * s)), int(math.Round(float64(c.DesignHeight) * s))
}

// AbsToScreen converts a design-space position to a frame pixel
func (c Converter) AbsToScreen(p AbsPoint) ScreenPoint {
	cx, cy := c.center()
	s := c.scale()
	return ScreenPoint{
		X: int(math.Round((p.X + cx) * s)),
		Y: int(math.Round((p.Y + cy) * s)),
	}
}

// ScreenToAbs converts a frame pixel to design space
func (c Converter) ScreenToAbs(p ScreenPoint) AbsPoint {
	cx, cy := c.center()
	s := c.scale()
	return AbsPoint{
		X: float64(p.X)/s - cx,
		Y: float64(p.Y)/s - cy,
	}
}

// ScreenToMonitor converts a frame pixel to a display pixel
func (c Converter) ScreenToMonitor(p ScreenPoint) MonitorPoint {
	return MonitorPoint{X: p.X + c.Offset.X, Y: p.Y + c.Offset.Y}
}

// MonitorToScreen converts a display pixel to a frame pixel
func (c Converter) MonitorToScreen(p MonitorPoint) ScreenPoint {
	return ScreenPoint{X: p.X - c.Offset.X, Y: p.Y - c.Offset.Y}
}

// AbsToMonitor converts a design-space position to a display pixel
func (c Converter) AbsToMonitor(p AbsPoint) MonitorPoint {
	return c.ScreenToMonitor(c.AbsToScreen(p))
}

// MonitorToAbs converts a display pixel to design space
func (c Converter) MonitorToAbs(p MonitorPoint) AbsPoint {
	return c.ScreenToAbs(c.MonitorToScreen(p))
}

// ClampScreen keeps p inside the capture area
func (c Converter) ClampScreen(p ScreenPoint) ScreenPoint {
	w, h := c.ScreenSize()
	if p.X < 0 {
		p.X = 0
	} else if p.X > w-1 {
		p.X = w - 1
	}
	if p.Y < 0 {
		p.Y = 0
	} else if p.Y > h-1 {
		p.Y = h - 1
	}
	return p
}

// Validate ensures the converter describes a usable frame
func (c Converter) Validate() error {
	if c.DesignWidth <= 0 || c.DesignHeight <= 0 {
		return fmt.Errorf("invalid design size %dx%d", c.DesignWidth, c.DesignHeight)
	}
	if c.Scale <= 0 {
		return fmt.Errorf("invalid scale %f (must be > 0)", c.Scale)
	}
	return nil
}

func (c Converter) String() string {
	return fmt.Sprintf("Converter{Design: %dx%d, Scale: %.3f, Offset: %v}",
		c.DesignWidth, c.DesignHeight, c.scale(), c.Offset)
}
