package char

import (
	"fmt"
	"math"
	"time"

	"jordanella.com/botty-go/internal/screen"
)

// Rand is the randomness source of the jitter helpers
type Rand interface {
	Float64() float64
}

// ArcSpread returns dir rotated by up to ±spreadDeg/2 with its length scaled
// by a factor drawn from radius
func ArcSpread(dir screen.AbsPoint, spreadDeg float64, radius [2]float64, rng Rand) screen.AbsPoint {
	length := dir.Norm()
	if length == 0 {
		return dir
	}
	scale := radius[0] + (radius[1]-radius[0])*rng.Float64()
	rot := spreadDeg * (rng.Float64() - 0.5) * math.Pi / 180

	x, y := dir.X*scale, dir.Y*scale
	sin, cos := math.Sincos(rot)
	return screen.AbsPoint{
		X: x*cos - y*sin,
		Y: x*sin + y*cos,
	}
}

// HMS formats d as hh:mm:ss
func HMS(d time.Duration) string {
	s := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s%3600/60, s%60)
}
