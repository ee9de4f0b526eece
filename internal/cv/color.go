package cv

import (
	"fmt"
	"image"
	"math"
)

// HueMax is the top of the hue cylinder (OpenCV 8-bit convention)
const HueMax = 180

// HSV holds a pixel in OpenCV ranges: H 0..180, S and V 0..255
type HSV struct {
	H, S, V int
}

// ToHSV converts an RGB triple
func ToHSV(r, g, b uint8) HSV {
	rf, gf, bf := float64(r), float64(g), float64(b)
	v := math.Max(rf, math.Max(gf, bf))
	mn := math.Min(rf, math.Min(gf, bf))
	delta := v - mn

	s := 0.0
	if v > 0 {
		s = 255 * delta / v
	}

	h := 0.0
	if delta > 0 {
		switch v {
		case rf:
			h = 60 * (gf - bf) / delta
		case gf:
			h = 120 + 60*(bf-rf)/delta
		default:
			h = 240 + 60*(rf-gf)/delta
		}
		if h < 0 {
			h += 360
		}
	}

	return HSV{
		H: int(math.Round(h/2)) % HueMax,
		S: int(math.Round(s)),
		V: int(v),
	}
}

// ColorRange is an inclusive HSV box. The lower hue may be negative and the
// upper hue may exceed HueMax; both wrap around the cylinder.
type ColorRange struct {
	Name  string
	Lower [3]int
	Upper [3]int
}

// NewColorRange builds a range from the six-value config form
// (h_low, s_low, v_low, h_high, s_high, v_high)
func NewColorRange(name string, values []int) (ColorRange, error) {
	if len(values) != 6 {
		return ColorRange{}, fmt.Errorf("color %s: expected 6 values, got %d", name, len(values))
	}
	return ColorRange{
		Name:  name,
		Lower: [3]int{values[0], values[1], values[2]},
		Upper: [3]int{values[3], values[4], values[5]},
	}, nil
}

// Split returns the one or two axis-aligned ranges covering r on the cylinder
func (r ColorRange) Split() []ColorRange {
	switch {
	case r.Lower[0] < 0:
		low := r
		low.Lower[0] = 0
		high := r
		high.Lower[0] = HueMax + r.Lower[0]
		high.Upper[0] = min(HueMax, HueMax+r.Upper[0])
		return []ColorRange{low, high}
	case r.Upper[0] > HueMax:
		high := r
		high.Upper[0] = HueMax
		low := r
		low.Lower[0] = max(0, r.Lower[0]-HueMax)
		low.Upper[0] = r.Upper[0] - HueMax
		return []ColorRange{high, low}
	default:
		return []ColorRange{r}
	}
}

// contains evaluates an axis-aligned range without wrapping
func (r ColorRange) contains(p HSV) bool {
	return r.Lower[0] <= p.H && p.H <= r.Upper[0] &&
		r.Lower[1] <= p.S && p.S <= r.Upper[1] &&
		r.Lower[2] <= p.V && p.V <= r.Upper[2]
}

// InRangeCylinder evaluates the unsplit range directly on the hue cylinder
func (r ColorRange) InRangeCylinder(p HSV) bool {
	if p.S < r.Lower[1] || p.S > r.Upper[1] || p.V < r.Lower[2] || p.V > r.Upper[2] {
		return false
	}
	for _, h := range []int{p.H, p.H + HueMax, p.H - HueMax} {
		if r.Lower[0] <= h && h <= r.Upper[0] {
			return true
		}
	}
	return false
}

// ColorFilter masks img with the range. The returned mask is the OR of the
// split sub-range masks; the filtered image keeps only masked pixels.
func ColorFilter(img *image.RGBA, r ColorRange) (*image.Alpha, *image.RGBA) {
	b := img.Bounds()
	mask := image.NewAlpha(b)
	filtered := image.NewRGBA(b)
	ranges := r.Split()

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			p := ToHSV(img.Pix[i], img.Pix[i+1], img.Pix[i+2])

			hit := false
			for _, sub := range ranges {
				if sub.contains(p) {
					hit = true
					break
				}
			}
			if !hit {
				continue
			}
			mask.Pix[mask.PixOffset(x, y)] = 255
			copy(filtered.Pix[i:i+4], img.Pix[i:i+4])
		}
	}
	return mask, filtered
}

// MaskCoverage returns the share of set pixels in mask
func MaskCoverage(mask *image.Alpha) float64 {
	if len(mask.Pix) == 0 {
		return 0
	}
	set := 0
	for _, a := range mask.Pix {
		if a > 0 {
			set++
		}
	}
	return float64(set) / float64(len(mask.Pix))
}

// MeanSaturation averages the HSV saturation over rect
func MeanSaturation(img *image.RGBA, rect image.Rectangle) float64 {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return 0
	}
	var total float64
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			i := img.PixOffset(x, y)
			total += float64(ToHSV(img.Pix[i], img.Pix[i+1], img.Pix[i+2]).S)
		}
	}
	return total / float64(rect.Dx()*rect.Dy())
}
