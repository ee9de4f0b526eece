package cv

import (
	"fmt"
	"image"
	"math"
	"sort"

	"jordanella.com/botty-go/internal/monitor"
	"jordanella.com/botty-go/internal/screen"
)

// Match is a template hit inside a frame
type Match struct {
	Name     string
	Position screen.ScreenPoint // top-left corner
	Center   screen.ScreenPoint
	Size     image.Point
	Score    float64
}

// Rect returns the matched area in frame pixels
func (m Match) Rect() image.Rectangle {
	origin := m.Position.Image()
	return image.Rectangle{Min: origin, Max: origin.Add(m.Size)}
}

// MatchOptions configures a search
type MatchOptions struct {
	Region    image.Rectangle // frame pixels; empty means the whole frame
	Threshold float64         // the best score must be strictly greater
	Grayscale bool
}

// DefaultMatchOptions returns recommended settings
func DefaultMatchOptions() MatchOptions {
	return MatchOptions{Threshold: 0.68}
}

// Find locates the best match of tmpl in frame. A score at or below the
// threshold is reported as ok == false, not as an error. A template that does
// not fit the search region is a configuration error.
func Find(frame *image.RGBA, tmpl *Template, opts MatchOptions) (Match, bool, error) {
	best := Match{Score: math.Inf(-1)}
	err := scan(frame, tmpl, opts, func(p image.Point, score float64) {
		// strict comparison keeps the first maximum in raster order
		if score > best.Score {
			best.Score = score
			best.Position = screen.ScreenPoint{X: p.X, Y: p.Y}
		}
	})
	if err != nil {
		return Match{}, false, err
	}

	best = finish(best, tmpl)
	if best.Score > opts.Threshold {
		return best, true, nil
	}
	return best, false, nil
}

// FindAll returns every non-overlapping match above the threshold, best first
func FindAll(frame *image.RGBA, tmpl *Template, opts MatchOptions, maxMatches int) ([]Match, error) {
	var candidates []Match
	err := scan(frame, tmpl, opts, func(p image.Point, score float64) {
		if score > opts.Threshold {
			candidates = append(candidates, Match{
				Position: screen.ScreenPoint{X: p.X, Y: p.Y},
				Score:    score,
			})
		}
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	var results []Match
	for _, c := range candidates {
		c = finish(c, tmpl)
		overlaps := false
		for _, r := range results {
			if c.Rect().Overlaps(r.Rect()) {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}
		results = append(results, c)
		if maxMatches > 0 && len(results) >= maxMatches {
			break
		}
	}
	return results, nil
}

func finish(m Match, tmpl *Template) Match {
	size := tmpl.Size()
	m.Name = tmpl.Name
	m.Size = size
	m.Center = screen.ScreenPoint{X: m.Position.X + size.X/2, Y: m.Position.Y + size.Y/2}
	return m
}

// scan evaluates masked zero-mean normalized cross-correlation at every
// template position inside the search region and reports each score in
// raster order.
func scan(frame *image.RGBA, tmpl *Template, opts MatchOptions, visit func(image.Point, float64)) error {
	if frame == nil || tmpl == nil || tmpl.Image == nil {
		return monitor.NewConfigError("matcher", "", "frame and template are required")
	}

	region := frame.Bounds()
	if !opts.Region.Empty() {
		region = opts.Region.Intersect(frame.Bounds())
	}

	size := tmpl.Size()
	if size.X > region.Dx() || size.Y > region.Dy() {
		return monitor.NewConfigError("matcher", tmpl.Name,
			fmt.Sprintf("template %dx%d larger than search region %v", size.X, size.Y, region))
	}

	channels := 3
	if opts.Grayscale {
		channels = 1
	}

	samples, tz, tnorm := prepareTemplate(tmpl, channels)
	if len(samples) == 0 {
		return monitor.NewConfigError("matcher", tmpl.Name, "template mask is empty")
	}
	n := float64(len(samples))

	planes := framePlanes(frame, region, channels)
	rw := region.Dx()

	sum := make([]float64, channels)
	sumSq := make([]float64, channels)

	for y := 0; y <= region.Dy()-size.Y; y++ {
		for x := 0; x <= rw-size.X; x++ {
			for c := range sum {
				sum[c], sumSq[c] = 0, 0
			}
			var cross float64

			base := y*rw + x
			for k, off := range samples {
				idx := base + off.Y*rw + off.X
				for c := 0; c < channels; c++ {
					v := planes[c][idx]
					sum[c] += v
					sumSq[c] += v * v
					cross += tz[k*channels+c] * v
				}
			}

			var variance float64
			for c := 0; c < channels; c++ {
				variance += sumSq[c] - sum[c]*sum[c]/n
			}

			score := 0.0
			denom := math.Sqrt(tnorm * variance)
			if denom > 1e-9 {
				score = cross / denom
			}
			visit(image.Point{X: region.Min.X + x, Y: region.Min.Y + y}, score)
		}
	}
	return nil
}

// prepareTemplate returns the masked sample offsets, the zero-mean template
// values per sample and channel, and their squared norm.
func prepareTemplate(tmpl *Template, channels int) ([]image.Point, []float64, float64) {
	size := tmpl.Size()
	var samples []image.Point
	var values []float64

	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			if tmpl.Mask != nil && tmpl.Mask.AlphaAt(x, y).A == 0 {
				continue
			}
			samples = append(samples, image.Point{X: x, Y: y})
			i := tmpl.Image.PixOffset(x, y)
			values = append(values, pixelValues(tmpl.Image.Pix[i:i+3], channels)...)
		}
	}
	if len(samples) == 0 {
		return nil, nil, 0
	}

	mean := make([]float64, channels)
	for k := range samples {
		for c := 0; c < channels; c++ {
			mean[c] += values[k*channels+c]
		}
	}
	for c := range mean {
		mean[c] /= float64(len(samples))
	}

	var norm float64
	for k := range samples {
		for c := 0; c < channels; c++ {
			values[k*channels+c] -= mean[c]
			norm += values[k*channels+c] * values[k*channels+c]
		}
	}
	return samples, values, norm
}

// framePlanes copies the region into per-channel float planes
func framePlanes(frame *image.RGBA, region image.Rectangle, channels int) [][]float64 {
	w, h := region.Dx(), region.Dy()
	planes := make([][]float64, channels)
	for c := range planes {
		planes[c] = make([]float64, w*h)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := frame.PixOffset(region.Min.X+x, region.Min.Y+y)
			vals := pixelValues(frame.Pix[i:i+3], channels)
			for c, v := range vals {
				planes[c][y*w+x] = v
			}
		}
	}
	return planes
}

func pixelValues(rgb []uint8, channels int) []float64 {
	if channels == 1 {
		return []float64{luminance(rgb[0], rgb[1], rgb[2])}
	}
	return []float64{float64(rgb[0]), float64(rgb[1]), float64(rgb[2])}
}

// luminance uses the ITU-R BT.601 weights
func luminance(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}
