package cv

import (
	"image"
	"image/color"
	"image/draw"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jordanella.com/botty-go/internal/monitor"
	"jordanella.com/botty-go/internal/screen"
)

func noiseFrame(rng *rand.Rand, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(rng.Intn(256))
		img.Pix[i+1] = uint8(rng.Intn(256))
		img.Pix[i+2] = uint8(rng.Intn(256))
		img.Pix[i+3] = 255
	}
	return img
}

func paste(dst, src *image.RGBA, at image.Point) {
	draw.Draw(dst, src.Bounds().Add(at), src, image.Point{}, draw.Src)
}

func TestFindPlantedTemplate(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	frame := noiseFrame(rng, 96, 72)
	patch := noiseFrame(rng, 12, 10)
	paste(frame, patch, image.Point{X: 37, Y: 21})

	tests := []struct {
		name      string
		grayscale bool
	}{
		{"color", false},
		{"grayscale", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok, err := Find(frame, NewTemplate("patch", patch), MatchOptions{Threshold: 0.9, Grayscale: tt.grayscale})
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, screen.ScreenPoint{X: 37, Y: 21}, m.Position)
			assert.Equal(t, screen.ScreenPoint{X: 43, Y: 26}, m.Center)
			assert.InDelta(t, 1.0, m.Score, 1e-6)
			assert.Equal(t, "patch", m.Name)
		})
	}
}

func TestFindBelowThreshold(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	frame := noiseFrame(rng, 80, 60)
	unrelated := noiseFrame(rng, 12, 12)

	m, ok, err := Find(frame, NewTemplate("unrelated", unrelated), MatchOptions{Threshold: 0.8})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Less(t, m.Score, 0.8)

	// a score equal to the threshold is not a match
	patch := NewTemplate("exact", CutROI(frame, image.Rect(10, 10, 22, 22)))
	m, ok, err = Find(frame, patch, MatchOptions{Threshold: 0.5})
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = Find(frame, patch, MatchOptions{Threshold: m.Score})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindRestrictedToRegion(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	frame := noiseFrame(rng, 100, 80)
	patch := noiseFrame(rng, 8, 8)
	paste(frame, patch, image.Point{X: 70, Y: 50})

	_, ok, err := Find(frame, NewTemplate("p", patch), MatchOptions{Threshold: 0.9, Region: image.Rect(0, 0, 50, 40)})
	require.NoError(t, err)
	assert.False(t, ok)

	m, ok, err := Find(frame, NewTemplate("p", patch), MatchOptions{Threshold: 0.9, Region: image.Rect(60, 40, 100, 80)})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, screen.ScreenPoint{X: 70, Y: 50}, m.Position)
}

func TestFindTemplateLargerThanRegion(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 50, 50))
	tmpl := NewTemplate("big", image.NewRGBA(image.Rect(0, 0, 20, 20)))

	_, _, err := Find(frame, tmpl, MatchOptions{Threshold: 0.5, Region: image.Rect(0, 0, 10, 30)})
	var cfgErr *monitor.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "big", cfgErr.Key)
	assert.Equal(t, monitor.ErrorConfiguration, monitor.Classify(err))
}

func TestFindFirstMaximumInRasterOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	frame := noiseFrame(rng, 90, 70)
	patch := noiseFrame(rng, 10, 10)
	paste(frame, patch, image.Point{X: 10, Y: 40})
	paste(frame, patch, image.Point{X: 60, Y: 12})

	m, ok, err := Find(frame, NewTemplate("twin", patch), MatchOptions{Threshold: 0.9})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, screen.ScreenPoint{X: 60, Y: 12}, m.Position)

	all, err := FindAll(frame, NewTemplate("twin", patch), MatchOptions{Threshold: 0.9}, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, screen.ScreenPoint{X: 60, Y: 12}, all[0].Position)
	assert.Equal(t, screen.ScreenPoint{X: 10, Y: 40}, all[1].Position)
}

func TestFindIgnoresTransparentPixels(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	frame := noiseFrame(rng, 80, 60)
	inner := noiseFrame(rng, 10, 10)
	paste(frame, inner, image.Point{X: 32, Y: 22})

	// 14x14 template: opaque centre equal to inner, transparent white border
	src := image.NewNRGBA(image.Rect(0, 0, 14, 14))
	for y := 0; y < 14; y++ {
		for x := 0; x < 14; x++ {
			if x >= 2 && x < 12 && y >= 2 && y < 12 {
				c := inner.RGBAAt(x-2, y-2)
				src.SetNRGBA(x, y, color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255})
			} else {
				src.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 0})
			}
		}
	}

	tmpl := NewTemplate("masked", src)
	require.NotNil(t, tmpl.Mask)

	m, ok, err := Find(frame, tmpl, MatchOptions{Threshold: 0.95})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, screen.ScreenPoint{X: 30, Y: 20}, m.Position)
}

func TestAlphaToMask(t *testing.T) {
	alpha := image.NewAlpha(image.Rect(0, 0, 3, 1))
	alpha.Pix = []uint8{0, 1, 200}
	mask := AlphaToMask(alpha)
	require.NotNil(t, mask)
	assert.Equal(t, []uint8{0, 0, 255}, mask.Pix)

	opaque := image.NewAlpha(image.Rect(0, 0, 2, 1))
	opaque.Pix = []uint8{255, 10}
	assert.Nil(t, AlphaToMask(opaque))
}

func TestLoadTemplateMissingFile(t *testing.T) {
	_, err := LoadTemplate("nope", "does/not/exist.png")
	assert.Error(t, err)
}

func TestTemplateRoundTripThroughDisk(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	img := noiseFrame(rng, 6, 4)
	path := t.TempDir() + "/t.png"
	require.NoError(t, SaveImage(path, img))

	tmpl, err := LoadTemplate("disk", path)
	require.NoError(t, err)
	assert.Nil(t, tmpl.Mask)
	assert.True(t, ImagesEqual(img, tmpl.Image))

	scaled := tmpl.Scaled(2)
	assert.Equal(t, image.Point{X: 12, Y: 8}, scaled.Size())
	assert.Same(t, tmpl, tmpl.Scaled(1))
}
