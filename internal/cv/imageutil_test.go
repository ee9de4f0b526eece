package cv

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCutROI(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	frame := noiseFrame(rng, 20, 20)

	cut := CutROI(frame, image.Rect(5, 6, 9, 8))
	assert.Equal(t, image.Rect(0, 0, 4, 2), cut.Bounds())
	assert.Equal(t, frame.RGBAAt(5, 6), cut.RGBAAt(0, 0))
	assert.Equal(t, frame.RGBAAt(8, 7), cut.RGBAAt(3, 1))
}

func TestMaskByROI(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	frame := noiseFrame(rng, 10, 10)
	roi := image.Rect(2, 2, 5, 5)
	black := color.RGBA{A: 255}

	regular := MaskByROI(frame, roi, false)
	assert.Equal(t, frame.RGBAAt(3, 3), regular.RGBAAt(3, 3))
	assert.Equal(t, black, regular.RGBAAt(8, 8))

	inverse := MaskByROI(frame, roi, true)
	assert.Equal(t, black, inverse.RGBAAt(3, 3))
	assert.Equal(t, frame.RGBAAt(8, 8), inverse.RGBAAt(8, 8))
}

func TestTrimBlack(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	img.SetRGBA(3, 4, color.RGBA{R: 10, A: 255})
	img.SetRGBA(6, 7, color.RGBA{G: 10, A: 255})

	trimmed, box, ok := TrimBlack(img)
	require.True(t, ok)
	assert.Equal(t, image.Rect(3, 4, 7, 8), box)
	assert.Equal(t, image.Point{X: 4, Y: 4}, trimmed.Bounds().Size())

	_, _, ok = TrimBlack(image.NewRGBA(image.Rect(0, 0, 3, 3)))
	assert.False(t, ok)
}

func TestImagesEqual(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	a := noiseFrame(rng, 5, 5)
	b := CutROI(a, a.Bounds())
	assert.True(t, ImagesEqual(a, b))

	b.SetRGBA(2, 2, color.RGBA{R: a.RGBAAt(2, 2).R + 1, A: 255})
	assert.False(t, ImagesEqual(a, b))
	assert.False(t, ImagesEqual(a, noiseFrame(rng, 5, 4)))
}

func TestDebugMatch(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 10, 10))
	m := Match{Size: image.Point{X: 4, Y: 3}}
	m.Position.X, m.Position.Y = 2, 2

	debug := DebugMatch(frame, m)
	red := color.RGBA{R: 255, A: 255}
	assert.Equal(t, red, debug.RGBAAt(2, 2))
	assert.Equal(t, red, debug.RGBAAt(5, 4))
	assert.Equal(t, color.RGBA{}, debug.RGBAAt(3, 3))
	assert.Equal(t, color.RGBA{}, frame.RGBAAt(2, 2), "source frame untouched")
}

func TestChangeDetector(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	still := noiseFrame(rng, 64, 64)
	moved := noiseFrame(rng, 64, 64)

	d := NewChangeDetector(5, image.Rectangle{})

	changed, _, err := d.Changed(still)
	require.NoError(t, err)
	assert.True(t, changed, "first frame counts as changed")

	changed, dist, err := d.Changed(still)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 0, dist)

	changed, dist, err = d.Changed(moved)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Greater(t, dist, 5)

	d.Reset()
	changed, _, err = d.Changed(moved)
	require.NoError(t, err)
	assert.True(t, changed)
}
