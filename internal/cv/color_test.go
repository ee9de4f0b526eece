package cv

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHSV(t *testing.T) {
	tests := []struct {
		name string
		rgb  [3]uint8
		want HSV
	}{
		{"black", [3]uint8{0, 0, 0}, HSV{0, 0, 0}},
		{"white", [3]uint8{255, 255, 255}, HSV{0, 0, 255}},
		{"red", [3]uint8{255, 0, 0}, HSV{0, 255, 255}},
		{"green", [3]uint8{0, 255, 0}, HSV{60, 255, 255}},
		{"blue", [3]uint8{0, 0, 255}, HSV{120, 255, 255}},
		{"dark yellow", [3]uint8{128, 128, 0}, HSV{30, 255, 128}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToHSV(tt.rgb[0], tt.rgb[1], tt.rgb[2]))
		})
	}
}

func TestColorRangeSplit(t *testing.T) {
	plain := ColorRange{Lower: [3]int{10, 0, 0}, Upper: [3]int{20, 255, 255}}
	assert.Len(t, plain.Split(), 1)

	negative := ColorRange{Lower: [3]int{-9, 201, 25}, Upper: [3]int{9, 237, 61}}
	parts := negative.Split()
	require.Len(t, parts, 2)
	assert.Equal(t, [3]int{0, 201, 25}, parts[0].Lower)
	assert.Equal(t, [3]int{9, 237, 61}, parts[0].Upper)
	assert.Equal(t, [3]int{171, 201, 25}, parts[1].Lower)
	assert.Equal(t, [3]int{180, 237, 61}, parts[1].Upper)

	over := ColorRange{Lower: [3]int{170, 201, 25}, Upper: [3]int{188, 237, 61}}
	parts = over.Split()
	require.Len(t, parts, 2)
	assert.Equal(t, [3]int{170, 201, 25}, parts[0].Lower)
	assert.Equal(t, [3]int{180, 237, 61}, parts[0].Upper)
	assert.Equal(t, [3]int{0, 201, 25}, parts[1].Lower)
	assert.Equal(t, [3]int{8, 237, 61}, parts[1].Upper)
}

func TestSplitMatchesCylinder(t *testing.T) {
	ranges := []ColorRange{
		{Lower: [3]int{-9, 50, 50}, Upper: [3]int{9, 255, 255}},
		{Lower: [3]int{-30, 0, 0}, Upper: [3]int{-5, 255, 255}},
		{Lower: [3]int{170, 100, 20}, Upper: [3]int{188, 200, 200}},
		{Lower: [3]int{90, 0, 0}, Upper: [3]int{110, 255, 255}},
	}

	for _, r := range ranges {
		parts := r.Split()
		for h := 0; h < HueMax; h++ {
			for _, sv := range [][2]int{{0, 0}, {60, 60}, {150, 150}, {255, 255}} {
				p := HSV{H: h, S: sv[0], V: sv[1]}
				split := false
				for _, sub := range parts {
					split = split || sub.contains(p)
				}
				assert.Equal(t, r.InRangeCylinder(p), split, "range %v pixel %v", r, p)
			}
		}
	}
}

func TestColorFilter(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})         // hue 0
	img.SetRGBA(1, 0, color.RGBA{R: 255, B: 20, A: 255})  // hue just below 180
	img.SetRGBA(2, 0, color.RGBA{G: 255, A: 255})         // hue 60

	red := ColorRange{Name: "red", Lower: [3]int{-9, 200, 200}, Upper: [3]int{9, 255, 255}}
	mask, filtered := ColorFilter(img, red)

	assert.Equal(t, []uint8{255, 255, 0}, mask.Pix)
	assert.Equal(t, uint8(255), filtered.RGBAAt(0, 0).R)
	assert.Equal(t, color.RGBA{}, filtered.RGBAAt(2, 0))
	assert.InDelta(t, 2.0/3.0, MaskCoverage(mask), 1e-9)
}

func TestNewColorRange(t *testing.T) {
	r, err := NewColorRange("gold", []int{20, 100, 100, 30, 255, 255})
	require.NoError(t, err)
	assert.Equal(t, [3]int{20, 100, 100}, r.Lower)
	assert.Equal(t, [3]int{30, 255, 255}, r.Upper)

	_, err = NewColorRange("bad", []int{1, 2, 3})
	assert.Error(t, err)
}

func TestMeanSaturation(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	img.SetRGBA(1, 0, color.RGBA{R: 128, G: 128, B: 128, A: 255})
	assert.InDelta(t, 127.5, MeanSaturation(img, img.Bounds()), 1e-9)
}
