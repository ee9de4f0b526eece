package cv

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"
)

// Template is a reference image patch. Mask is nil unless the source image
// carried fully transparent pixels.
type Template struct {
	Name  string
	Image *image.RGBA
	Mask  *image.Alpha
}

// Size returns the template dimensions
func (t *Template) Size() image.Point {
	return t.Image.Bounds().Size()
}

// LoadTemplate decodes a PNG template from disk
func LoadTemplate(name, path string) (*Template, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template %s: %w", path, err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode template %s: %w", path, err)
	}

	return NewTemplate(name, img), nil
}

// NewTemplate builds a template from an in-memory image. Pixel colours are
// stored un-premultiplied so transparent regions do not darken the patch.
func NewTemplate(name string, img image.Image) *Template {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	alpha := image.NewAlpha(rgba.Bounds())

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			if a > 0 && a < 0xffff {
				r = r * 0xffff / a
				g = g * 0xffff / a
				bl = bl * 0xffff / a
			}
			i := rgba.PixOffset(x, y)
			rgba.Pix[i] = uint8(r >> 8)
			rgba.Pix[i+1] = uint8(g >> 8)
			rgba.Pix[i+2] = uint8(bl >> 8)
			rgba.Pix[i+3] = 255
			alpha.Pix[alpha.PixOffset(x, y)] = uint8(a >> 8)
		}
	}

	return &Template{
		Name:  name,
		Image: rgba,
		Mask:  AlphaToMask(alpha),
	}
}

// AlphaToMask returns a binary mask (alpha > 1 becomes 255) when at least one
// pixel is fully transparent, otherwise nil.
func AlphaToMask(alpha *image.Alpha) *image.Alpha {
	hasTransparent := false
	for _, a := range alpha.Pix {
		if a == 0 {
			hasTransparent = true
			break
		}
	}
	if !hasTransparent {
		return nil
	}

	mask := image.NewAlpha(alpha.Bounds())
	for i, a := range alpha.Pix {
		if a > 1 {
			mask.Pix[i] = 255
		}
	}
	return mask
}

// Scaled returns a copy resized by factor. A factor of 1 returns t itself.
func (t *Template) Scaled(factor float64) *Template {
	if factor <= 0 || math.Abs(factor-1) < 1e-9 {
		return t
	}

	size := t.Size()
	w := max(1, int(math.Round(float64(size.X)*factor)))
	h := max(1, int(math.Round(float64(size.Y)*factor)))
	dst := image.Rect(0, 0, w, h)

	scaled := &Template{Name: t.Name, Image: image.NewRGBA(dst)}
	xdraw.CatmullRom.Scale(scaled.Image, dst, t.Image, t.Image.Bounds(), draw.Src, nil)

	if t.Mask != nil {
		mask := image.NewAlpha(dst)
		// nearest neighbour keeps the mask binary
		xdraw.NearestNeighbor.Scale(mask, dst, t.Mask, t.Mask.Bounds(), draw.Src, nil)
		scaled.Mask = mask
	}
	return scaled
}

// ToRGBA converts any image into an RGBA frame anchored at (0,0)
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// LoadImage decodes a PNG screenshot from disk
func LoadImage(path string) (*image.RGBA, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return ToRGBA(img), nil
}

// SaveImage writes img as PNG
func SaveImage(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}
