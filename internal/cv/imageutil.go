package cv

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
)

// CutROI returns a copy of rect from img, anchored at (0,0)
func CutROI(img *image.RGBA, rect image.Rectangle) *image.RGBA {
	rect = rect.Intersect(img.Bounds())
	cropped := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(cropped, cropped.Bounds(), img, rect.Min, draw.Src)
	return cropped
}

// MaskByROI blacks out everything outside rect, or inside it when inverse is set
func MaskByROI(img *image.RGBA, rect image.Rectangle, inverse bool) *image.RGBA {
	black := image.NewUniform(color.RGBA{A: 255})

	if inverse {
		masked := image.NewRGBA(img.Bounds())
		copy(masked.Pix, img.Pix)
		draw.Draw(masked, rect.Intersect(img.Bounds()), black, image.Point{}, draw.Src)
		return masked
	}

	masked := image.NewRGBA(img.Bounds())
	draw.Draw(masked, masked.Bounds(), black, image.Point{}, draw.Src)
	inside := rect.Intersect(img.Bounds())
	draw.Draw(masked, inside, img, inside.Min, draw.Src)
	return masked
}

// TrimBlack crops away the black border of img. ok is false for an all-black image.
func TrimBlack(img *image.RGBA) (*image.RGBA, image.Rectangle, bool) {
	b := img.Bounds()
	bbox := image.Rectangle{}
	found := false

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			if img.Pix[i] == 0 && img.Pix[i+1] == 0 && img.Pix[i+2] == 0 {
				continue
			}
			px := image.Rect(x, y, x+1, y+1)
			if !found {
				bbox = px
				found = true
			} else {
				bbox = bbox.Union(px)
			}
		}
	}

	if !found {
		return nil, image.Rectangle{}, false
	}
	return CutROI(img, bbox), bbox, true
}

// ImagesEqual reports whether both images have the same size and pixels
func ImagesEqual(a, b *image.RGBA) bool {
	if a.Bounds().Size() != b.Bounds().Size() {
		return false
	}
	a, b = ToRGBA(a), ToRGBA(b)
	if a.Stride == b.Stride {
		return bytes.Equal(a.Pix, b.Pix)
	}
	w := a.Bounds().Dx() * 4
	for y := 0; y < a.Bounds().Dy(); y++ {
		if !bytes.Equal(a.Pix[y*a.Stride:y*a.Stride+w], b.Pix[y*b.Stride:y*b.Stride+w]) {
			return false
		}
	}
	return true
}

// DebugMatch returns a copy of frame with every match outlined in red
func DebugMatch(frame *image.RGBA, matches ...Match) *image.RGBA {
	debug := image.NewRGBA(frame.Bounds())
	copy(debug.Pix, frame.Pix)

	for _, m := range matches {
		drawRect(debug, m.Rect(), color.RGBA{R: 255, A: 255})
	}
	return debug
}

func drawRect(img *image.RGBA, rect image.Rectangle, col color.RGBA) {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return
	}
	for x := rect.Min.X; x < rect.Max.X; x++ {
		img.SetRGBA(x, rect.Min.Y, col)
		img.SetRGBA(x, rect.Max.Y-1, col)
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		img.SetRGBA(rect.Min.X, y, col)
		img.SetRGBA(rect.Max.X-1, y, col)
	}
}
