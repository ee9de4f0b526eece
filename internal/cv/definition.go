package cv

import "jordanella.com/botty-go/internal/screen"

// TemplateDef describes a landmark: where its image lives and how it is
// usually searched for.
type TemplateDef struct {
	Name      string
	Path      string
	Threshold float64
	ROI       *screen.ROI // design pixels; nil searches the whole frame
	Grayscale bool
	Color     string // optional colour range name applied before matching
}

// InRegion sets the search region for the template
func (d TemplateDef) InRegion(x, y, w, h int) TemplateDef {
	roi := screen.NewROI(x, y, w, h)
	d.ROI = &roi
	return d
}

// WithThreshold sets the matching threshold
func (d TemplateDef) WithThreshold(threshold float64) TemplateDef {
	d.Threshold = threshold
	return d
}

// WithGrayscale toggles grayscale correlation
func (d TemplateDef) WithGrayscale(gray bool) TemplateDef {
	d.Grayscale = gray
	return d
}
