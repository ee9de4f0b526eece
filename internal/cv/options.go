package cv

import "jordanella.com/botty-go/internal/screen"

// Option overrides the stored definition of a landmark for one search
type Option func(*searchOptions)

type searchOptions struct {
	threshold *float64
	roi       *screen.ROI
	grayscale *bool
	color     *ColorRange
}

// WithThreshold sets the matching threshold option
func WithThreshold(t float64) Option {
	return func(opts *searchOptions) {
		opts.threshold = &t
	}
}

// WithROI restricts the search to a design-space region
func WithROI(r screen.ROI) Option {
	return func(opts *searchOptions) {
		opts.roi = &r
	}
}

// WithGrayscale selects grayscale or colour correlation
func WithGrayscale(gray bool) Option {
	return func(opts *searchOptions) {
		opts.grayscale = &gray
	}
}

// WithColor filters frame and template by a colour range before matching
func WithColor(r ColorRange) Option {
	return func(opts *searchOptions) {
		opts.color = &r
	}
}
