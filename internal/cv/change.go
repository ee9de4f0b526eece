package cv

import (
	"fmt"
	"image"
	"sync"

	"github.com/corona10/goimagehash"
)

// ChangeDetector compares consecutive frames by difference hash. The pather
// uses it to notice that a move command left the view unchanged.
type ChangeDetector struct {
	mu        sync.Mutex
	threshold int
	region    image.Rectangle
	lastHash  *goimagehash.ImageHash
}

// NewChangeDetector creates a detector. Frames whose hash differs from the
// previous one by more than threshold bits count as changed. A non-empty
// region limits hashing to that part of the frame.
func NewChangeDetector(threshold int, region image.Rectangle) *ChangeDetector {
	return &ChangeDetector{threshold: threshold, region: region}
}

// Changed hashes frame and compares it with the previous one. The first
// frame after a reset always reports changed.
func (d *ChangeDetector) Changed(frame *image.RGBA) (bool, int, error) {
	img := image.Image(frame)
	if !d.region.Empty() {
		img = CutROI(frame, d.region)
	}

	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return false, 0, fmt.Errorf("failed to hash frame: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lastHash == nil {
		d.lastHash = hash
		return true, 0, nil
	}

	dist, err := d.lastHash.Distance(hash)
	d.lastHash = hash
	if err != nil {
		return true, 0, fmt.Errorf("failed to compare frame hashes: %w", err)
	}
	return dist > d.threshold, dist, nil
}

// Reset forgets the previous frame
func (d *ChangeDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastHash = nil
}
