// Package ui reads the state of in-game interface elements from frames.
package ui

import (
	"image"

	"jordanella.com/botty-go/internal/cv"
	"jordanella.com/botty-go/internal/monitor"
	"jordanella.com/botty-go/internal/screen"
)

const (
	// SkillMatchThreshold is the score a skill icon needs in the skill slot
	SkillMatchThreshold = 0.84
	// ActiveSaturation is the mean saturation above which a skill icon is
	// drawn in colour, meaning the skill can be used
	ActiveSaturation = 120.0
)

// Vision captures frames and matches templates in them
type Vision interface {
	Grab() (*image.RGBA, screen.Converter, error)
	FindTemplateInFrame(frame *image.RGBA, conv screen.Converter, name string, opts ...cv.Option) (cv.Match, bool, error)
}

// SkillDetector inspects the right-hand skill slot
type SkillDetector struct {
	vision Vision
	slot   screen.ROI
}

// NewSkillDetector creates a detector for the skill_right region
func NewSkillDetector(vision Vision, rois map[string]screen.ROI) (*SkillDetector, error) {
	slot, ok := rois["skill_right"]
	if !ok {
		return nil, monitor.NewConfigError("ui_roi", "skill_right", "required key missing")
	}
	return &SkillDetector{vision: vision, slot: slot}, nil
}

// Slot returns the right skill region in design pixels
func (d *SkillDetector) Slot() screen.ROI {
	return d.slot
}

// IsRightSkillSelected reports whether any of the named skill icons is in
// the right skill slot
func (d *SkillDetector) IsRightSkillSelected(names []string) (bool, error) {
	frame, conv, err := d.vision.Grab()
	if err != nil {
		return false, err
	}
	for _, name := range names {
		_, ok, err := d.vision.FindTemplateInFrame(frame, conv, name,
			cv.WithROI(d.slot), cv.WithThreshold(SkillMatchThreshold))
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// IsRightSkillActive reports whether the right skill icon is coloured. A
// greyed out icon means the skill cannot be cast here, e.g. teleport in town.
func (d *SkillDetector) IsRightSkillActive() (bool, error) {
	frame, conv, err := d.vision.Grab()
	if err != nil {
		return false, err
	}
	return cv.MeanSaturation(frame, d.slot.Rect(conv)) > ActiveSaturation, nil
}

// CaptureRightSkill returns a copy of the right skill slot
func (d *SkillDetector) CaptureRightSkill() (*image.RGBA, error) {
	frame, conv, err := d.vision.Grab()
	if err != nil {
		return nil, err
	}
	return cv.CutROI(frame, d.slot.Rect(conv)), nil
}
