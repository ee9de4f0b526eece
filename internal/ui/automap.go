package ui

import (
	"context"

	"jordanella.com/botty-go/internal/input"
	"jordanella.com/botty-go/internal/monitor"
)

// Automap shows and hides the automap overlay with its hotkey
type Automap struct {
	keyboard  input.Keyboard
	humanizer *input.Humanizer
	hotkey    string

	// with a template the overlay state is read from the screen, otherwise
	// the last toggle is remembered
	vision   Vision
	template string
	shown    bool
}

// NewAutomap creates a toggle for hotkey
func NewAutomap(kb input.Keyboard, h *input.Humanizer, hotkey string) *Automap {
	return &Automap{keyboard: kb, humanizer: h, hotkey: hotkey}
}

// WithDetector reads the overlay state by matching template instead of
// remembering it
func (a *Automap) WithDetector(vision Vision, template string) *Automap {
	a.vision = vision
	a.template = template
	return a
}

// Shown reports whether the automap is visible
func (a *Automap) Shown() (bool, error) {
	if a.vision == nil || a.template == "" {
		return a.shown, nil
	}
	frame, conv, err := a.vision.Grab()
	if err != nil {
		return false, err
	}
	_, ok, err := a.vision.FindTemplateInFrame(frame, conv, a.template)
	return ok, err
}

// Toggle brings the automap into the requested state. Nothing is sent when
// it is already there.
func (a *Automap) Toggle(ctx context.Context, on bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.hotkey == "" {
		return monitor.NewConfigError("char", "show_automap", "hotkey not set")
	}

	shown, err := a.Shown()
	if err != nil {
		return err
	}
	if shown == on {
		return nil
	}

	if err := a.keyboard.Send(a.hotkey, true, true); err != nil {
		return err
	}
	a.shown = on
	a.humanizer.Wait(0.1, 0.15)
	return nil
}
