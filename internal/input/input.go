package input

import (
	"fmt"
	"strings"

	"jordanella.com/botty-go/internal/screen"
)

// Button is a mouse button name
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "center"
)

// Mouse drives the pointer in monitor coordinates
type Mouse interface {
	// Move glides to p. delayFactor scales the per-step delay range.
	Move(p screen.MonitorPoint, delayFactor [2]float64) error
	Press(b Button) error
	Release(b Button) error
	Click(b Button) error
}

// Keyboard sends hotkeys in the config notation ("f4", "shift", "ctrl+e")
type Keyboard interface {
	Send(hotkey string, doPress, doRelease bool) error
}

// Hotkey is a parsed key chord
type Hotkey struct {
	Key       string
	Modifiers []string
}

var modifierNames = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"shift":   "shift",
	"alt":     "alt",
	"cmd":     "cmd",
}

// ParseHotkey splits "ctrl+e" into key "e" and modifier "ctrl". A lone
// modifier such as "shift" is a key of its own.
func ParseHotkey(s string) (Hotkey, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Hotkey{}, fmt.Errorf("empty hotkey")
	}

	parts := strings.Split(s, "+")
	key := strings.TrimSpace(parts[len(parts)-1])
	if key == "" {
		return Hotkey{}, fmt.Errorf("invalid hotkey %q", s)
	}

	hk := Hotkey{Key: key}
	for _, p := range parts[:len(parts)-1] {
		mod, ok := modifierNames[strings.TrimSpace(p)]
		if !ok {
			return Hotkey{}, fmt.Errorf("invalid modifier %q in hotkey %q", p, s)
		}
		hk.Modifiers = append(hk.Modifiers, mod)
	}
	return hk, nil
}

func (h Hotkey) String() string {
	if len(h.Modifiers) == 0 {
		return h.Key
	}
	return strings.Join(h.Modifiers, "+") + "+" + h.Key
}
