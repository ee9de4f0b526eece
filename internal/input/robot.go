package input

import (
	"sync"

	"github.com/go-vgo/robotgo"

	"jordanella.com/botty-go/internal/monitor"
	"jordanella.com/botty-go/internal/screen"
)

// stepDelayScale converts the configured delay factors into the per-step
// millisecond range robotgo's smooth move expects
const stepDelayScale = 10.0

// RobotMouse implements Mouse with robotgo
type RobotMouse struct {
	mu        sync.Mutex
	humanizer *Humanizer
}

// NewRobotMouse creates a mouse adapter. The humanizer inserts the short
// randomized delays between press and release.
func NewRobotMouse(h *Humanizer) *RobotMouse {
	return &RobotMouse{humanizer: h}
}

func (m *RobotMouse) Move(p screen.MonitorPoint, delayFactor [2]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	low, high := delayFactor[0]*stepDelayScale, delayFactor[1]*stepDelayScale
	if low <= 0 && high <= 0 {
		robotgo.Move(p.X, p.Y)
		return nil
	}
	if !robotgo.MoveSmooth(p.X, p.Y, low, high) {
		// a smooth move that was interrupted still has to land on target
		robotgo.Move(p.X, p.Y)
	}
	return nil
}

func (m *RobotMouse) Press(b Button) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := robotgo.Toggle(string(b)); err != nil {
		return monitor.NewDeviceError("mouse", "press "+string(b), err)
	}
	return nil
}

func (m *RobotMouse) Release(b Button) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := robotgo.Toggle(string(b), "up"); err != nil {
		return monitor.NewDeviceError("mouse", "release "+string(b), err)
	}
	return nil
}

// Click presses and releases with a humanized pause in between
func (m *RobotMouse) Click(b Button) error {
	if err := m.Press(b); err != nil {
		return err
	}
	m.humanizer.Wait(m.humanizer.Jitter.Click[0], m.humanizer.Jitter.Click[1])
	return m.Release(b)
}

// RobotKeyboard implements Keyboard with robotgo
type RobotKeyboard struct {
	mu        sync.Mutex
	humanizer *Humanizer
}

// NewRobotKeyboard creates a keyboard adapter
func NewRobotKeyboard(h *Humanizer) *RobotKeyboard {
	return &RobotKeyboard{humanizer: h}
}

func (k *RobotKeyboard) Send(hotkey string, doPress, doRelease bool) error {
	hk, err := ParseHotkey(hotkey)
	if err != nil {
		return monitor.NewConfigError("char", hotkey, err.Error())
	}

	if doPress {
		if err := k.toggle(hk, "down"); err != nil {
			return err
		}
	}
	if doPress && doRelease {
		k.humanizer.Wait(k.humanizer.Jitter.Key[0], k.humanizer.Jitter.Key[1])
	}
	if doRelease {
		if err := k.toggle(hk, "up"); err != nil {
			return err
		}
	}
	return nil
}

func (k *RobotKeyboard) toggle(hk Hotkey, dir string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	args := []interface{}{dir}
	for _, mod := range hk.Modifiers {
		args = append(args, mod)
	}
	if err := robotgo.KeyToggle(hk.Key, args...); err != nil {
		return monitor.NewDeviceError("keyboard", dir+" "+hk.String(), err)
	}
	return nil
}
