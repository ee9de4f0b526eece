// Package char turns skill names and target positions into timed input for a
// character class.
package char

import (
	"strings"

	"jordanella.com/botty-go/internal/monitor"
)

// Capabilities is the fixed set of movement options of a character
type Capabilities struct {
	CanTeleportNatively    bool
	CanTeleportWithCharges bool
}

// CanTeleport reports whether any kind of teleport is available
func (c Capabilities) CanTeleport() bool {
	return c.CanTeleportNatively || c.CanTeleportWithCharges
}

func (c Capabilities) String() string {
	switch {
	case c.CanTeleportNatively:
		return "teleport"
	case c.CanTeleportWithCharges:
		return "charged_teleport"
	default:
		return "walk"
	}
}

// ComputeCapabilities derives the capabilities from the teleport hotkey. A
// non-empty override ("walk", "teleport", "charged_teleport") wins.
func ComputeCapabilities(teleportHotkey, override string) (Capabilities, error) {
	switch strings.ToLower(strings.TrimSpace(override)) {
	case "":
		return Capabilities{CanTeleportNatively: teleportHotkey != ""}, nil
	case "walk":
		return Capabilities{}, nil
	case "teleport":
		return Capabilities{CanTeleportNatively: true}, nil
	case "charged_teleport":
		return Capabilities{CanTeleportWithCharges: true}, nil
	default:
		return Capabilities{}, monitor.NewConfigError("advanced_options", "override_capabilities",
			"expected walk, teleport or charged_teleport, got "+override)
	}
}
