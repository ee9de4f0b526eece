package char

import (
	"context"
	"image"
	"time"

	"jordanella.com/botty-go/internal/config"
	"jordanella.com/botty-go/internal/cv"
	"jordanella.com/botty-go/internal/events"
	"jordanella.com/botty-go/internal/input"
	"jordanella.com/botty-go/internal/logging"
	"jordanella.com/botty-go/internal/monitor"
	"jordanella.com/botty-go/internal/screen"
	"jordanella.com/botty-go/internal/ui"
)

const (
	defaultMinWalkDist = 10
	defaultMaxWalkDist = 150

	// weaponSwitchBudget bounds each weapon switch loop of the CTA buff
	weaponSwitchBudget = 4 * time.Second
)

// Screen is the vision a character needs: frames, template matches and the
// current coordinate converter
type Screen interface {
	ui.Vision
	Converter() screen.Converter
}

// CastRequest describes one cast. A nil Target casts at the cursor.
type CastRequest struct {
	Skill       string
	Target      *screen.AbsPoint
	Spray       float64
	MinDuration time.Duration
	Aura        string
	// ArcDeg sprays the target along an arc around the player instead of
	// the uniform Spray box; ArcRadius scales its distance, {1, 1} if unset
	ArcDeg    float64
	ArcRadius [2]float64
}

// Behavior is what the session needs from a character class
type Behavior interface {
	Capabilities() Capabilities
	SelectSkill(skill string, button input.Button) (bool, error)
	PreBuff(ctx context.Context) error
	PreMove(ctx context.Context) error
	Move(ctx context.Context, target screen.ScreenPoint, forceMove bool) error
	Cast(ctx context.Context, req CastRequest) error
	RunToCS(ctx context.Context) (bool, error)
}

// Deps are the collaborators shared by every character class
type Deps struct {
	Config    *config.Config
	Mouse     input.Mouse
	Keyboard  input.Keyboard
	Humanizer *input.Humanizer
	Screen    Screen
	Skills    *ui.SkillDetector
	Logger    *logging.Logger
	Publisher events.Publisher
}

// Base implements the behaviour common to all classes: skill selection,
// movement and the CTA buff
type Base struct {
	cfg       *config.Config
	hotkeys   map[string]string
	mouse     input.Mouse
	keyboard  input.Keyboard
	humanizer *input.Humanizer
	clock     input.Clock
	screen    Screen
	skills    *ui.SkillDetector
	logger    *logging.Logger
	publisher events.Publisher

	caps         Capabilities
	castDuration float64
	active       map[input.Button]string
	ctaAvailable bool
}

// NewBase validates deps and computes the capabilities
func NewBase(deps Deps) (*Base, error) {
	if deps.Config == nil {
		return nil, monitor.NewConfigError("char", "", "configuration is required")
	}
	caps, err := ComputeCapabilities(deps.Config.Char.Teleport, deps.Config.Advanced.OverrideCapabilities)
	if err != nil {
		return nil, err
	}

	hotkeys := make(map[string]string, len(deps.Config.Skills)+1)
	for k, v := range deps.Config.Skills {
		hotkeys[k] = v
	}
	if deps.Config.Char.Teleport != "" {
		hotkeys["teleport"] = deps.Config.Char.Teleport
	}
	if deps.Config.Char.BattleOrders != "" {
		hotkeys["battle_orders"] = deps.Config.Char.BattleOrders
	}
	if deps.Config.Char.BattleCommand != "" {
		hotkeys["battle_command"] = deps.Config.Char.BattleCommand
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	var pub events.Publisher = events.NopPublisher{}
	if deps.Publisher != nil {
		pub = deps.Publisher
	}

	return &Base{
		cfg:          deps.Config,
		hotkeys:      hotkeys,
		mouse:        deps.Mouse,
		keyboard:     deps.Keyboard,
		humanizer:    deps.Humanizer,
		clock:        deps.Humanizer.Clock(),
		screen:       deps.Screen,
		skills:       deps.Skills,
		logger:       logger,
		publisher:    pub,
		caps:         caps,
		castDuration: deps.Config.CastDuration(),
		active:       map[input.Button]string{input.ButtonLeft: "", input.ButtonRight: ""},
		ctaAvailable: deps.Config.Char.CTAAvailable,
	}, nil
}

// Capabilities returns the movement options fixed at construction
func (b *Base) Capabilities() Capabilities {
	return b.caps
}

// Hotkey returns the hotkey bound to skill, empty if none
func (b *Base) Hotkey(skill string) string {
	return b.hotkeys[skill]
}

// ActiveSkill returns the last skill selected on button
func (b *Base) ActiveSkill(button input.Button) string {
	return b.active[button]
}

// SetActiveSkill records that skill is now bound to button
func (b *Base) SetActiveSkill(button input.Button, skill string) {
	b.active[button] = skill
}

// CastDuration is the time one cast animation takes, in seconds
func (b *Base) CastDuration() float64 {
	return b.castDuration
}

// SelectSkill binds skill to button with its hotkey. It returns false when
// the skill has no hotkey.
func (b *Base) SelectSkill(skill string, button input.Button) (bool, error) {
	return b.selectSkill(skill, button, [2]float64{})
}

func (b *Base) selectSkill(skill string, button input.Button, delay [2]float64) (bool, error) {
	hotkey := b.hotkeys[skill]
	if hotkey == "" {
		b.logger.Warnf("No hotkey for skill '%s'", skill)
		return false, nil
	}
	if b.active[button] != skill {
		if err := b.keyboard.Send(hotkey, true, true); err != nil {
			return false, err
		}
	}
	b.active[button] = skill
	if delay[1] > 0 {
		b.humanizer.Wait(delay[0], delay[1])
	}
	return true, nil
}

// PreMove selects teleport when the character has it and it is not on the
// right hand yet
func (b *Base) PreMove(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !b.caps.CanTeleportNatively || b.hotkeys["teleport"] == "" {
		return nil
	}
	selected, err := b.skills.IsRightSkillSelected([]string{"TELE_ACTIVE", "TELE_INACTIVE"})
	if err != nil {
		return err
	}
	if !selected {
		if err := b.keyboard.Send(b.hotkeys["teleport"], true, true); err != nil {
			return err
		}
		b.active[input.ButtonRight] = "teleport"
		b.humanizer.Wait(0.15, 0.25)
	}
	return nil
}

// Move teleports to target when teleport is on the right hand, otherwise
// walks in its direction. A walk click lands at a random walking distance
// rather than on the target itself.
func (b *Base) Move(ctx context.Context, target screen.ScreenPoint, forceMove bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	conv := b.screen.Converter()
	delay := b.cfg.PathingDelay()

	if !forceMove && b.hotkeys["teleport"] != "" {
		teleport, err := b.skills.IsRightSkillSelected([]string{"TELE_ACTIVE"})
		if err != nil {
			return err
		}
		if teleport {
			target = b.jitter(conv, target, 3)
			if err := b.mouse.Move(conv.ScreenToMonitor(target), delay); err != nil {
				return err
			}
			b.humanizer.Wait(0.012, 0.02)
			if err := b.mouse.Click(input.ButtonRight); err != nil {
				return err
			}
			b.humanizer.Wait(b.castDuration, b.castDuration+0.02)
			return nil
		}
	}

	walk := conv.AbsToScreen(b.walkTarget(conv.ScreenToAbs(target)))
	walk = b.jitter(conv, walk, 5)
	if err := b.mouse.Move(conv.ScreenToMonitor(walk), delay); err != nil {
		return err
	}
	b.humanizer.Wait(0.012, 0.02)
	if forceMove && b.cfg.Char.ForceMove != "" {
		return b.keyboard.Send(b.cfg.Char.ForceMove, true, true)
	}
	return b.mouse.Click(input.ButtonLeft)
}

// walkTarget rescales pos to a random walking distance
func (b *Base) walkTarget(pos screen.AbsPoint) screen.AbsPoint {
	minWalk := float64(defaultMinWalkDist)
	if v, ok := b.cfg.UIPos["min_walk_dist"]; ok && float64(v) > minWalk {
		minWalk = float64(v)
	}
	maxWalk := defaultMaxWalkDist
	if v, ok := b.cfg.UIPos["max_walk_dist"]; ok && v > 0 {
		maxWalk = v
	}
	lo := int(float64(maxWalk) * 0.65)
	walk := float64(lo + b.humanizer.Intn(maxWalk-lo+1))

	d := pos.Norm()
	factor := walk / max(minWalk, d)
	return screen.AbsPoint{X: pos.X * factor, Y: pos.Y * factor}
}

func (b *Base) jitter(conv screen.Converter, p screen.ScreenPoint, px int) screen.ScreenPoint {
	return conv.ClampScreen(screen.ScreenPoint{
		X: p.X + b.humanizer.Intn(2*px+1) - px,
		Y: p.Y + b.humanizer.Intn(2*px+1) - px,
	})
}

// CTAAvailable reports whether the CTA buff is still attempted
func (b *Base) CTAAvailable() bool {
	return b.ctaAvailable
}

// PreBuffCTA switches to the CTA weapon, casts battle command and battle
// orders, then switches back. When battle command never shows up on the
// right hand the buff is disabled for the rest of the session.
func (b *Base) PreBuffCTA(ctx context.Context) error {
	switchKey := b.cfg.Char.WeaponSwitch
	if switchKey == "" {
		return monitor.NewConfigError("char", "weapon_switch", "required for cta_available")
	}

	before, err := b.skills.CaptureRightSkill()
	if err != nil {
		return err
	}

	switched := false
	start := b.clock.Now()
	for input.Since(b.clock, start) < weaponSwitchBudget {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.keyboard.Send(switchKey, true, true); err != nil {
			return err
		}
		b.humanizer.Wait(0.3, 0.35)
		if _, err := b.selectSkill("battle_command", input.ButtonRight, [2]float64{0.1, 0.2}); err != nil {
			return err
		}
		ok, err := b.skills.IsRightSkillSelected([]string{"BC", "BO"})
		if err != nil {
			return err
		}
		if ok {
			switched = true
			break
		}
	}

	if !switched {
		b.logger.Warn("Battle command not found on the switch weapon, disabling CTA buff")
		b.ctaAvailable = false
	} else {
		for _, skill := range []string{"battle_command", "battle_orders"} {
			if _, err := b.selectSkill(skill, input.ButtonRight, [2]float64{0.1, 0.2}); err != nil {
				return err
			}
			if err := b.mouse.Click(input.ButtonRight); err != nil {
				return err
			}
			b.humanizer.Wait(b.castDuration+0.16, b.castDuration+0.18)
		}
	}

	start = b.clock.Now()
	for input.Since(b.clock, start) < weaponSwitchBudget {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.keyboard.Send(switchKey, true, true); err != nil {
			return err
		}
		b.humanizer.Wait(0.3, 0.35)
		after, err := b.skills.CaptureRightSkill()
		if err != nil {
			return err
		}
		if sameSkillIcon(before, after) {
			return nil
		}
		b.logger.Warn("Failed to switch weapon back, trying again")
		b.humanizer.Wait(0.5, 0.5)
	}
	return nil
}

func sameSkillIcon(before, after *image.RGBA) bool {
	if cv.ImagesEqual(before, after) {
		return true
	}
	if before.Bounds().Size() != after.Bounds().Size() {
		return false
	}
	_, ok, err := cv.Find(after, cv.NewTemplate("skill_before", before), cv.MatchOptions{Threshold: 0.9})
	return err == nil && ok
}
