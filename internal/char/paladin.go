package char

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jordanella.com/botty-go/internal/events"
	"jordanella.com/botty-go/internal/input"
	"jordanella.com/botty-go/internal/monitor"
	"jordanella.com/botty-go/internal/pather"
	"jordanella.com/botty-go/internal/screen"
	"jordanella.com/botty-go/internal/ui"
)

const (
	// csLandmarkNode is the node sampled while charging toward the chaos
	// sanctuary entrance. Its timeout and threshold bound the charge.
	csLandmarkNode = 1602
	csSampleEvery  = 100 * time.Millisecond
	csFixedSteps   = 7
)

var (
	csChargeTarget   = screen.ScreenPoint{X: 1270, Y: 30}
	csEntranceTarget = screen.AbsPoint{X: 620, Y: -350}
)

// Paladin is the paladin class: auras on the right hand, attacks held with
// stand still
type Paladin struct {
	*Base
	pather  *pather.Pather
	automap *ui.Automap
}

// NewPaladin creates a paladin on top of base
func NewPaladin(base *Base, p *pather.Pather, automap *ui.Automap) *Paladin {
	base.logger.Info("Setting up Paladin")
	return &Paladin{Base: base, pather: p, automap: automap}
}

var _ Behavior = (*Paladin)(nil)

// PreBuff casts the CTA buff when available, then holy shield
func (p *Paladin) PreBuff(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.ctaAvailable {
		if err := p.PreBuffCTA(ctx); err != nil {
			return err
		}
	}

	hotkey := p.hotkeys["holy_shield"]
	if hotkey == "" {
		p.logger.Debug("No holy_shield hotkey, skipping")
		return nil
	}
	if err := p.keyboard.Send(hotkey, true, true); err != nil {
		return err
	}
	p.active[input.ButtonRight] = "holy_shield"
	p.humanizer.Wait(0.04, 0.1)
	if err := p.mouse.Click(input.ButtonRight); err != nil {
		return err
	}
	p.humanizer.Wait(p.castDuration, p.castDuration+0.06)
	return nil
}

// PreMove selects teleport when possible and falls back to vigor when
// teleport is missing or cannot be used here
func (p *Paladin) PreMove(ctx context.Context) error {
	if err := p.Base.PreMove(ctx); err != nil {
		return err
	}

	vigor := p.hotkeys["vigor"]
	if vigor == "" {
		return nil
	}
	selected, err := p.skills.IsRightSkillSelected([]string{"VIGOR"})
	if err != nil {
		return err
	}
	if selected {
		return nil
	}

	canTeleport := false
	if p.caps.CanTeleportNatively {
		if canTeleport, err = p.skills.IsRightSkillActive(); err != nil {
			return err
		}
	}
	if canTeleport {
		return nil
	}

	if err := p.keyboard.Send(vigor, true, true); err != nil {
		return err
	}
	p.active[input.ButtonRight] = "vigor"
	p.humanizer.Wait(0.15, 0.25)
	return nil
}

// Cast holds stand still and casts req.Skill, repeating the click until
// req.MinDuration has elapsed. With an aura the aura goes on the right hand
// and the skill is cast with the left; without one the skill is cast with
// the right.
func (p *Paladin) Cast(ctx context.Context, req CastRequest) error {
	p.logCast(req)
	standStill := p.cfg.Char.StandStill
	if standStill == "" {
		return monitor.NewConfigError("char", "stand_still", "hotkey not set")
	}

	button := input.ButtonRight
	if req.Aura != "" {
		button = input.ButtonLeft
		if _, err := p.SelectSkill(req.Aura, input.ButtonRight); err != nil {
			return err
		}
	}

	if err := p.keyboard.Send(standStill, true, false); err != nil {
		return err
	}

	clicks, elapsed, err := p.castHeld(ctx, req, button)

	// stand still is released even when the cast failed
	if relErr := p.keyboard.Send(standStill, false, true); err == nil {
		err = relErr
	}
	if err != nil {
		return err
	}

	p.publisher.Publish(events.NewCastEvent(req.Skill, clicks, elapsed))
	return nil
}

func (p *Paladin) castHeld(ctx context.Context, req CastRequest, button input.Button) (int, time.Duration, error) {
	if req.Aura == "" {
		if _, err := p.SelectSkill(req.Skill, input.ButtonRight); err != nil {
			return 0, 0, err
		}
		p.humanizer.Wait(0.04, 0.04)
	}

	clicks := 0
	start := p.clock.Now()
	for {
		if err := ctx.Err(); err != nil {
			return clicks, input.Since(p.clock, start), err
		}
		if err := p.clickCast(req, button); err != nil {
			return clicks, input.Since(p.clock, start), err
		}
		clicks++
		if req.MinDuration <= 0 || input.Since(p.clock, start) > req.MinDuration {
			return clicks, input.Since(p.clock, start), nil
		}
	}
}

// clickCast clicks button at the request target, sprayed along an arc or
// by up to ±Spray on both axes
func (p *Paladin) clickCast(req CastRequest, button input.Button) error {
	if req.Target != nil {
		pos := *req.Target
		switch {
		case req.ArcDeg > 0:
			radius := req.ArcRadius
			if radius == [2]float64{} {
				radius = [2]float64{1, 1}
			}
			pos = ArcSpread(pos, req.ArcDeg, radius, p.humanizer)
		case req.Spray > 0:
			pos.X += p.humanizer.Uniform(req.Spray)
			pos.Y += p.humanizer.Uniform(req.Spray)
		}
		if err := p.mouse.Move(p.screen.Converter().AbsToMonitor(pos), [2]float64{0.1, 0.2}); err != nil {
			return err
		}
		p.humanizer.Wait(0.06, 0.08)
	}
	if err := p.mouse.Press(button); err != nil {
		return err
	}
	p.humanizer.Wait(0.06, 0.08)
	return p.mouse.Release(button)
}

func (p *Paladin) logCast(req CastRequest) {
	var b strings.Builder
	fmt.Fprintf(&b, "Casting skill %s", req.Skill)
	if req.Target != nil {
		fmt.Fprintf(&b, " at screen coordinate %v", p.screen.Converter().AbsToScreen(*req.Target))
	}
	if req.Spray > 0 {
		fmt.Fprintf(&b, " with spray of %.0f", req.Spray)
	}
	if req.ArcDeg > 0 {
		fmt.Fprintf(&b, " along a %.0f degree arc", req.ArcDeg)
	}
	if req.MinDuration > 0 {
		fmt.Fprintf(&b, " for %.1fs", req.MinDuration.Seconds())
	}
	if req.Aura != "" {
		fmt.Fprintf(&b, " with %s active", req.Aura)
	}
	p.logger.Debug(b.String())
}

// ChargeTo charges to pos. Nothing happens without a charge hotkey.
func (p *Paladin) ChargeTo(ctx context.Context, pos screen.AbsPoint) error {
	charge := p.hotkeys["charge"]
	if charge == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.logger.Debugf("Charge to %v", pos)

	if _, err := p.SelectSkill("vigor", input.ButtonRight); err != nil {
		return err
	}
	if err := p.keyboard.Send(charge, true, true); err != nil {
		return err
	}
	p.SetActiveSkill(input.ButtonLeft, "charge")

	if err := p.mouse.Move(p.screen.Converter().AbsToMonitor(pos), p.cfg.PathingDelay()); err != nil {
		return err
	}
	standStill := p.cfg.Char.StandStill
	if err := p.keyboard.Send(standStill, true, false); err != nil {
		return err
	}
	p.humanizer.Wait(0.05, 0.07)
	err := p.mouse.Press(input.ButtonLeft)
	if err == nil {
		p.humanizer.Wait(0.12, 0.15)
		err = p.mouse.Release(input.ButtonLeft)
	}
	if relErr := p.keyboard.Send(standStill, false, true); err == nil {
		err = relErr
	}
	return err
}

// ActivateRedemption puts redemption on the left hand
func (p *Paladin) ActivateRedemption() (bool, error) {
	return p.selectSkill("redemption", input.ButtonLeft, [2]float64{0.6, 0.8})
}

// ActivateCleansing puts cleansing on the left hand
func (p *Paladin) ActivateCleansing() (bool, error) {
	return p.selectSkill("cleansing", input.ButtonLeft, [2]float64{0.3, 0.4})
}

// ActivateCleanseRedemption cleanses, then switches to redemption
func (p *Paladin) ActivateCleanseRedemption() error {
	if _, err := p.ActivateCleansing(); err != nil {
		return err
	}
	_, err := p.ActivateRedemption()
	return err
}

// RunToCS charges toward the chaos sanctuary while watching its landmark,
// then teleports the last stretch to the entrance along a fixed path
func (p *Paladin) RunToCS(ctx context.Context) (bool, error) {
	if _, err := p.SelectSkill("vigor", input.ButtonLeft); err != nil {
		return false, err
	}
	ok, err := p.SelectSkill("charge", input.ButtonLeft)
	if err != nil || !ok {
		return false, err
	}

	conv := p.screen.Converter()
	if err := p.mouse.Move(conv.ScreenToMonitor(csChargeTarget), p.cfg.PathingDelay()); err != nil {
		return false, err
	}
	standStill := p.cfg.Char.StandStill
	if err := p.keyboard.Send(standStill, true, false); err != nil {
		return false, err
	}

	err = p.chargeUntilClose(ctx)
	if relErr := p.mouse.Release(input.ButtonLeft); err == nil {
		err = relErr
	}
	if relErr := p.keyboard.Send(standStill, false, true); err == nil {
		err = relErr
	}
	if err != nil {
		return false, err
	}
	p.clock.Sleep(250 * time.Millisecond)

	target := conv.AbsToScreen(csEntranceTarget)
	path := make([]screen.ScreenPoint, csFixedSteps)
	for i := range path {
		path[i] = target
	}
	return p.pather.TraverseNodesFixed(ctx, path, p)
}

// chargeUntilClose holds the charge until the landmark is close or stops
// getting closer, or the node timeout runs out
func (p *Paladin) chargeUntilClose(ctx context.Context) error {
	node, ok := p.pather.Catalog().Node(csLandmarkNode)
	if !ok {
		return monitor.NewConfigError("routes", fmt.Sprint(csLandmarkNode), "unknown node")
	}
	budget := node.Timeout
	if budget <= 0 {
		budget = p.cfg.Pather.NodeTimeout
	}

	start := p.clock.Now()
	if err := p.mouse.Press(input.ButtonLeft); err != nil {
		return err
	}
	if err := p.automap.Toggle(ctx, true); err != nil {
		return err
	}

	tracker := pather.NewDistanceTracker(p.cfg.Pather.CloseEnough)
	for input.Since(p.clock, start) < budget {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, _, err := p.screen.Grab()
		if err != nil {
			return err
		}
		pos, found, err := p.pather.FindAbsNodePos(csLandmarkNode, frame, 0, node.Grayscale)
		if err != nil {
			return err
		}
		if found && tracker.Observe(pos.Norm()) != pather.Continue {
			return nil
		}
		p.clock.Sleep(csSampleEvery)
	}
	return nil
}
