package ui

import (
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jordanella.com/botty-go/internal/input"
	"jordanella.com/botty-go/internal/input/inputtest"
	"jordanella.com/botty-go/internal/monitor"
	"jordanella.com/botty-go/internal/screen"
	"jordanella.com/botty-go/internal/ui/uitest"
)

var testROIs = map[string]screen.ROI{"skill_right": {X: 700, Y: 660, W: 40, H: 40}}

func TestSkillDetectorSelected(t *testing.T) {
	vision := uitest.NewFakeVision(1280, 720)
	d, err := NewSkillDetector(vision, testROIs)
	require.NoError(t, err)

	ok, err := d.IsRightSkillSelected([]string{"VIGOR"})
	require.NoError(t, err)
	assert.False(t, ok)

	vision.Show("TELE_ACTIVE", screen.ScreenPoint{X: 720, Y: 680})
	ok, err = d.IsRightSkillSelected([]string{"TELE_INACTIVE", "TELE_ACTIVE"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSkillDetectorActive(t *testing.T) {
	vision := uitest.NewFakeVision(1280, 720)
	d, err := NewSkillDetector(vision, testROIs)
	require.NoError(t, err)

	ok, err := d.IsRightSkillActive()
	require.NoError(t, err)
	assert.False(t, ok, "grey icon is inactive")

	vision.Fill(d.Slot().Rect(vision.Converter()), color.RGBA{R: 40, G: 60, B: 220, A: 255})
	ok, err = d.IsRightSkillActive()
	require.NoError(t, err)
	assert.True(t, ok)

	icon, err := d.CaptureRightSkill()
	require.NoError(t, err)
	assert.Equal(t, 40, icon.Bounds().Dx())
}

func TestSkillDetectorErrors(t *testing.T) {
	_, err := NewSkillDetector(uitest.NewFakeVision(10, 10), map[string]screen.ROI{})
	assert.Equal(t, monitor.ErrorConfiguration, monitor.Classify(err))

	vision := uitest.NewFakeVision(1280, 720)
	vision.GrabErr = monitor.NewDeviceError("screen", "grab", errors.New("gone"))
	d, err := NewSkillDetector(vision, testROIs)
	require.NoError(t, err)
	_, err = d.IsRightSkillActive()
	assert.Equal(t, monitor.ErrorDevice, monitor.Classify(err))
}

func TestAutomapToggle(t *testing.T) {
	clock := inputtest.NewFakeClock()
	rec := inputtest.NewRecorder(clock)
	h := input.NewHumanizer(clock, input.Jitter{}, 1)
	m := NewAutomap(rec, h, "tab")
	ctx := context.Background()

	require.NoError(t, m.Toggle(ctx, true))
	require.NoError(t, m.Toggle(ctx, true))
	assert.Equal(t, 1, rec.Count("key_up", "tab"))

	require.NoError(t, m.Toggle(ctx, false))
	assert.Equal(t, 2, rec.Count("key_up", "tab"))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, m.Toggle(cancelled, true), context.Canceled)

	err := NewAutomap(rec, h, "").Toggle(ctx, true)
	assert.Equal(t, monitor.ErrorConfiguration, monitor.Classify(err))
}

func TestAutomapDetector(t *testing.T) {
	clock := inputtest.NewFakeClock()
	rec := inputtest.NewRecorder(clock)
	vision := uitest.NewFakeVision(1280, 720)
	m := NewAutomap(rec, input.NewHumanizer(clock, input.Jitter{}, 1), "tab").WithDetector(vision, "MAP_CHECK")

	vision.Show("MAP_CHECK", screen.ScreenPoint{X: 1200, Y: 20})
	require.NoError(t, m.Toggle(context.Background(), true))
	assert.Zero(t, rec.Count("key_down", ""))

	require.NoError(t, m.Toggle(context.Background(), false))
	assert.Equal(t, 1, rec.Count("key_down", "tab"))
}
