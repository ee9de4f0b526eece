package gui

import (
	"context"
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/botty-go/internal/bot"
	"jordanella.com/botty-go/internal/char"
	"jordanella.com/botty-go/internal/input"
	"jordanella.com/botty-go/internal/logging"
)

// ControlTab starts, pauses and stops the session and shows its statistics
type ControlTab struct {
	session *bot.Session
	window  fyne.Window
	logger  *logging.Logger

	mu     sync.Mutex
	parent context.Context
	done   chan struct{}

	startBtn    *widget.Button
	pauseBtn    *widget.Button
	resumeBtn   *widget.Button
	stopBtn     *widget.Button
	statusLabel *widget.Label
	gamesLabel  *widget.Label
	runsLabel   *widget.Label
	lastLabel   *widget.Label
	uptimeLabel *widget.Label
}

// NewControlTab creates the control panel. Sessions started from it run
// under parent.
func NewControlTab(parent context.Context, session *bot.Session, window fyne.Window, logger *logging.Logger) *ControlTab {
	return &ControlTab{session: session, window: window, logger: logger, parent: parent}
}

// Build constructs the control panel
func (c *ControlTab) Build() fyne.CanvasObject {
	header := widget.NewLabelWithStyle("Bot Controls", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})

	c.statusLabel = widget.NewLabel(bot.StateIdle.String())
	c.statusLabel.TextStyle = fyne.TextStyle{Bold: true}
	c.gamesLabel = widget.NewLabel("0")
	c.runsLabel = widget.NewLabel("0 / 0")
	c.lastLabel = widget.NewLabel("-")
	c.uptimeLabel = widget.NewLabel("00:00:00")

	c.startBtn = widget.NewButton("Start", c.start)
	c.pauseBtn = widget.NewButton("Pause", func() {
		if c.session.Controller().Pause() {
			c.logger.Info("Pausing after the current run")
		}
		c.refresh()
	})
	c.resumeBtn = widget.NewButton("Resume", func() {
		c.session.Controller().Resume()
		c.refresh()
	})
	c.stopBtn = widget.NewButton("Stop", func() {
		if c.session.Stop() {
			c.logger.Info("Stop requested")
		}
	})

	stats := widget.NewForm(
		widget.NewFormItem("Status", c.statusLabel),
		widget.NewFormItem("Games", c.gamesLabel),
		widget.NewFormItem("Runs (failed / total)", c.runsLabel),
		widget.NewFormItem("Last run", c.lastLabel),
		widget.NewFormItem("Uptime", c.uptimeLabel),
	)

	c.refresh()
	return container.NewVBox(
		header,
		container.NewHBox(c.startBtn, c.pauseBtn, c.resumeBtn, c.stopBtn),
		widget.NewSeparator(),
		stats,
	)
}

func (c *ControlTab) start() {
	c.mu.Lock()
	if c.done != nil {
		c.mu.Unlock()
		return
	}
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	go func() {
		err := c.session.Run(c.parent)

		c.mu.Lock()
		c.done = nil
		c.mu.Unlock()
		close(done)

		fyne.Do(func() {
			c.refresh()
			if err != nil && c.window != nil {
				dialog.ShowError(fmt.Errorf("session ended: %w", err), c.window)
			}
		})
	}()
	c.refresh()
}

// Wait blocks until a session started from the panel has returned
func (c *ControlTab) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// refresh updates buttons and statistics. It runs on the main thread.
func (c *ControlTab) refresh() {
	if c.statusLabel == nil {
		return
	}
	state := c.session.Controller().State()
	stats := c.session.Stats()

	c.statusLabel.SetText(state.String())
	c.gamesLabel.SetText(fmt.Sprint(stats.Games))
	c.runsLabel.SetText(fmt.Sprintf("%d / %d", stats.FailedRuns, stats.Runs))
	if stats.LastRun != "" {
		c.lastLabel.SetText(fmt.Sprintf("%s (%s)", stats.LastRun, stats.LastResult))
	}
	if state == bot.StateRunning || state == bot.StatePaused {
		c.uptimeLabel.SetText(char.HMS(input.Since(input.RealClock{}, stats.StartedAt)))
	}

	setEnabled(c.startBtn, !c.session.Controller().IsRunning())
	setEnabled(c.pauseBtn, state == bot.StateRunning)
	setEnabled(c.resumeBtn, state == bot.StatePaused)
	setEnabled(c.stopBtn, c.session.Controller().IsRunning())
}

func setEnabled(b *widget.Button, on bool) {
	if on {
		b.Enable()
	} else {
		b.Disable()
	}
}
