// Package gui is the Fyne operator window: start, pause and stop the
// session, follow its log and browse the run history.
package gui

import (
	"context"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"

	"jordanella.com/botty-go/internal/bot"
	"jordanella.com/botty-go/internal/database"
	"jordanella.com/botty-go/internal/events"
	"jordanella.com/botty-go/internal/logging"
)

// Deps are what the window drives and displays. DB may be nil.
type Deps struct {
	Session *bot.Session
	Bus     events.EventBus
	DB      *database.DB
	Logger  *logging.Logger
}

// Controller owns the window tabs and the bridge from session events to
// the main thread
type Controller struct {
	app    fyne.App
	window fyne.Window
	deps   Deps

	ui      *uiBus
	subID   events.SubscriptionID
	cancel  context.CancelFunc
	logTab  *LogTab
	control *ControlTab
	history *HistoryTab
}

// NewController wires the tabs to the session, the logger and the bus
func NewController(app fyne.App, window fyne.Window, deps Deps) *Controller {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		app:     app,
		window:  window,
		deps:    deps,
		ui:      newUIBus(256),
		cancel:  cancel,
		logTab:  NewLogTab(1000),
		history: NewHistoryTab(deps.DB),
	}
	c.control = NewControlTab(ctx, deps.Session, window, deps.Logger.Named("gui"))

	deps.Logger.AddHook(c.logTab.Hook())
	if deps.Bus != nil {
		c.subID = deps.Bus.Subscribe(events.EventTypeAll, c.ui.enqueue)
	}
	c.setupEventHandlers()
	c.ui.start()
	return c
}

func (c *Controller) setupEventHandlers() {
	// Cast events are too frequent for the log view
	for _, t := range []events.EventType{
		events.EventTypeSessionStarted, events.EventTypeSessionStopped,
		events.EventTypeRunStarted, events.EventTypeRunCompleted, events.EventTypeRunFailed,
		events.EventTypeNodeFailed,
	} {
		c.ui.on(t, func(e events.Event) {
			level := logging.LogLevelInfo
			if e.Type == events.EventTypeRunFailed || e.Type == events.EventTypeNodeFailed {
				level = logging.LogLevelWarn
			}
			c.logTab.AddLog(level, e.Source, describeEvent(e))
		})
	}
	c.ui.on(events.EventTypeAll, func(events.Event) { c.control.refresh() })
	for _, t := range []events.EventType{events.EventTypeRunCompleted, events.EventTypeRunFailed, events.EventTypeSessionStopped} {
		c.ui.on(t, func(events.Event) { c.history.refresh() })
	}
}

// BuildUI lays out the tabs
func (c *Controller) BuildUI() fyne.CanvasObject {
	return container.NewAppTabs(
		container.NewTabItem("Controls", c.control.Build()),
		container.NewTabItem("Event Log", c.logTab.Build()),
		container.NewTabItem("History", c.history.Build()),
	)
}

// Shutdown stops a running session and waits for it
func (c *Controller) Shutdown() {
	c.deps.Session.Stop()
	c.cancel()
	c.control.Wait()
	if c.deps.Bus != nil {
		c.deps.Bus.Unsubscribe(c.subID)
	}
	c.ui.stop()
}
