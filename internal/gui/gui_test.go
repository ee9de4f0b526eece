package gui

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jordanella.com/botty-go/internal/database"
	"jordanella.com/botty-go/internal/events"
	"jordanella.com/botty-go/internal/logging"
)

func TestLogTabHookAndFilter(t *testing.T) {
	tab := NewLogTab(3)
	logger := logging.Discard().SetMinLevel(logging.LogLevelDebug).AddHook(tab.Hook())

	logger.Debug("one")
	logger.Info("two")
	logger.Warn("three")
	logger.Error("four", errors.New("boom"))

	logs := tab.GetLogs()
	require.Len(t, logs, 3, "oldest entry trimmed")
	assert.Equal(t, "two", logs[0].Message)
	assert.Equal(t, "four: boom", logs[2].Message)

	warn := filterLogs(logs, string(logging.LogLevelWarn))
	require.Len(t, warn, 1)
	assert.Equal(t, "three", warn[0].Message)
	assert.Len(t, filterLogs(logs, filterAll), 3)
	assert.Len(t, tab.filtered(), 3, "no selection shows everything")

	tab.ClearLogs()
	assert.Empty(t, tab.GetLogs())
}

func TestUIBusDispatch(t *testing.T) {
	b := newUIBus(2)
	var typed, all []events.EventType
	b.on(events.EventTypeRunFailed, func(e events.Event) { typed = append(typed, e.Type) })
	b.on(events.EventTypeAll, func(e events.Event) { all = append(all, e.Type) })

	b.enqueue(events.NewRunStartedEvent("r1", "pit"))
	b.enqueue(events.NewRunFailedEvent("r1", "pit", "stuck"))
	b.enqueue(events.NewRunCompletedEvent("r2", "pit", time.Second))

	batch := b.drain()
	require.Len(t, batch, 2, "full queue drops")
	assert.Equal(t, 1, b.dropped)
	for _, e := range batch {
		b.dispatch(e)
	}
	assert.Equal(t, []events.EventType{events.EventTypeRunFailed}, typed)
	assert.Equal(t, []events.EventType{events.EventTypeRunStarted, events.EventTypeRunFailed}, all)
	assert.Empty(t, b.drain())
}

func TestDescribeEvent(t *testing.T) {
	assert.Equal(t, "Run pit failed: stuck", describeEvent(events.NewRunFailedEvent("r", "pit", "stuck")))
	assert.Equal(t, "Run pit completed in 2.5s", describeEvent(events.NewRunCompletedEvent("r", "pit", 2500*time.Millisecond)))
	assert.Equal(t, "Reached node 1602 after 2 attempts", describeEvent(events.NewNodeEvent(true, 1602, 2, 10)))
	assert.Equal(t, "Session completed after 3 games", describeEvent(events.NewSessionStoppedEvent("s", "completed", 3)))
}

func TestFormatRunStats(t *testing.T) {
	assert.Equal(t, "No runs yet", formatRunStats(nil))
	out := formatRunStats([]database.RunStats{{Name: "pit", Total: 4, Completed: 3, Failed: 1, AvgDurationMs: 1500}})
	assert.Contains(t, out, "pit")
	assert.Contains(t, out, "75.0% ok")
	assert.Contains(t, out, "avg 1.5s")
}
