package events

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewEventBus(16, nil)

	all := &recorder{}
	runs := &recorder{}
	bus.Subscribe(EventTypeAll, all.handle)
	bus.Subscribe(EventTypeRunStarted, runs.handle)

	bus.Publish(NewSessionStartedEvent("s1", []string{"run_cs"}))
	bus.Publish(NewRunStartedEvent("r1", "run_cs"))
	bus.Publish(NewRunCompletedEvent("r1", "run_cs", time.Second))
	bus.Stop()

	assert.Equal(t, []EventType{EventTypeSessionStarted, EventTypeRunStarted, EventTypeRunCompleted}, all.types())
	assert.Equal(t, []EventType{EventTypeRunStarted}, runs.types())
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewEventBus(4, nil)
	rec := &recorder{}
	id := bus.Subscribe(EventTypeCast, rec.handle)
	assert.Equal(t, 1, bus.GetSubscriberCount(EventTypeCast))

	bus.Unsubscribe(id)
	assert.Equal(t, 0, bus.GetSubscriberCount(EventTypeCast))

	bus.Publish(NewCastEvent("blessed_hammer", 3, time.Second))
	bus.Stop()
	assert.Empty(t, rec.types())
}

func TestBusSurvivesPanickingHandler(t *testing.T) {
	bus := NewEventBus(4, nil)
	rec := &recorder{}
	bus.Subscribe(EventTypeNodeFailed, func(Event) { panic("boom") })
	bus.Subscribe(EventTypeNodeFailed, rec.handle)

	bus.Publish(NewNodeEvent(false, 3, 2, 80))
	bus.Stop()
	bus.Stop()

	require.Len(t, rec.types(), 1)
	bus.Publish(NewNodeEvent(true, 4, 1, 10)) // dropped after stop
}

func TestEventLogger(t *testing.T) {
	dir := t.TempDir()
	bus := NewEventBus(4, nil)

	el, err := NewEventLogger(bus, dir)
	require.NoError(t, err)

	bus.Publish(NewRunFailedEvent("r9", "pindle", "node 3 unreachable"))
	bus.Stop()
	require.NoError(t, el.Close())

	files, err := filepath.Glob(filepath.Join(dir, "events_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	line := string(data)
	assert.True(t, strings.Contains(line, "Event: run.failed"), line)
	assert.Contains(t, line, "reason=node 3 unreachable")
}
