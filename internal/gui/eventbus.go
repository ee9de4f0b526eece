package gui

import (
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"

	"jordanella.com/botty-go/internal/events"
)

// uiBus moves session events onto the Fyne main thread. The domain bus
// calls enqueue from its dispatcher goroutine; a ticker drains the queue and
// hands each batch to fyne.Do.
type uiBus struct {
	events   chan events.Event
	handlers map[events.EventType][]func(events.Event)
	mu       sync.RWMutex
	stopCh   chan struct{}
	stopOnce sync.Once
	dropped  int
}

func newUIBus(size int) *uiBus {
	return &uiBus{
		events:   make(chan events.Event, size),
		handlers: make(map[events.EventType][]func(events.Event)),
		stopCh:   make(chan struct{}),
	}
}

// on registers a handler for an event type, or for every event with
// events.EventTypeAll
func (b *uiBus) on(t events.EventType, handler func(events.Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], handler)
}

// enqueue never blocks the session: a full queue drops the event
func (b *uiBus) enqueue(e events.Event) {
	select {
	case b.events <- e:
	case <-b.stopCh:
	default:
		b.mu.Lock()
		b.dropped++
		b.mu.Unlock()
	}
}

// start drains the queue every tick on the main thread. It must be called
// once the window exists.
func (b *uiBus) start() {
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				batch := b.drain()
				if len(batch) > 0 {
					fyne.Do(func() {
						for _, e := range batch {
							b.dispatch(e)
						}
					})
				}
			case <-b.stopCh:
				return
			}
		}
	}()
}

func (b *uiBus) stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}

func (b *uiBus) drain() []events.Event {
	var batch []events.Event
	for {
		select {
		case e := <-b.events:
			batch = append(batch, e)
		default:
			return batch
		}
	}
}

func (b *uiBus) dispatch(e events.Event) {
	b.mu.RLock()
	handlers := append([]func(events.Event){}, b.handlers[e.Type]...)
	handlers = append(handlers, b.handlers[events.EventTypeAll]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

// describeEvent renders an event as one log line
func describeEvent(e events.Event) string {
	d := e.Data
	switch e.Type {
	case events.EventTypeSessionStarted:
		return fmt.Sprintf("Session started with runs %v", d["runs"])
	case events.EventTypeSessionStopped:
		return fmt.Sprintf("Session %v after %v games", d["reason"], d["games"])
	case events.EventTypeRunStarted:
		return fmt.Sprintf("Run %v started", d["run"])
	case events.EventTypeRunCompleted:
		return fmt.Sprintf("Run %v completed in %.1fs", d["run"], d["duration"])
	case events.EventTypeRunFailed:
		return fmt.Sprintf("Run %v failed: %v", d["run"], d["reason"])
	case events.EventTypeNodeReached:
		return fmt.Sprintf("Reached node %v after %v attempts", d["node"], d["attempts"])
	case events.EventTypeNodeFailed:
		return fmt.Sprintf("Missed node %v after %v attempts", d["node"], d["attempts"])
	case events.EventTypeCast:
		return fmt.Sprintf("Cast %v, %v clicks", d["skill"], d["clicks"])
	default:
		return string(e.Type)
	}
}
