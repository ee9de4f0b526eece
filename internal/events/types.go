package events

import "time"

// EventType represents different types of events in the system
type EventType string

const (
	// EventTypeAll subscribes to every event
	EventTypeAll EventType = "*"

	// Session events
	EventTypeSessionStarted EventType = "session.started"
	EventTypeSessionStopped EventType = "session.stopped"

	// Run events
	EventTypeRunStarted   EventType = "run.started"
	EventTypeRunCompleted EventType = "run.completed"
	EventTypeRunFailed    EventType = "run.failed"

	// Traversal events
	EventTypeNodeReached EventType = "node.reached"
	EventTypeNodeFailed  EventType = "node.failed"

	// Character events
	EventTypeCast EventType = "cast"
)

// Event represents a system event with metadata
type Event struct {
	Type      EventType
	Source    string // component that emitted the event, e.g. "session", "pather"
	Timestamp time.Time
	Data      map[string]interface{}
}

// EventHandler is a function that processes an event
type EventHandler func(Event)

// SubscriptionID uniquely identifies a subscription
type SubscriptionID int64

// EventBus defines the interface for event pub/sub
type EventBus interface {
	Subscribe(eventType EventType, handler EventHandler) SubscriptionID
	Unsubscribe(id SubscriptionID)
	Publish(event Event)
	PublishAsync(event Event)
	Stop()
}

// Publisher is the subset of EventBus producers need
type Publisher interface {
	Publish(event Event)
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}

// NewSessionStartedEvent creates a session started event
func NewSessionStartedEvent(sessionID string, runs []string) Event {
	return Event{
		Type:      EventTypeSessionStarted,
		Source:    "session",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"session_id": sessionID,
			"runs":       runs,
		},
	}
}

// NewSessionStoppedEvent creates a session stopped event
func NewSessionStoppedEvent(sessionID, reason string, games int) Event {
	return Event{
		Type:      EventTypeSessionStopped,
		Source:    "session",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"session_id": sessionID,
			"reason":     reason,
			"games":      games,
		},
	}
}

// NewRunStartedEvent creates a run started event
func NewRunStartedEvent(runID, name string) Event {
	return Event{
		Type:      EventTypeRunStarted,
		Source:    "session",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"run_id": runID,
			"run":    name,
		},
	}
}

// NewRunCompletedEvent creates a run completed event
func NewRunCompletedEvent(runID, name string, duration time.Duration) Event {
	return Event{
		Type:      EventTypeRunCompleted,
		Source:    "session",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"run_id":   runID,
			"run":      name,
			"duration": duration.Seconds(),
		},
	}
}

// NewRunFailedEvent creates a run failed event
func NewRunFailedEvent(runID, name, reason string) Event {
	return Event{
		Type:      EventTypeRunFailed,
		Source:    "session",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"run_id": runID,
			"run":    name,
			"reason": reason,
		},
	}
}

// NewNodeEvent creates a node reached or failed event
func NewNodeEvent(reached bool, nodeID, attempts int, distance float64) Event {
	t := EventTypeNodeReached
	if !reached {
		t = EventTypeNodeFailed
	}
	return Event{
		Type:      t,
		Source:    "pather",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"node":     nodeID,
			"attempts": attempts,
			"distance": distance,
		},
	}
}

// NewCastEvent creates a skill cast event
func NewCastEvent(skill string, clicks int, duration time.Duration) Event {
	return Event{
		Type:      EventTypeCast,
		Source:    "char",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"skill":    skill,
			"clicks":   clicks,
			"duration": duration.Seconds(),
		},
	}
}
