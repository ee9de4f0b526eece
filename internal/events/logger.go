package events

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"jordanella.com/botty-go/internal/logging"
)

// EventLogger subscribes to the bus and writes every event to a log file
type EventLogger struct {
	logger         *logging.Logger
	bus            EventBus
	subscriptionID SubscriptionID
	logFile        *os.File
}

// NewEventLogger creates log/events_<timestamp>.log under logDir
func NewEventLogger(bus EventBus, logDir string) (*EventLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(logDir, fmt.Sprintf("events_%s.log", timestamp))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	el := &EventLogger{
		logger:  logging.NewLogger("EventLogger").SetOutput(logFile).SetMinLevel(logging.LogLevelDebug),
		bus:     bus,
		logFile: logFile,
	}
	el.subscriptionID = bus.Subscribe(EventTypeAll, el.handleEvent)
	return el, nil
}

func (el *EventLogger) handleEvent(event Event) {
	context := map[string]interface{}{
		"source": event.Source,
	}
	for k, v := range event.Data {
		context[k] = v
	}
	el.logger.InfoWithContext(fmt.Sprintf("Event: %s", event.Type), context)
}

// Close unsubscribes and closes the log file
func (el *EventLogger) Close() error {
	el.bus.Unsubscribe(el.subscriptionID)
	if el.logFile != nil {
		return el.logFile.Close()
	}
	return nil
}
