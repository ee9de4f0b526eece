package gui

import (
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/botty-go/internal/logging"
)

const filterAll = "All"

// LogEntry is one line of the log view
type LogEntry struct {
	Timestamp time.Time
	Level     logging.LogLevel
	Component string
	Message   string
}

// LogTab shows logger output and session events
type LogTab struct {
	logs    []LogEntry
	logsMu  sync.RWMutex
	maxLogs int

	logList         *widget.List
	filterSelect    *widget.Select
	autoScrollCheck *widget.Check
}

// NewLogTab creates a log view keeping the last maxLogs entries
func NewLogTab(maxLogs int) *LogTab {
	if maxLogs <= 0 {
		maxLogs = 1000
	}
	return &LogTab{logs: make([]LogEntry, 0, maxLogs), maxLogs: maxLogs}
}

// Hook mirrors logger entries into the view
func (l *LogTab) Hook() logging.Hook {
	return func(e *logging.LogEntry) {
		msg := e.Message
		if e.Error != nil {
			msg += ": " + e.Error.Error()
		}
		l.add(LogEntry{Timestamp: e.Timestamp, Level: e.Level, Component: e.Component, Message: msg})
	}
}

// Build constructs the log viewer
func (l *LogTab) Build() fyne.CanvasObject {
	header := widget.NewLabelWithStyle("Event Log", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})

	levels := []string{filterAll}
	for _, lvl := range []logging.LogLevel{logging.LogLevelDebug, logging.LogLevelInfo, logging.LogLevelWarn, logging.LogLevelError} {
		levels = append(levels, string(lvl))
	}
	l.filterSelect = widget.NewSelect(levels, func(string) {
		if l.logList != nil {
			l.logList.Refresh()
		}
	})
	l.filterSelect.SetSelected(filterAll)

	l.autoScrollCheck = widget.NewCheck("Auto-scroll", nil)
	l.autoScrollCheck.SetChecked(true)

	clearBtn := widget.NewButton("Clear", l.ClearLogs)

	l.logList = widget.NewList(
		func() int { return len(l.filtered()) },
		func() fyne.CanvasObject {
			return container.NewHBox(
				widget.NewLabel("15:04:05"),
				widget.NewLabel("[LEVEL]"),
				widget.NewLabel("component"),
				widget.NewLabel("message"),
			)
		},
		func(id widget.ListItemID, item fyne.CanvasObject) {
			entries := l.filtered()
			if id < 0 || id >= len(entries) {
				return
			}
			entry := entries[id]
			box := item.(*fyne.Container)

			box.Objects[0].(*widget.Label).SetText(entry.Timestamp.Format("15:04:05"))

			level := box.Objects[1].(*widget.Label)
			level.Importance = importance(entry.Level)
			level.SetText(fmt.Sprintf("[%s]", entry.Level))

			box.Objects[2].(*widget.Label).SetText(entry.Component)
			box.Objects[3].(*widget.Label).SetText(entry.Message)
		},
	)

	controls := container.NewHBox(widget.NewLabel("Filter:"), l.filterSelect, l.autoScrollCheck, clearBtn)
	return container.NewBorder(container.NewVBox(header, controls), nil, nil, nil, l.logList)
}

func importance(level logging.LogLevel) widget.Importance {
	switch level {
	case logging.LogLevelDebug:
		return widget.LowImportance
	case logging.LogLevelWarn:
		return widget.WarningImportance
	case logging.LogLevelError, logging.LogLevelFatal:
		return widget.DangerImportance
	default:
		return widget.MediumImportance
	}
}

// AddLog appends a message from the GUI itself
func (l *LogTab) AddLog(level logging.LogLevel, component, message string) {
	l.add(LogEntry{Timestamp: time.Now(), Level: level, Component: component, Message: message})
}

func (l *LogTab) add(entry LogEntry) {
	l.logsMu.Lock()
	l.logs = append(l.logs, entry)
	if len(l.logs) > l.maxLogs {
		l.logs = l.logs[len(l.logs)-l.maxLogs:]
	}
	l.logsMu.Unlock()

	if l.logList != nil {
		fyne.Do(func() {
			l.logList.Refresh()
			if l.autoScrollCheck != nil && l.autoScrollCheck.Checked {
				l.logList.ScrollToBottom()
			}
		})
	}
}

// ClearLogs removes all entries
func (l *LogTab) ClearLogs() {
	l.logsMu.Lock()
	l.logs = make([]LogEntry, 0, l.maxLogs)
	l.logsMu.Unlock()

	if l.logList != nil {
		l.logList.Refresh()
	}
}

func (l *LogTab) selectedLevel() string {
	if l.filterSelect == nil || l.filterSelect.Selected == "" {
		return filterAll
	}
	return l.filterSelect.Selected
}

func (l *LogTab) filtered() []LogEntry {
	return filterLogs(l.GetLogs(), l.selectedLevel())
}

func filterLogs(logs []LogEntry, level string) []LogEntry {
	if level == filterAll {
		return logs
	}
	out := logs[:0:0]
	for _, e := range logs {
		if string(e.Level) == level {
			out = append(out, e)
		}
	}
	return out
}

// GetLogs returns a copy of the entries
func (l *LogTab) GetLogs() []LogEntry {
	l.logsMu.RLock()
	defer l.logsMu.RUnlock()
	logs := make([]LogEntry, len(l.logs))
	copy(logs, l.logs)
	return logs
}
