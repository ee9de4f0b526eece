package monitor

import (
	"context"
	"errors"
	"fmt"
)

// ErrorType represents the category of a failure seen by the bot
type ErrorType int

const (
	ErrorNone          ErrorType = iota
	ErrorNotFound                // Landmark not matched above threshold
	ErrorTimeout                 // Traversal or wait exceeded its wall-clock budget
	ErrorConfiguration           // Missing or invalid setting, oversized template
	ErrorDevice                  // Capture or input adapter failure
	ErrorCancelled               // Session stopped through its context
	ErrorUnknown
)

func (t ErrorType) String() string {
	switch t {
	case ErrorNone:
		return "none"
	case ErrorNotFound:
		return "not_found"
	case ErrorTimeout:
		return "timeout"
	case ErrorConfiguration:
		return "configuration"
	case ErrorDevice:
		return "device"
	case ErrorCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ErrorSeverity determines how the error should be handled
type ErrorSeverity int

const (
	SeverityCritical ErrorSeverity = iota // Stop bot immediately
	SeverityHigh                          // Abort the current run
	SeverityMedium                        // Retry locally
	SeverityLow                           // Log only
)

// ErrorAction tells the session what to do after an error
type ErrorAction int

const (
	ActionContinue ErrorAction = iota // Continue with the next step
	ActionRetry                       // Retry the current step or route
	ActionAbort                       // Abort the current run
	ActionStop                        // Stop the session entirely
)

func (a ErrorAction) String() string {
	switch a {
	case ActionContinue:
		return "continue"
	case ActionRetry:
		return "retry"
	case ActionAbort:
		return "abort"
	case ActionStop:
		return "stop"
	default:
		return "unknown"
	}
}

var (
	// ErrNotFound is returned by lookups that are required to succeed; the
	// matcher itself reports absence with ok == false instead.
	ErrNotFound = errors.New("landmark not found")
	// ErrTimeout marks a wall-clock budget that ran out.
	ErrTimeout = errors.New("timed out")
	// ErrCancelled is returned when the session context is cancelled.
	ErrCancelled = errors.New("cancelled")
)

// ConfigError reports a missing or invalid setting. It is fatal at startup.
type ConfigError struct {
	Section string
	Key     string
	Reason  string
	Cause   error
}

func (e *ConfigError) Error() string {
	msg := "configuration error"
	if e.Section != "" {
		msg += fmt.Sprintf(" [%s]", e.Section)
	}
	if e.Key != "" {
		msg += fmt.Sprintf(" %s", e.Key)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// NewConfigError builds a ConfigError for a section/key pair
func NewConfigError(section, key, reason string) *ConfigError {
	return &ConfigError{Section: section, Key: key, Reason: reason}
}

// DeviceError reports a capture or input failure. It is never retried by the
// core since acting after a failed input may desync from the game.
type DeviceError struct {
	Device string // "capture", "mouse", "keyboard"
	Op     string
	Cause  error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Device, e.Op, e.Cause)
}

func (e *DeviceError) Unwrap() error { return e.Cause }

// NewDeviceError wraps cause as a DeviceError
func NewDeviceError(device, op string, cause error) *DeviceError {
	return &DeviceError{Device: device, Op: op, Cause: cause}
}

// Classify maps an error onto the ErrorType taxonomy
func Classify(err error) ErrorType {
	if err == nil {
		return ErrorNone
	}

	var cfgErr *ConfigError
	var devErr *DeviceError
	switch {
	case errors.As(err, &cfgErr):
		return ErrorConfiguration
	case errors.As(err, &devErr):
		return ErrorDevice
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return ErrorCancelled
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrorTimeout
	case errors.Is(err, ErrNotFound):
		return ErrorNotFound
	default:
		return ErrorUnknown
	}
}

// SeverityOf returns the handling severity for an error type
func SeverityOf(t ErrorType) ErrorSeverity {
	switch t {
	case ErrorConfiguration, ErrorDevice:
		return SeverityCritical
	case ErrorCancelled, ErrorUnknown:
		return SeverityHigh
	case ErrorTimeout, ErrorNotFound:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// ActionFor decides what the session does with err. Matching and traversal
// misses are recovered locally; configuration and device failures surface
// to the operator.
func ActionFor(err error) ErrorAction {
	t := Classify(err)
	switch SeverityOf(t) {
	case SeverityCritical:
		return ActionStop
	case SeverityHigh:
		if t == ErrorCancelled {
			return ActionStop
		}
		return ActionAbort
	case SeverityMedium:
		return ActionRetry
	default:
		return ActionContinue
	}
}
