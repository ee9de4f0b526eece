package database

import (
	"time"
)

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Session is one bot session from start to stop
type Session struct {
	ID          string     `db:"id"`
	BotName     string     `db:"bot_name"`
	CharType    string     `db:"char_type"`
	StartedAt   time.Time  `db:"started_at"`
	StoppedAt   *time.Time `db:"stopped_at"`
	StopReason  *string    `db:"stop_reason"`
	GamesPlayed int        `db:"games_played"`
}

// Run is one execution of a named route inside a game
type Run struct {
	ID           string     `db:"id"`
	SessionID    string     `db:"session_id"`
	GameIndex    int        `db:"game_index"`
	Name         string     `db:"name"`
	Status       string     `db:"status"`
	StartedAt    time.Time  `db:"started_at"`
	CompletedAt  *time.Time `db:"completed_at"`
	DurationMs   *int64     `db:"duration_ms"`
	ErrorMessage *string    `db:"error_message"`
}

// Traversal records the outcome of one node of a route
type Traversal struct {
	ID            int64     `db:"id"`
	RunID         string    `db:"run_id"`
	NodeID        int       `db:"node_id"`
	Attempts      int       `db:"attempts"`
	Reached       bool      `db:"reached"`
	FinalDistance *float64  `db:"final_distance"`
	DurationMs    int64     `db:"duration_ms"`
	RecordedAt    time.Time `db:"recorded_at"`
}

// ErrorLog is an error seen by a session
type ErrorLog struct {
	ID            int64     `db:"id"`
	SessionID     *string   `db:"session_id"`
	RunID         *string   `db:"run_id"`
	ErrorType     string    `db:"error_type"`
	ErrorSeverity string    `db:"error_severity"`
	ErrorAction   string    `db:"error_action"`
	ErrorMessage  string    `db:"error_message"`
	OccurredAt    time.Time `db:"occurred_at"`
}

// RunStats aggregates the runs of one route name
type RunStats struct {
	Name          string
	Total         int
	Completed     int
	Failed        int
	AvgDurationMs float64
}

// SuccessRate returns the completed share in percent
func (s RunStats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total) * 100
}

// NodeStats aggregates traversals of one node
type NodeStats struct {
	NodeID      int
	Traversals  int
	Reached     int
	AvgAttempts float64
}
