package bot

import (
	"sync"
	"time"
)

// State holds the session statistics. The session loop writes it, the
// operator surfaces read snapshots.
type State struct {
	mu sync.RWMutex

	sessionID        string
	startedAt        time.Time
	games            int
	runs             int
	failedRuns       int
	consecutiveFails int
	lastRun          string
	lastResult       string
}

// Stats is a point-in-time copy of State
type Stats struct {
	SessionID        string
	StartedAt        time.Time
	Games            int
	Runs             int
	FailedRuns       int
	ConsecutiveFails int
	LastRun          string
	LastResult       string
}

func (s *State) reset(sessionID string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = sessionID
	s.startedAt = now
	s.games, s.runs, s.failedRuns, s.consecutiveFails = 0, 0, 0, 0
	s.lastRun, s.lastResult = "", ""
}

func (s *State) gameDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games++
}

// runSucceeded records a completed run and clears the failure streak
func (s *State) runSucceeded(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
	s.consecutiveFails = 0
	s.lastRun = name
	s.lastResult = "completed"
}

// runFailed records a failed run and returns the failure streak
func (s *State) runFailed(name, reason string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
	s.failedRuns++
	s.consecutiveFails++
	s.lastRun = name
	s.lastResult = reason
	return s.consecutiveFails
}

// Snapshot returns a copy of the statistics
func (s *State) Snapshot() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		SessionID:        s.sessionID,
		StartedAt:        s.startedAt,
		Games:            s.games,
		Runs:             s.runs,
		FailedRuns:       s.failedRuns,
		ConsecutiveFails: s.consecutiveFails,
		LastRun:          s.lastRun,
		LastResult:       s.lastResult,
	}
}
