package bot

import (
	"sync"

	"jordanella.com/botty-go/internal/database"
	"jordanella.com/botty-go/internal/logging"
	"jordanella.com/botty-go/internal/pather"
)

// history writes sessions, runs, traversals and errors to the database. All
// methods are no-ops without one; a failed write is logged and never ends
// a run.
type history struct {
	db     *database.DB
	logger *logging.Logger

	mu        sync.Mutex
	sessionID string
	runID     string
}

func (h *history) startSession(botName, charType string) string {
	if h.db == nil {
		return ""
	}
	id, err := h.db.StartSession(botName, charType)
	if err != nil {
		h.logger.Error("Failed to record session start", err)
		return ""
	}
	h.mu.Lock()
	h.sessionID = id
	h.mu.Unlock()
	return id
}

func (h *history) stopSession(reason string, games int) {
	h.mu.Lock()
	id := h.sessionID
	h.mu.Unlock()
	if h.db == nil || id == "" {
		return
	}
	if err := h.db.StopSession(id, reason, games); err != nil {
		h.logger.Error("Failed to record session stop", err)
	}
}

func (h *history) startRun(runID string, game int, name string) {
	h.mu.Lock()
	h.runID = runID
	sessionID := h.sessionID
	h.mu.Unlock()
	if h.db == nil || sessionID == "" {
		return
	}
	if _, err := h.db.StartRun(runID, sessionID, game, name); err != nil {
		h.logger.Error("Failed to record run start", err)
	}
}

func (h *history) finishRun(runID string, reason string) {
	if h.db == nil {
		return
	}
	var err error
	if reason == "" {
		err = h.db.CompleteRun(runID)
	} else {
		err = h.db.FailRun(runID, reason)
	}
	if err != nil {
		h.logger.Warnf("Failed to record end of run %s: %v", runID, err)
	}
	h.mu.Lock()
	h.runID = ""
	h.mu.Unlock()
}

// traversal is the pather observer
func (h *history) traversal(r pather.NodeResult) {
	h.mu.Lock()
	runID := h.runID
	h.mu.Unlock()
	if h.db == nil || runID == "" {
		return
	}

	t := database.Traversal{
		RunID:      runID,
		NodeID:     r.NodeID,
		Attempts:   r.Attempts,
		Reached:    r.Reached,
		DurationMs: r.Duration.Milliseconds(),
	}
	if r.Distance >= 0 {
		d := r.Distance
		t.FinalDistance = &d
	}
	if _, err := h.db.RecordTraversal(t); err != nil {
		h.logger.Warnf("Failed to record traversal of node %d: %v", r.NodeID, err)
	}
}

func (h *history) logError(err error) {
	if h.db == nil || err == nil {
		return
	}
	h.mu.Lock()
	sessionID, runID := h.sessionID, h.runID
	h.mu.Unlock()
	if _, dbErr := h.db.LogError(sessionID, runID, err); dbErr != nil {
		h.logger.Warnf("Failed to record error: %v", dbErr)
	}
}
