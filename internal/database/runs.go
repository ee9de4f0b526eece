package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session operations

// StartSession records a new session and returns its id
func (db *DB) StartSession(botName, charType string) (string, error) {
	id := uuid.New().String()
	_, err := db.conn.Exec(`
		INSERT INTO sessions (id, bot_name, char_type, started_at)
		VALUES (?, ?, ?, ?)
	`, id, botName, charType, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to insert session: %w", err)
	}
	return id, nil
}

// StopSession closes a session with the reason it stopped
func (db *DB) StopSession(sessionID, reason string, gamesPlayed int) error {
	_, err := db.conn.Exec(`
		UPDATE sessions
		SET stopped_at = ?, stop_reason = ?, games_played = ?
		WHERE id = ?
	`, time.Now(), reason, gamesPlayed, sessionID)
	return err
}

// GetSession retrieves a session by id
func (db *DB) GetSession(sessionID string) (*Session, error) {
	s := &Session{}
	err := db.conn.QueryRow(`
		SELECT id, bot_name, char_type, started_at, stopped_at, stop_reason, games_played
		FROM sessions
		WHERE id = ?
	`, sessionID).Scan(
		&s.ID, &s.BotName, &s.CharType, &s.StartedAt,
		&s.StoppedAt, &s.StopReason, &s.GamesPlayed,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Run operations

// StartRun records the start of a run. An empty runID gets a fresh uuid.
func (db *DB) StartRun(runID, sessionID string, gameIndex int, name string) (string, error) {
	if runID == "" {
		runID = uuid.New().String()
	}
	_, err := db.conn.Exec(`
		INSERT INTO runs (id, session_id, game_index, name, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, runID, sessionID, gameIndex, name, RunStatusRunning, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return runID, nil
}

// CompleteRun marks a run as completed
func (db *DB) CompleteRun(runID string) error {
	return db.finishRun(runID, RunStatusCompleted, nil)
}

// FailRun marks a run as failed with a reason
func (db *DB) FailRun(runID, reason string) error {
	return db.finishRun(runID, RunStatusFailed, &reason)
}

func (db *DB) finishRun(runID, status string, errorMessage *string) error {
	return db.ExecTx(func(tx *sql.Tx) error {
		completedAt := time.Now()

		var startedAt time.Time
		err := tx.QueryRow(`SELECT started_at FROM runs WHERE id = ?`, runID).Scan(&startedAt)
		if err != nil {
			return fmt.Errorf("failed to get run start time: %w", err)
		}

		_, err = tx.Exec(`
			UPDATE runs
			SET completed_at = ?,
				duration_ms = ?,
				status = ?,
				error_message = ?
			WHERE id = ?
		`, completedAt, completedAt.Sub(startedAt).Milliseconds(), status, errorMessage, runID)
		return err
	})
}

// GetRun retrieves a run by id
func (db *DB) GetRun(runID string) (*Run, error) {
	r := &Run{}
	err := db.conn.QueryRow(`
		SELECT id, session_id, game_index, name, status, started_at,
			completed_at, duration_ms, error_message
		FROM runs
		WHERE id = ?
	`, runID).Scan(
		&r.ID, &r.SessionID, &r.GameIndex, &r.Name, &r.Status, &r.StartedAt,
		&r.CompletedAt, &r.DurationMs, &r.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetRunsForSession lists the runs of a session in start order
func (db *DB) GetRunsForSession(sessionID string) ([]*Run, error) {
	rows, err := db.conn.Query(`
		SELECT id, session_id, game_index, name, status, started_at,
			completed_at, duration_ms, error_message
		FROM runs
		WHERE session_id = ?
		ORDER BY started_at, rowid
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		r := &Run{}
		if err := rows.Scan(
			&r.ID, &r.SessionID, &r.GameIndex, &r.Name, &r.Status, &r.StartedAt,
			&r.CompletedAt, &r.DurationMs, &r.ErrorMessage,
		); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunStats returns per-route aggregates, optionally limited to one session
func (db *DB) RunStats(sessionID string) ([]RunStats, error) {
	query := `
		SELECT
			name,
			COUNT(*) as total,
			SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END) as completed,
			SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END) as failed,
			COALESCE(AVG(duration_ms), 0) as avg_duration
		FROM runs
	`
	args := []interface{}{}
	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}
	query += " GROUP BY name ORDER BY name"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []RunStats{}
	for rows.Next() {
		var s RunStats
		if err := rows.Scan(&s.Name, &s.Total, &s.Completed, &s.Failed, &s.AvgDurationMs); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Traversal operations

// RecordTraversal stores the outcome of one node traversal
func (db *DB) RecordTraversal(t Traversal) (int64, error) {
	if t.RecordedAt.IsZero() {
		t.RecordedAt = time.Now()
	}
	result, err := db.conn.Exec(`
		INSERT INTO traversals (
			run_id, node_id, attempts, reached, final_distance, duration_ms, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.RunID, t.NodeID, t.Attempts, t.Reached, t.FinalDistance, t.DurationMs, t.RecordedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert traversal: %w", err)
	}
	return result.LastInsertId()
}

// GetTraversalsForRun lists the node traversals of a run in order
func (db *DB) GetTraversalsForRun(runID string) ([]*Traversal, error) {
	rows, err := db.conn.Query(`
		SELECT id, run_id, node_id, attempts, reached, final_distance, duration_ms, recorded_at
		FROM traversals
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*Traversal{}
	for rows.Next() {
		t := &Traversal{}
		if err := rows.Scan(
			&t.ID, &t.RunID, &t.NodeID, &t.Attempts, &t.Reached,
			&t.FinalDistance, &t.DurationMs, &t.RecordedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// NodeStats returns per-node reach rates across all runs
func (db *DB) NodeStats() ([]NodeStats, error) {
	rows, err := db.conn.Query(`
		SELECT
			node_id,
			COUNT(*),
			SUM(CASE WHEN reached THEN 1 ELSE 0 END),
			AVG(attempts)
		FROM traversals
		GROUP BY node_id
		ORDER BY node_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []NodeStats{}
	for rows.Next() {
		var s NodeStats
		if err := rows.Scan(&s.NodeID, &s.Traversals, &s.Reached, &s.AvgAttempts); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
