package database

import (
	"fmt"
	"time"

	"jordanella.com/botty-go/internal/monitor"
)

// Error logging operations

// LogError stores err with its classification. Empty ids are stored as NULL.
func (db *DB) LogError(sessionID, runID string, err error) (int64, error) {
	t := monitor.Classify(err)
	result, execErr := db.conn.Exec(`
		INSERT INTO error_log (
			session_id, run_id, error_type, error_severity, error_action,
			error_message, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, nullable(sessionID), nullable(runID), t.String(), severityName(monitor.SeverityOf(t)),
		monitor.ActionFor(err).String(), err.Error(), time.Now())
	if execErr != nil {
		return 0, fmt.Errorf("failed to insert error log: %w", execErr)
	}
	return result.LastInsertId()
}

// GetRecentErrors returns the most recent errors, newest first
func (db *DB) GetRecentErrors(limit int) ([]*ErrorLog, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := db.conn.Query(`
		SELECT id, session_id, run_id, error_type, error_severity, error_action,
			error_message, occurred_at
		FROM error_log
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	errors := []*ErrorLog{}
	for rows.Next() {
		e := &ErrorLog{}
		if err := rows.Scan(
			&e.ID, &e.SessionID, &e.RunID, &e.ErrorType, &e.ErrorSeverity,
			&e.ErrorAction, &e.ErrorMessage, &e.OccurredAt,
		); err != nil {
			return nil, err
		}
		errors = append(errors, e)
	}
	return errors, rows.Err()
}

// GetErrorStatsByType returns error counts grouped by type
func (db *DB) GetErrorStatsByType(sessionID string) (map[string]int, error) {
	query := `SELECT error_type, COUNT(*) FROM error_log`
	args := []interface{}{}
	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}
	query += " GROUP BY error_type"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var errorType string
		var count int
		if err := rows.Scan(&errorType, &count); err != nil {
			return nil, err
		}
		stats[errorType] = count
	}
	return stats, rows.Err()
}

// DeleteOldErrors deletes error logs older than the specified date
func (db *DB) DeleteOldErrors(olderThan time.Time) (int64, error) {
	result, err := db.conn.Exec(`DELETE FROM error_log WHERE occurred_at < ?`, olderThan)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func severityName(s monitor.ErrorSeverity) string {
	switch s {
	case monitor.SeverityCritical:
		return "critical"
	case monitor.SeverityHigh:
		return "high"
	case monitor.SeverityMedium:
		return "medium"
	default:
		return "low"
	}
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
