package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database schema migration
type Migration struct {
	Version     int
	Description string
	Up          func(*sql.Tx) error
	Down        func(*sql.Tx) error
}

// migrations is the ordered list of all database migrations
var migrations = []Migration{
	{
		Version:     1,
		Description: "Create schema_version table",
		Up:          migration001Up,
		Down:        migration001Down,
	},
	{
		Version:     2,
		Description: "Create sessions and runs tables",
		Up:          migration002Up,
		Down:        migration002Down,
	},
	{
		Version:     3,
		Description: "Create traversals table",
		Up:          migration003Up,
		Down:        migration003Down,
	},
	{
		Version:     4,
		Description: "Create error_log table",
		Up:          migration004Up,
		Down:        migration004Down,
	},
}

// LatestVersion is the schema version after all migrations ran
func LatestVersion() int {
	return migrations[len(migrations)-1].Version
}

// RunMigrations runs all pending database migrations
func (db *DB) RunMigrations() error {
	currentVersion, err := db.getCurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	db.logger.Debugf("Current database version: %d", currentVersion)

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		db.logger.Infof("Running migration %d: %s", migration.Version, migration.Description)

		err := db.ExecTx(func(tx *sql.Tx) error {
			if err := migration.Up(tx); err != nil {
				return fmt.Errorf("migration %d failed: %w", migration.Version, err)
			}

			_, err := tx.Exec(`
				INSERT INTO schema_version (version, description, applied_at)
				VALUES (?, ?, ?)
			`, migration.Version, migration.Description, time.Now())

			return err
		})

		if err != nil {
			return err
		}
	}

	return nil
}

// RollbackTo undoes migrations above version, newest first
func (db *DB) RollbackTo(version int) error {
	currentVersion, err := db.getCurrentVersion()
	if err != nil {
		return err
	}

	for i := len(migrations) - 1; i >= 0; i-- {
		m := migrations[i]
		if m.Version <= version || m.Version > currentVersion {
			continue
		}

		db.logger.Infof("Rolling back migration %d: %s", m.Version, m.Description)

		err := db.ExecTx(func(tx *sql.Tx) error {
			if m.Version > 1 {
				if _, err := tx.Exec(`DELETE FROM schema_version WHERE version = ?`, m.Version); err != nil {
					return err
				}
			}
			return m.Down(tx)
		})
		if err != nil {
			return fmt.Errorf("rollback of migration %d failed: %w", m.Version, err)
		}
	}
	return nil
}

// getCurrentVersion returns the current schema version
func (db *DB) getCurrentVersion() (int, error) {
	var tableExists bool
	err := db.conn.QueryRow(`
		SELECT COUNT(*) > 0
		FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableExists)

	if err != nil {
		return 0, err
	}

	if !tableExists {
		return 0, nil
	}

	var version int
	err = db.conn.QueryRow(`
		SELECT COALESCE(MAX(version), 0)
		FROM schema_version
	`).Scan(&version)

	if err != nil {
		return 0, err
	}

	return version, nil
}

// Migration 001: Schema version tracking table
func migration001Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version INTEGER NOT NULL UNIQUE,
			description TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	return err
}

func migration001Down(tx *sql.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS schema_version`)
	return err
}

// Migration 002: Sessions and runs
func migration002Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE sessions (
			id TEXT PRIMARY KEY,
			bot_name TEXT NOT NULL,
			char_type TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			stopped_at DATETIME,
			stop_reason TEXT,
			games_played INTEGER DEFAULT 0
		);

		CREATE TABLE runs (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			game_index INTEGER NOT NULL,
			name TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			completed_at DATETIME,
			duration_ms INTEGER,
			error_message TEXT,
			FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);

		CREATE INDEX idx_runs_session ON runs(session_id);
		CREATE INDEX idx_runs_name ON runs(name);
		CREATE INDEX idx_runs_status ON runs(status);
	`)
	return err
}

func migration002Down(tx *sql.Tx) error {
	_, err := tx.Exec(`
		DROP INDEX IF EXISTS idx_runs_status;
		DROP INDEX IF EXISTS idx_runs_name;
		DROP INDEX IF EXISTS idx_runs_session;
		DROP TABLE IF EXISTS runs;
		DROP TABLE IF EXISTS sessions;
	`)
	return err
}

// Migration 003: Node traversal results
func migration003Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE traversals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			node_id INTEGER NOT NULL,
			attempts INTEGER NOT NULL,
			reached BOOLEAN NOT NULL,
			final_distance REAL,
			duration_ms INTEGER NOT NULL,
			recorded_at DATETIME NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		);

		CREATE INDEX idx_traversals_run ON traversals(run_id);
		CREATE INDEX idx_traversals_node ON traversals(node_id);
	`)
	return err
}

func migration003Down(tx *sql.Tx) error {
	_, err := tx.Exec(`
		DROP INDEX IF EXISTS idx_traversals_node;
		DROP INDEX IF EXISTS idx_traversals_run;
		DROP TABLE IF EXISTS traversals;
	`)
	return err
}

// Migration 004: Error log
func migration004Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE error_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT,
			run_id TEXT,
			error_type TEXT NOT NULL,
			error_severity TEXT NOT NULL,
			error_action TEXT NOT NULL,
			error_message TEXT NOT NULL,
			occurred_at DATETIME NOT NULL
		);

		CREATE INDEX idx_error_log_session ON error_log(session_id);
		CREATE INDEX idx_error_log_type ON error_log(error_type);
	`)
	return err
}

func migration004Down(tx *sql.Tx) error {
	_, err := tx.Exec(`
		DROP INDEX IF EXISTS idx_error_log_type;
		DROP INDEX IF EXISTS idx_error_log_session;
		DROP TABLE IF EXISTS error_log;
	`)
	return err
}
