package database

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Event kinds stored in the activity log
const (
	KindAlert   = "alert"
	KindCommand = "command"
	KindReply   = "reply"
)

type DB struct {
	*sql.DB
}

type LogEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Channel   string    `json:"channel"`
	User      string    `json:"user,omitempty"`
	Command   string    `json:"command,omitempty"`
	Message   string    `json:"message"`
}

func Initialize(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		kind TEXT NOT NULL,
		channel TEXT,
		user TEXT,
		command TEXT,
		message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
	`

	_, err := db.Exec(schema)
	return err
}

func (db *DB) LogEvent(entry *LogEntry) error {
	query := `
		INSERT INTO events (kind, channel, user, command, message)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := db.Exec(query, entry.Kind, entry.Channel, entry.User, entry.Command, entry.Message)
	return err
}

func (db *DB) GetLogs(limit int, offset int) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, kind, COALESCE(channel, ''), COALESCE(user, ''),
		       COALESCE(command, ''), COALESCE(message, '')
		FROM events
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?
	`
	return db.queryLogs(query, limit, offset)
}

func (db *DB) GetLogsByKind(kind string, limit int) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, kind, COALESCE(channel, ''), COALESCE(user, ''),
		       COALESCE(command, ''), COALESCE(message, '')
		FROM events
		WHERE kind = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`
	return db.queryLogs(query, kind, limit)
}

func (db *DB) queryLogs(query string, args ...interface{}) ([]LogEntry, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var log LogEntry
		err := rows.Scan(&log.ID, &log.Timestamp, &log.Kind, &log.Channel, &log.User, &log.Command, &log.Message)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}

// DeleteOldLogs deletes log entries older than the specified number of days
func (db *DB) DeleteOldLogs(daysToKeep int) (int64, error) {
	query := `DELETE FROM events WHERE timestamp < datetime('now', '-' || ? || ' days')`
	result, err := db.Exec(query, daysToKeep)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
