package main

import (
	"database/sql"
	"errors"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// RoomRow represents a persisted room
type RoomRow struct {
	Code     string
	PassHash string
}

// EventRow represents one journaled match event
type EventRow struct {
	Room      string
	Kind      string
	From      string
	Target    string
	Killer    string
	Damage    float64
	CreatedAt time.Time
}

// KillRow is one entry of a room's kill feed
type KillRow struct {
	Victim string    `json:"victim"`
	Killer string    `json:"killer"`
	At     time.Time `json:"at"`
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rooms (
		code TEXT PRIMARY KEY,
		pass_hash TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS match_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room TEXT NOT NULL,
		kind TEXT NOT NULL,
		from_user TEXT NOT NULL,
		target TEXT NOT NULL DEFAULT '',
		killer TEXT NOT NULL DEFAULT '',
		damage REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_match_events_room ON match_events(room, kind);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("DB migration error: %v", err)
	}
	return err
}

// GetSetting returns a stored setting, or "" when absent
func (db *DB) GetSetting(key string) string {
	var v string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&v)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("DB get setting %s: %v", key, err)
		}
		return ""
	}
	return v
}

// SetSetting upserts a setting
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// CreateRoom persists a room
func (db *DB) CreateRoom(code, passHash string) error {
	_, err := db.conn.Exec("INSERT INTO rooms (code, pass_hash) VALUES (?, ?)", code, passHash)
	return err
}

// GetRoom returns a room by code, or nil if it doesn't exist
func (db *DB) GetRoom(code string) (*RoomRow, error) {
	row := db.conn.QueryRow("SELECT code, pass_hash FROM rooms WHERE code = ?", code)
	var r RoomRow
	err := row.Scan(&r.Code, &r.PassHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// InsertEvents writes a batch of journaled events in one transaction
func (db *DB) InsertEvents(events []EventRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO match_events (room, kind, from_user, target, killer, damage, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.Exec(e.Room, e.Kind, e.From, e.Target, e.Killer, e.Damage, e.CreatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			log.Printf("journal: insert error: %v", err)
		}
	}
	return tx.Commit()
}

// KillFeed returns the most recent deaths in a room, newest first
func (db *DB) KillFeed(room string, limit int) ([]KillRow, error) {
	rows, err := db.conn.Query(`
		SELECT target, killer, created_at FROM match_events
		WHERE room = ? AND kind = 'player_died'
		ORDER BY id DESC LIMIT ?
	`, room, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []KillRow
	for rows.Next() {
		var k KillRow
		var at string
		if err := rows.Scan(&k.Victim, &k.Killer, &at); err != nil {
			continue
		}
		k.At, _ = time.Parse(time.RFC3339Nano, at)
		result = append(result, k)
	}
	return result, rows.Err()
}

// CountEvents returns how many events of kind a room has journaled
func (db *DB) CountEvents(room, kind string) (int, error) {
	var n int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM match_events WHERE room = ? AND kind = ?", room, kind).Scan(&n)
	return n, err
}
