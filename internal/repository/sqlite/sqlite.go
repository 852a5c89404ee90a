// Package sqlite implements the repository interfaces on an embedded SQLite
// database file.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite: no CGo, no C compiler, and
// cross-compilation keeps working. ":memory:" gives every test its own
// throwaway database.
//
// WHY sqlx ON TOP OF database/sql?
// sqlx keeps the database/sql connection pool and transactions but scans
// rows straight into structs by their `db` tags, so model.User does not need
// a hand-maintained Scan(&a, &b, &c, ...) list in every query.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/moodmap/internal/repository"
)

// The modernc driver registers itself as "sqlite", a name sqlx does not know.
// Without this, named queries would not know to use ? placeholders.
func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// compile-time check that *DB implements the full store contract
var _ repository.Store = (*DB)(nil)

// DB wraps a sqlx connection pool and implements repository.Store.
type DB struct {
	conn *sqlx.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/moodmap.db" → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SINGLE WRITER:
	// SQLite allows one writer at a time. Capping the pool at one connection
	// serialises every transaction in Go instead of surfacing SQLITE_BUSY, and
	// it keeps ":memory:" databases alive (each new connection would otherwise
	// get its own empty database).
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Ping checks the database is reachable. Used by GET /health.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// Close closes the connection pool. Wherever New is called, defer Close.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. Every statement is idempotent
// (CREATE ... IF NOT EXISTS), so it runs on every start.
//
// moods.created_at is stored as Unix milliseconds so the 24-hour window is a
// plain integer comparison that an index can serve.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                 TEXT PRIMARY KEY,
			username           TEXT NOT NULL UNIQUE,
			email              TEXT NOT NULL UNIQUE,
			password_hash      TEXT,
			google_id          TEXT UNIQUE,
			profile_picture    TEXT,
			has_mood_submitted INTEGER NOT NULL DEFAULT 0,
			mood_submitted_at  DATETIME,
			created_at         DATETIME NOT NULL,
			updated_at         DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS moods (
			id         TEXT PRIMARY KEY,
			district   TEXT NOT NULL,
			mood       TEXT NOT NULL CHECK (mood IN ('happy', 'sad', 'angry', 'excited', 'neutral')),
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_moods_created_at ON moods(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating moods table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err came from a UNIQUE (or primary key)
// constraint.
func isUniqueViolation(err error) bool {
	var se *moderncsqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		// Primary result code only, when extended codes are off.
		return strings.Contains(se.Error(), "UNIQUE constraint failed")
	}
	return false
}
