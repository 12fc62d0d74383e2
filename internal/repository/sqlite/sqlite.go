// Package sqlite implements the share repository on embedded SQLite.
//
// It is the alternative to the default JSON-document store for
// deployments that outgrow a single rewritten file: same interface, same
// semantics, but mutations touch one row instead of the whole document.
//
// WHY modernc.org/sqlite INSTEAD OF mattn/go-sqlite3?
// mattn/go-sqlite3 needs CGo and a C toolchain; modernc.org/sqlite is a
// pure-Go translation of SQLite, so cross-compilation stays trivial and
// ":memory:" keeps the tests dependency-free.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements the share repository.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath (":memory:" for tests), verifies the
// connection, applies the pragmas the server depends on, and runs
// migrations.
func New(dbPath string) (*DB, error) {
	if !strings.HasPrefix(dbPath, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: creating data directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Surface a bad path or permission problem now rather than on the
	// first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in flight — the only
	// concurrency this single-process server needs.
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

// Close closes the connection pool, flushing the WAL.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps this
// idempotent, so it is safe to run on every boot; additive changes go
// through addColumnIfNotExists below.
//
// snippets and tags are stored as JSON columns: a share is read and
// written as a unit (the document-store semantics this backend mirrors),
// so decomposing snippets into their own table would buy queries nobody
// makes.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS shares (
			id        TEXT PRIMARY KEY,
			title     TEXT NOT NULL,
			snippets  TEXT NOT NULL DEFAULT '[]',
			tags      TEXT NOT NULL DEFAULT '[]',
			markdown  TEXT NOT NULL DEFAULT '',
			is_public INTEGER NOT NULL DEFAULT 1,
			password  TEXT,
			expire_at INTEGER,
			create_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_shares_create_at ON shares(create_at);
	`)
	if err != nil {
		return fmt.Errorf("creating shares table: %w", err)
	}

	// expire_at postdates the initial schema; databases created before it
	// gain the column here.
	if err := db.addColumnIfNotExists("shares", "expire_at", "INTEGER"); err != nil {
		return fmt.Errorf("adding expire_at column: %w", err)
	}
	return nil
}

// addColumnIfNotExists makes additive ALTER TABLE migrations idempotent.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}
