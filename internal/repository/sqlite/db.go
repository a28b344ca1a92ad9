// Package sqlite contains embedded-store implementations of the repository
// interfaces, backed by a single SQLite database file (pure-Go driver, no
// CGO). The store holds plaintext shop/user metadata and opaque ciphertext
// envelopes; it has no knowledge of record contents.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the shared database handle used by all repositories.
type DB struct{ SQL *sql.DB }

// Open opens (creating if needed) the database at path. Pass ":memory:" for
// an ephemeral store in tests. The pool is capped at one connection: SQLite
// allows a single writer, and one connection also keeps an in-memory
// database alive across queries.
func Open(ctx context.Context, path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{SQL: db}, nil
}

// Close closes the underlying handle.
func (db *DB) Close() error { return db.SQL.Close() }
