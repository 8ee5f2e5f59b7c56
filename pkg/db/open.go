// Package db holds the single shared sqlite-opening helper used by
// db/meta, db/layout, and db/state: each owns a physically separate
// database file, per spec.md §3.3, but all three open the same way.
package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Open opens (creating if absent) a sqlite database at path with the
// pragmas moss's write patterns need: foreign keys for cascading
// deletes, and WAL for concurrent readers during a write transaction.
func Open(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", path)
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", path, err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("db: ping %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1) // single mutator per install root (spec.md §0)
	return conn, nil
}
