// ABOUTME: Opens the local SQLite contact store and applies the schema
// ABOUTME: File databases run in WAL mode; ":memory:" is accepted for tests
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const busyTimeoutMillis = 5000

func dsn(path string) string {
	params := fmt.Sprintf("_foreign_keys=on&_busy_timeout=%d", busyTimeoutMillis)
	if path == MemoryPath {
		return "file::memory:?" + params
	}
	return "file:" + path + "?_journal_mode=WAL&" + params
}

// OpenDatabase opens (creating if needed) the store at path and makes sure
// the schema exists. The pool is pinned to one connection so an in-memory
// store stays a single database and file stores never race on writes.
func OpenDatabase(path string) (*sql.DB, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	database, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	database.SetMaxOpenConns(1)

	if err := InitSchema(database); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return database, nil
}
