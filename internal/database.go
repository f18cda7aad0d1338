package internal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS commits (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id),
	seq INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	UNIQUE (document_id, seq)
);
CREATE TABLE IF NOT EXISTS messages (
	commit_id TEXT NOT NULL REFERENCES commits(id),
	idx INTEGER NOT NULL,
	content BLOB NOT NULL,
	timestamp INTEGER NOT NULL,
	author_address TEXT NOT NULL,
	sealed INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (commit_id, idx)
);`

// OpenDatabase opens an existing SQLite database in read-only mode
func OpenDatabase(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// mode=ro is only honored for file: URIs
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return db, nil
}

// CreateDatabase opens a SQLite database for writing, creating the file and
// the schema when missing
func CreateDatabase(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer keeps seq assignment serialized
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}
