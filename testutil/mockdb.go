package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

func createCommitTables(t *testing.T, db *sql.DB) {
	t.Helper()
	tables := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS commits (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			UNIQUE (document_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			commit_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			content BLOB NOT NULL,
			timestamp INTEGER NOT NULL,
			author_address TEXT NOT NULL,
			sealed INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (commit_id, idx)
		)`,
	}
	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
	}
}

// InsertMessage inserts a raw message row
func InsertMessage(t *testing.T, db *sql.DB, commitID string, idx int, content []byte, timestamp int64, author string, sealed bool) {
	t.Helper()
	insertSQL := "INSERT INTO messages (commit_id, idx, content, timestamp, author_address, sealed) VALUES (?, ?, ?, ?, ?, ?)"
	if _, err := db.Exec(insertSQL, commitID, idx, content, timestamp, author, sealed); err != nil {
		t.Fatalf("Failed to insert message: %v", err)
	}
}
