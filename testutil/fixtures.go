package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// Hand-encoded v1 updates
var (
	// client 7 inserts "a" into the root type "text"
	UpdateInsertA = []byte{1, 1, 7, 0, 4, 1, 4, 't', 'e', 'x', 't', 1, 'a', 0}

	// client 7 appends "b" after its own clock 0
	UpdateAppendB = []byte{1, 1, 7, 1, 0x84, 7, 0, 1, 'b', 0}

	// client 7 deletes clock 0
	UpdateDeleteA = []byte{0, 1, 7, 1, 0, 1}

	// string length prefix runs past the end
	UpdateCorrupt = []byte{1, 1, 7, 0, 4, 1, 4, 't', 'e', 'x', 't', 0x7f, 'a', 0}
)

// Fixture document written by CreateSQLiteFixture
const (
	FixtureDocumentID   = "doc-fixture"
	FixtureDocumentName = "Fixture Notes"
)

// CreateSQLiteFixture writes a commit store with one document holding two
// commits: [UpdateInsertA, UpdateAppendB] by alice and [UpdateDeleteA] by bob
func CreateSQLiteFixture(t *testing.T, dbPath string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	createCommitTables(t, db)

	statements := []struct {
		query string
		args  []interface{}
	}{
		{`INSERT INTO documents (id, name, created_at) VALUES (?, ?, ?)`, []interface{}{FixtureDocumentID, FixtureDocumentName, 1000}},
		{`INSERT INTO commits (id, document_id, seq, created_at) VALUES (?, ?, ?, ?)`, []interface{}{"commit-0", FixtureDocumentID, 0, 1000}},
		{`INSERT INTO commits (id, document_id, seq, created_at) VALUES (?, ?, ?, ?)`, []interface{}{"commit-1", FixtureDocumentID, 1, 2000}},
		// inserted out of order to exercise ORDER BY idx
		{`INSERT INTO messages (commit_id, idx, content, timestamp, author_address, sealed) VALUES (?, ?, ?, ?, ?, 0)`, []interface{}{"commit-0", 1, UpdateAppendB, 1100, "alice"}},
		{`INSERT INTO messages (commit_id, idx, content, timestamp, author_address, sealed) VALUES (?, ?, ?, ?, ?, 0)`, []interface{}{"commit-0", 0, UpdateInsertA, 1000, "alice"}},
		{`INSERT INTO messages (commit_id, idx, content, timestamp, author_address, sealed) VALUES (?, ?, ?, ?, ?, 0)`, []interface{}{"commit-1", 0, UpdateDeleteA, 2000, "bob"}},
	}
	for _, st := range statements {
		if _, err := db.Exec(st.query, st.args...); err != nil {
			t.Fatalf("Failed to insert fixture row: %v", err)
		}
	}
}
