package internal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore keeps commits in a SQLite database
type SQLiteStore struct {
	db     *sql.DB
	path   string
	opener Opener
	sealer Sealer
}

var _ StorageBackend = (*SQLiteStore)(nil)

// NewSQLiteStore opens the database at path. Read-only stores must exist.
func NewSQLiteStore(path string, opts StoreOptions) (*SQLiteStore, error) {
	var db *sql.DB
	var err error
	if opts.ReadOnly {
		db, err = OpenDatabase(path)
	} else {
		db, err = CreateDatabase(path)
	}
	if err != nil {
		return nil, &StorageError{Path: path, Op: "open", Err: err}
	}
	return &SQLiteStore{db: db, path: path, opener: opts.Opener, sealer: opts.Sealer}, nil
}

// Path implements StorageBackend
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close implements StorageBackend
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ListDocuments implements StorageBackend
func (s *SQLiteStore) ListDocuments() ([]Document, error) {
	rows, err := s.db.Query(`
		SELECT d.id, d.name, d.created_at, COUNT(c.id)
		FROM documents d LEFT JOIN commits c ON c.document_id = d.id
		GROUP BY d.id
		ORDER BY d.created_at, d.id`)
	if err != nil {
		return nil, &StorageError{Path: s.path, Op: "read", Err: fmt.Errorf("query failed: %w", err)}
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.CreatedAt, &doc.CommitCount); err != nil {
			return nil, &StorageError{Path: s.path, Op: "read", Err: fmt.Errorf("scan failed: %w", err)}
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Path: s.path, Op: "read", Err: fmt.Errorf("rows iteration error: %w", err)}
	}

	return docs, nil
}

// LoadCommits implements StorageBackend
func (s *SQLiteStore) LoadCommits(documentID string) ([]*Commit, error) {
	var exists int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM documents WHERE id = ?`, documentID).Scan(&exists)
	if err != nil {
		return nil, &StorageError{Path: s.path, Op: "read", Err: err}
	}
	if exists == 0 {
		return nil, &StorageError{Path: s.path, Op: "read", Err: fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)}
	}

	rows, err := s.db.Query(`
		SELECT c.id, c.seq, c.created_at, m.content, m.timestamp, m.author_address, m.sealed
		FROM commits c LEFT JOIN messages m ON m.commit_id = c.id
		WHERE c.document_id = ?
		ORDER BY c.seq, m.idx`, documentID)
	if err != nil {
		return nil, &StorageError{Path: s.path, Op: "read", Err: fmt.Errorf("query failed: %w", err)}
	}
	defer rows.Close()

	var commits []*Commit
	for rows.Next() {
		var (
			id        string
			seq       int64
			createdAt int64
			content   []byte
			timestamp sql.NullInt64
			author    sql.NullString
			sealed    sql.NullBool
		)
		if err := rows.Scan(&id, &seq, &createdAt, &content, &timestamp, &author, &sealed); err != nil {
			return nil, &StorageError{Path: s.path, Op: "read", Err: fmt.Errorf("scan failed: %w", err)}
		}

		if n := len(commits); n == 0 || commits[n-1].ID != id {
			commits = append(commits, &Commit{ID: id, DocumentID: documentID, Seq: seq, CreatedAt: createdAt, Messages: []Message{}})
		}
		// commits without messages come back as a single row of NULLs
		if !timestamp.Valid {
			continue
		}

		opened, err := openContent(s.opener, s.path, content, sealed.Bool)
		if err != nil {
			return nil, fmt.Errorf("commit %s: %w", id, err)
		}
		c := commits[len(commits)-1]
		c.Messages = append(c.Messages, Message{
			Content:       opened,
			Timestamp:     timestamp.Int64,
			AuthorAddress: author.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Path: s.path, Op: "read", Err: fmt.Errorf("rows iteration error: %w", err)}
	}

	return commits, nil
}

// PutDocument implements StorageBackend
func (s *SQLiteStore) PutDocument(doc Document) error {
	if doc.CreatedAt == 0 {
		doc.CreatedAt = time.Now().UnixMilli()
	}
	_, err := s.db.Exec(`
		INSERT INTO documents (id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
		doc.ID, doc.Name, doc.CreatedAt)
	if err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	return nil
}

// AppendCommit implements StorageBackend
func (s *SQLiteStore) AppendCommit(commit *Commit) error {
	if commit.DocumentID == "" {
		return &StorageError{Path: s.path, Op: "write", Err: errors.New("commit has no document id")}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR IGNORE INTO documents (id, created_at) VALUES (?, ?)`,
		commit.DocumentID, time.Now().UnixMilli()); err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}

	var next int64
	if err := tx.QueryRow(`SELECT COALESCE(MAX(seq) + 1, 0) FROM commits WHERE document_id = ?`,
		commit.DocumentID).Scan(&next); err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	prepareCommit(commit, next)

	if _, err := tx.Exec(`INSERT INTO commits (id, document_id, seq, created_at) VALUES (?, ?, ?, ?)`,
		commit.ID, commit.DocumentID, commit.Seq, commit.CreatedAt); err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: fmt.Errorf("insert commit: %w", err)}
	}

	stmt, err := tx.Prepare(`INSERT INTO messages (commit_id, idx, content, timestamp, author_address, sealed) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	defer stmt.Close()

	for i, msg := range commit.Messages {
		content, sealed, err := sealContent(s.sealer, s.path, msg.Content)
		if err != nil {
			return err
		}
		if content == nil {
			content = []byte{}
		}
		if _, err := stmt.Exec(commit.ID, i, content, msg.Timestamp, msg.AuthorAddress, sealed); err != nil {
			return &StorageError{Path: s.path, Op: "write", Err: fmt.Errorf("insert message %d: %w", i, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	return nil
}
