package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
)

// Key layout:
//
//	doc:<documentID>                  -> document JSON
//	commit:<documentID>:<seq %020d>   -> commit JSON, message content base64
const (
	docKeyPrefix    = "doc:"
	commitKeyPrefix = "commit:"
)

// PebbleStore keeps commits in a pebble key-value store
type PebbleStore struct {
	db     *pebble.DB
	path   string
	opener Opener
	sealer Sealer

	// serializes seq assignment
	mu sync.Mutex
}

var _ StorageBackend = (*PebbleStore)(nil)

type pebbleDocument struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	CreatedAt   int64  `json:"created_at"`
	CommitCount int    `json:"commit_count"`
}

type pebbleCommit struct {
	ID        string          `json:"id"`
	Seq       int64           `json:"seq"`
	CreatedAt int64           `json:"created_at"`
	Messages  []pebbleMessage `json:"messages"`
}

type pebbleMessage struct {
	Content       []byte `json:"content"`
	Timestamp     int64  `json:"timestamp"`
	AuthorAddress string `json:"author_address"`
	Sealed        bool   `json:"sealed,omitempty"`
}

// NewPebbleStore opens the pebble directory at path. Read-only stores must
// exist.
func NewPebbleStore(path string, opts StoreOptions) (*PebbleStore, error) {
	if opts.ReadOnly {
		if _, err := os.Stat(path); err != nil {
			return nil, &StorageError{Path: path, Op: "open", Err: err}
		}
	} else if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, &StorageError{Path: path, Op: "open", Err: err}
	}

	db, err := pebble.Open(path, &pebble.Options{ReadOnly: opts.ReadOnly})
	if err != nil {
		return nil, &StorageError{Path: path, Op: "open", Err: err}
	}
	return &PebbleStore{db: db, path: path, opener: opts.Opener, sealer: opts.Sealer}, nil
}

func docKey(documentID string) []byte {
	return []byte(docKeyPrefix + documentID)
}

func commitKey(documentID string, seq int64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", commitKeyPrefix, documentID, seq))
}

// document ids are key segments, so they cannot hold the separator
func validatePebbleID(documentID string) error {
	if documentID == "" {
		return errors.New("document id must not be empty")
	}
	if strings.Contains(documentID, ":") {
		return fmt.Errorf("document id %q must not contain ':'", documentID)
	}
	return nil
}

// prefixUpperBound returns the smallest key greater than every key with prefix
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// Path implements StorageBackend
func (s *PebbleStore) Path() string {
	return s.path
}

// Close implements StorageBackend
func (s *PebbleStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *PebbleStore) getDocument(documentID string) (*pebbleDocument, error) {
	v, closer, err := s.db.Get(docKey(documentID))
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	var doc pebbleDocument
	if err := json.Unmarshal(v, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", documentID, err)
	}
	return &doc, nil
}

// ListDocuments implements StorageBackend
func (s *PebbleStore) ListDocuments() ([]Document, error) {
	prefix := []byte(docKeyPrefix)
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixUpperBound(prefix)})
	if err != nil {
		return nil, &StorageError{Path: s.path, Op: "read", Err: err}
	}
	defer it.Close()

	docs := make([]Document, 0)
	for ok := it.First(); ok; ok = it.Next() {
		var doc pebbleDocument
		if err := json.Unmarshal(it.Value(), &doc); err != nil {
			return nil, &StorageError{Path: s.path, Op: "read", Err: fmt.Errorf("decode %s: %w", it.Key(), err)}
		}
		docs = append(docs, Document{ID: doc.ID, Name: doc.Name, CreatedAt: doc.CreatedAt, CommitCount: doc.CommitCount})
	}
	if err := it.Error(); err != nil {
		return nil, &StorageError{Path: s.path, Op: "read", Err: err}
	}

	// keys sort by id; match the SQLite store's creation order
	sortDocuments(docs)
	return docs, nil
}

// LoadCommits implements StorageBackend
func (s *PebbleStore) LoadCommits(documentID string) ([]*Commit, error) {
	if _, err := s.getDocument(documentID); err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			err = fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
		}
		return nil, &StorageError{Path: s.path, Op: "read", Err: err}
	}

	prefix := []byte(commitKeyPrefix + documentID + ":")
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixUpperBound(prefix)})
	if err != nil {
		return nil, &StorageError{Path: s.path, Op: "read", Err: err}
	}
	defer it.Close()

	// the zero-padded seq keeps lexical order equal to commit order
	var commits []*Commit
	for ok := it.First(); ok; ok = it.Next() {
		var pc pebbleCommit
		if err := json.Unmarshal(it.Value(), &pc); err != nil {
			return nil, &StorageError{Path: s.path, Op: "read", Err: fmt.Errorf("decode %s: %w", it.Key(), err)}
		}

		commit := &Commit{
			ID:         pc.ID,
			DocumentID: documentID,
			Seq:        pc.Seq,
			CreatedAt:  pc.CreatedAt,
			Messages:   make([]Message, 0, len(pc.Messages)),
		}
		for _, m := range pc.Messages {
			content, err := openContent(s.opener, s.path, m.Content, m.Sealed)
			if err != nil {
				return nil, fmt.Errorf("commit %s: %w", pc.ID, err)
			}
			commit.Messages = append(commit.Messages, Message{
				Content:       content,
				Timestamp:     m.Timestamp,
				AuthorAddress: m.AuthorAddress,
			})
		}
		commits = append(commits, commit)
	}
	if err := it.Error(); err != nil {
		return nil, &StorageError{Path: s.path, Op: "read", Err: err}
	}

	return commits, nil
}

// PutDocument implements StorageBackend
func (s *PebbleStore) PutDocument(doc Document) error {
	if err := validatePebbleID(doc.ID); err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.getDocument(doc.ID)
	switch {
	case errors.Is(err, pebble.ErrNotFound):
		stored = &pebbleDocument{ID: doc.ID, CreatedAt: doc.CreatedAt}
		if stored.CreatedAt == 0 {
			stored.CreatedAt = time.Now().UnixMilli()
		}
	case err != nil:
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	stored.Name = doc.Name

	return s.putDocument(s.db, stored)
}

type pebbleWriter interface {
	Set(key, value []byte, opts *pebble.WriteOptions) error
}

func (s *PebbleStore) putDocument(w pebbleWriter, doc *pebbleDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	if err := w.Set(docKey(doc.ID), data, pebble.Sync); err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	return nil
}

// AppendCommit implements StorageBackend. The commit and the updated
// document record are written in one batch.
func (s *PebbleStore) AppendCommit(commit *Commit) error {
	if err := validatePebbleID(commit.DocumentID); err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.getDocument(commit.DocumentID)
	if errors.Is(err, pebble.ErrNotFound) {
		doc, err = &pebbleDocument{ID: commit.DocumentID, CreatedAt: time.Now().UnixMilli()}, nil
	}
	if err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}

	prepareCommit(commit, int64(doc.CommitCount))
	pc := pebbleCommit{
		ID:        commit.ID,
		Seq:       commit.Seq,
		CreatedAt: commit.CreatedAt,
		Messages:  make([]pebbleMessage, 0, len(commit.Messages)),
	}
	for _, m := range commit.Messages {
		content, sealed, err := sealContent(s.sealer, s.path, m.Content)
		if err != nil {
			return err
		}
		pc.Messages = append(pc.Messages, pebbleMessage{
			Content:       content,
			Timestamp:     m.Timestamp,
			AuthorAddress: m.AuthorAddress,
			Sealed:        sealed,
		})
	}
	data, err := json.Marshal(pc)
	if err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(commitKey(commit.DocumentID, commit.Seq), data, nil); err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	doc.CommitCount++
	if err := s.putDocument(batch, doc); err != nil {
		return err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	return nil
}
