package internal

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// ErrDocumentNotFound is returned when a document has no stored history
var ErrDocumentNotFound = errors.New("document not found")

// StorageBackend is an append-only store of document commits
type StorageBackend interface {
	// ListDocuments returns every document with its commit count
	ListDocuments() ([]Document, error)
	// LoadCommits returns a document's commits ordered by seq, messages in
	// stored order, sealed content already opened
	LoadCommits(documentID string) ([]*Commit, error)
	// AppendCommit stores commit at the end of its document's log. Empty
	// ID, Seq and CreatedAt are assigned.
	AppendCommit(commit *Commit) error
	// PutDocument creates or renames a document
	PutDocument(doc Document) error
	// Path returns the on-disk location of the store
	Path() string
	Close() error
}

// StoreOptions configures a StorageBackend
type StoreOptions struct {
	ReadOnly bool
	Opener   Opener // opens sealed messages on load
	Sealer   Sealer // seals messages on append
}

// NewStorageBackend opens the store selected by cfg
func NewStorageBackend(cfg StoreConfig, opts StoreOptions) (StorageBackend, error) {
	switch cfg.Type {
	case StoreTypeSQLite, "":
		return NewSQLiteStore(cfg.Path, opts)
	case StoreTypePebble:
		return NewPebbleStore(cfg.Path, opts)
	default:
		return nil, &ConfigError{Key: "store.type", Err: fmt.Errorf("unsupported store type %q", cfg.Type)}
	}
}

// LoadDocumentUpdates loads a document's commits and flattens them into
// normalized updates
func LoadDocumentUpdates(store StorageBackend, documentID string) ([]VersionHistoryUpdate, error) {
	commits, err := store.LoadCommits(documentID)
	if err != nil {
		return nil, err
	}
	return ExtractUpdates(commits)
}

// prepareCommit fills in the fields assigned on append
func prepareCommit(commit *Commit, seq int64) {
	if commit.ID == "" {
		commit.ID = uuid.NewString()
	}
	if commit.CreatedAt == 0 {
		commit.CreatedAt = time.Now().UnixMilli()
	}
	commit.Seq = seq
}

// sealContent seals message content when a sealer is configured
func sealContent(sealer Sealer, path string, content []byte) ([]byte, bool, error) {
	if sealer == nil {
		return content, false, nil
	}
	sealed, err := sealer.Seal(content)
	if err != nil {
		return nil, false, &StorageError{Path: path, Op: "seal", Err: err}
	}
	return sealed, true, nil
}

// openContent opens sealed message content
func openContent(opener Opener, path string, content []byte, sealed bool) ([]byte, error) {
	if !sealed {
		return content, nil
	}
	if opener == nil {
		return nil, &StorageError{Path: path, Op: "unseal", Err: ErrNoOpener}
	}
	opened, err := opener.Open(content)
	if err != nil {
		return nil, &StorageError{Path: path, Op: "unseal", Err: err}
	}
	return opened, nil
}

// sortDocuments orders documents by creation time, then id
func sortDocuments(docs []Document) {
	slices.SortFunc(docs, func(a, b Document) int {
		if c := cmp.Compare(a.CreatedAt, b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
